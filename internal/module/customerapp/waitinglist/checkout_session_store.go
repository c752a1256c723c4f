package waitinglist

import (
	"context"
	"fmt"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// CheckoutSessionStore remembers which payment session belongs to a
// waiting list entry so a released offer can void its session.
type CheckoutSessionStore interface {
	Set(ctx context.Context, entryID, sessionID string, ttl time.Duration) error
	Get(ctx context.Context, entryID string) (string, error)
	Delete(ctx context.Context, entryID string) error
}

type redisCheckoutSessionStore struct {
	logger *logrus.Logger
	client *goredis.Client
}

func NewRedisCheckoutSessionStore(logger *logrus.Logger, client *goredis.Client) CheckoutSessionStore {
	return &redisCheckoutSessionStore{
		logger: logger,
		client: client,
	}
}

func (s *redisCheckoutSessionStore) key(entryID string) string {
	return fmt.Sprintf("checkout-session:%s", entryID)
}

func (s *redisCheckoutSessionStore) Set(ctx context.Context, entryID, sessionID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(entryID), sessionID, ttl).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "failed to store checkout session")
	}

	return nil
}

func (s *redisCheckoutSessionStore) Get(ctx context.Context, entryID string) (string, error) {
	sessionID, err := s.client.Get(ctx, s.key(entryID)).Result()
	if err == goredis.Nil {
		return "", errors.New(http.StatusNotFound, status.NOT_FOUND, "checkout session not found")
	}
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return "", errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "failed to load checkout session")
	}

	return sessionID, nil
}

func (s *redisCheckoutSessionStore) Delete(ctx context.Context, entryID string) error {
	if err := s.client.Del(ctx, s.key(entryID)).Err(); err != nil {
		s.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "failed to delete checkout session")
	}

	return nil
}
