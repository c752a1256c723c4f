package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/internal/module/customerapp/waitinglist"
)

// OfferSweepWorker periodically retires offers whose deferred expiry
// callback was lost. It is the safety net behind the task queue, so a
// missed tick only delays an expiry until the next interval.
type OfferSweepWorker struct {
	logger   *logrus.Logger
	interval time.Duration
	useCase  waitinglist.WaitingListUseCase
}

func NewOfferSweepWorker(logger *logrus.Logger, interval time.Duration, useCase waitinglist.WaitingListUseCase) *OfferSweepWorker {
	return &OfferSweepWorker{
		logger:   logger,
		interval: interval,
		useCase:  useCase,
	}
}

// Run blocks until ctx is cancelled.
func (w *OfferSweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.WithField("interval", w.interval.String()).Info("offer sweep worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("offer sweep worker stopped")
			return
		case <-ticker.C:
			expired, err := w.useCase.SweepExpiredOffers(ctx)
			if err != nil {
				w.logger.WithError(err).Error("offer sweep failed")
				continue
			}
			if expired > 0 {
				w.logger.WithField("expired", expired).Info("lapsed offers retired")
			}
		}
	}
}
