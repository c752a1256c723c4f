package event

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/postgresql"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// WaitingListRepository covers the bulk operations an event cancellation
// needs. Per-entry lifecycle transitions live on the customer side.
type WaitingListRepository interface {
	ExpireLiveByEventID(ctx context.Context, eventID string, updatedAt time.Time, tx *sql.Tx) ([]ExpiredEntry, error)
}

type waitingListRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewWaitingListRepository(logger *logrus.Logger, db *sql.DB) WaitingListRepository {
	return &waitingListRepository{
		logger: logger,
		db:     db,
	}
}

func (r *waitingListRepository) command(tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}

	return r.db
}

func (r *waitingListRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// ExpireLiveByEventID implements WaitingListRepository.
func (r *waitingListRepository) ExpireLiveByEventID(ctx context.Context, eventID string, updatedAt time.Time, tx *sql.Tx) ([]ExpiredEntry, error) {
	query := `
		UPDATE waiting_list SET status = 'EXPIRED', updated_at = $1
		WHERE event_id = $2 AND status IN ('WAITING', 'OFFERED')
		RETURNING id, allocation_id, customer_id
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while expiring waiting list entries")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, updatedAt, eventID)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while expiring waiting list entries")
	}

	defer rows.Close()

	var data = make([]ExpiredEntry, 0)
	for rows.Next() {
		var e ExpiredEntry
		if err := rows.Scan(&e.ID, &e.AllocationID, &e.CustomerID); err != nil {
			return nil, r.translate(ctx, err, "an error occurred while expiring waiting list entries")
		}

		data = append(data, e)
	}

	return data, nil
}
