package event

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/postgresql"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type TicketRepository interface {
	CancelByEventID(ctx context.Context, eventID string, tx *sql.Tx) (int64, error)
}

type ticketRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewTicketRepository(logger *logrus.Logger, db *sql.DB) TicketRepository {
	return &ticketRepository{
		logger: logger,
		db:     db,
	}
}

func (r *ticketRepository) command(tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}

	return r.db
}

func (r *ticketRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// CancelByEventID implements TicketRepository. Only valid tickets move;
// used and refunded ones keep their history.
func (r *ticketRepository) CancelByEventID(ctx context.Context, eventID string, tx *sql.Tx) (int64, error) {
	query := `UPDATE acquired_ticket SET status = 'CANCELLED' WHERE event_id = $1 AND status = 'VALID'`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while cancelling acquired tickets")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, eventID)
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while cancelling acquired tickets")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while cancelling acquired tickets")
	}

	return affected, nil
}
