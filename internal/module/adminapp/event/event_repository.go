package event

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/postgresql"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type EventRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error
	Save(ctx context.Context, e Event, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Event, error)
	UpdateCancelled(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) error
}

type eventRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewEventRepository(logger *logrus.Logger, db *sql.DB) EventRepository {
	return &eventRepository{
		logger: logger,
		db:     db,
	}
}

func (r *eventRepository) command(tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}

	return r.db
}

func (r *eventRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// BeginTx implements EventRepository.
func (r *eventRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while beginning transaction")
	}

	return tx, nil
}

// CommitTx implements EventRepository.
func (r *eventRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return r.translate(ctx, err, "an error occurred while committing transaction")
	}

	return nil
}

// Rollback implements EventRepository.
func (r *eventRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return r.translate(ctx, err, "an error occurred while rolling back transaction")
	}

	return nil
}

// Save implements EventRepository.
func (r *eventRepository) Save(ctx context.Context, e Event, tx *sql.Tx) error {
	query := `
		INSERT INTO event
		(
			id, name, description, location, event_date, price, total_tickets, organizer_id, is_cancelled, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving event's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, e.ID, e.Name, e.Description, e.Location, e.EventDate, e.Price, e.TotalTickets, e.OrganizerID, e.IsCancelled, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving event's properties")
	}

	return nil
}

// FindByID implements EventRepository.
func (r *eventRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Event, error) {
	query := `
		SELECT
			id, name, description, location, event_date, price, total_tickets, organizer_id, is_cancelled, created_at, updated_at
		FROM event
		WHERE
			id = $1
		FOR UPDATE
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return Event{}, r.translate(ctx, err, "an error occurred while getting event's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data Event
	err = row.Scan(&data.ID, &data.Name, &data.Description, &data.Location, &data.EventDate, &data.Price, &data.TotalTickets, &data.OrganizerID, &data.IsCancelled, &data.CreatedAt, &data.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Event{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("event '%s' is not found", ID))
		}
		return Event{}, r.translate(ctx, err, "an error occurred while getting event's properties")
	}

	return data, nil
}

// UpdateCancelled implements EventRepository.
func (r *eventRepository) UpdateCancelled(ctx context.Context, ID string, updatedAt time.Time, tx *sql.Tx) error {
	query := `UPDATE event SET is_cancelled = TRUE, updated_at = $1 WHERE id = $2`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while cancelling event")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, updatedAt, ID)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while cancelling event")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.translate(ctx, err, "an error occurred while cancelling event")
	}
	if affected < 1 {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("event '%s' is not found", ID))
	}

	return nil
}
