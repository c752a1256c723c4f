package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/postgresql"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

type AcquiredTicketRepository interface {
	Save(ctx context.Context, t AcquiredTicket, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (AcquiredTicket, error)
	FindByEntryID(ctx context.Context, entryID string, tx *sql.Tx) (AcquiredTicket, error)
	FindManyByCustomerID(ctx context.Context, customerID string, tx *sql.Tx) ([]AcquiredTicket, error)
	CountByEventIDAndCustomerID(ctx context.Context, eventID string, customerID string, tx *sql.Tx) (int64, error)
}

type acquiredTicketRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAcquiredTicketRepository(logger *logrus.Logger, db *sql.DB) AcquiredTicketRepository {
	return &acquiredTicketRepository{
		logger: logger,
		db:     db,
	}
}

func (r *acquiredTicketRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// Save implements AcquiredTicketRepository.
func (r *acquiredTicketRepository) Save(ctx context.Context, t AcquiredTicket, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO acquired_ticket
		(
			id, entry_id, allocation_id, event_id, customer_id, payment_reference, status, purchased_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving acquired ticket's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, t.ID, t.EntryID, t.AllocationID, t.EventID, t.CustomerID, t.PaymentReference, t.Status, t.PurchasedAt)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving acquired ticket's properties")
	}

	return nil
}

// FindByID implements AcquiredTicketRepository.
func (r *acquiredTicketRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (AcquiredTicket, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, entry_id, allocation_id, event_id, customer_id, payment_reference, status, purchased_at
		FROM acquired_ticket
		WHERE
			id = $1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return AcquiredTicket{}, r.translate(ctx, err, "an error occurred while getting acquired ticket's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data AcquiredTicket
	err = row.Scan(&data.ID, &data.EntryID, &data.AllocationID, &data.EventID, &data.CustomerID, &data.PaymentReference, &data.Status, &data.PurchasedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return AcquiredTicket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("acquired ticket '%s' is not found", ID))
		}
		return AcquiredTicket{}, r.translate(ctx, err, "an error occurred while getting acquired ticket's properties")
	}

	return data, nil
}

// FindByEntryID implements AcquiredTicketRepository.
func (r *acquiredTicketRepository) FindByEntryID(ctx context.Context, entryID string, tx *sql.Tx) (AcquiredTicket, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, entry_id, allocation_id, event_id, customer_id, payment_reference, status, purchased_at
		FROM acquired_ticket
		WHERE
			entry_id = $1
		LIMIT 1
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return AcquiredTicket{}, r.translate(ctx, err, "an error occurred while getting acquired ticket's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, entryID)

	var data AcquiredTicket
	err = row.Scan(&data.ID, &data.EntryID, &data.AllocationID, &data.EventID, &data.CustomerID, &data.PaymentReference, &data.Status, &data.PurchasedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return AcquiredTicket{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("acquired ticket for entry '%s' is not found", entryID))
		}
		return AcquiredTicket{}, r.translate(ctx, err, "an error occurred while getting acquired ticket's properties")
	}

	return data, nil
}

// FindManyByCustomerID implements AcquiredTicketRepository.
func (r *acquiredTicketRepository) FindManyByCustomerID(ctx context.Context, customerID string, tx *sql.Tx) ([]AcquiredTicket, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, entry_id, allocation_id, event_id, customer_id, payment_reference, status, purchased_at
		FROM acquired_ticket
		WHERE
			customer_id = $1
		ORDER BY purchased_at DESC
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of acquired ticket's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, customerID)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of acquired ticket's properties")
	}

	defer rows.Close()

	var data = make([]AcquiredTicket, 0)
	for rows.Next() {
		var t AcquiredTicket
		if err := rows.Scan(&t.ID, &t.EntryID, &t.AllocationID, &t.EventID, &t.CustomerID, &t.PaymentReference, &t.Status, &t.PurchasedAt); err != nil {
			return nil, r.translate(ctx, err, "an error occurred while getting bunch of acquired ticket's properties")
		}

		data = append(data, t)
	}

	return data, nil
}

// CountByEventIDAndCustomerID implements AcquiredTicketRepository.
func (r *acquiredTicketRepository) CountByEventIDAndCustomerID(ctx context.Context, eventID string, customerID string, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `SELECT count(id) FROM acquired_ticket WHERE event_id = $1 AND customer_id = $2 AND status IN ('VALID', 'USED')`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting acquired ticket's properties")
	}
	defer stmt.Close()

	var count int64
	row := stmt.QueryRowContext(ctx, eventID, customerID)

	if err := row.Scan(&count); err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting acquired ticket's properties")
	}

	return count, nil
}
