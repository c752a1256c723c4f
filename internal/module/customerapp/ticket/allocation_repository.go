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

type AllocationRepository interface {
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Allocation, error)
	// FindByIDForUpdate locks the allocation row; every capacity decision
	// for the unit must run while holding this lock.
	FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (Allocation, error)
	FindManyByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]Allocation, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type allocationRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAllocationRepository(logger *logrus.Logger, db *sql.DB) AllocationRepository {
	return &allocationRepository{
		logger: logger,
		db:     db,
	}
}

func (r *allocationRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

func (r *allocationRepository) findByID(ctx context.Context, ID string, cmd sqlCommand, forUpdate bool) (Allocation, error) {
	query := `
		SELECT
			id, event_id, tier_name, total_quantity, unit_price, created_at, updated_at
		FROM ticket_allocation
		WHERE
			id = $1
	`
	if forUpdate {
		query += " FOR UPDATE"
	}

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return Allocation{}, r.translate(ctx, err, "an error occurred while getting ticket allocation's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, ID)

	var data Allocation

	err = row.Scan(&data.ID, &data.EventID, &data.TierName, &data.TotalQuantity, &data.UnitPrice, &data.CreatedAt, &data.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Allocation{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("ticket allocation with id '%s' is not found", ID))
		}
		return Allocation{}, r.translate(ctx, err, "an error occurred while getting ticket allocation's properties")
	}

	return data, nil
}

// FindByID implements AllocationRepository.
func (r *allocationRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Allocation, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findByID(ctx, ID, cmd, false)
}

// FindByIDForUpdate implements AllocationRepository.
func (r *allocationRepository) FindByIDForUpdate(ctx context.Context, ID string, tx *sql.Tx) (Allocation, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	return r.findByID(ctx, ID, cmd, true)
}

// FindManyByEventID implements AllocationRepository.
func (r *allocationRepository) FindManyByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]Allocation, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		SELECT
			id, event_id, tier_name, total_quantity, unit_price, created_at, updated_at
		FROM ticket_allocation
		WHERE
			event_id = $1
		ORDER BY tier_name
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of ticket allocation's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, eventID)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of ticket allocation's properties")
	}

	defer rows.Close()

	var data = make([]Allocation, 0)
	for rows.Next() {
		var a Allocation

		if err := rows.Scan(&a.ID, &a.EventID, &a.TierName, &a.TotalQuantity, &a.UnitPrice, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, r.translate(ctx, err, "an error occurred while getting bunch of ticket allocation's properties")
		}

		data = append(data, a)
	}

	return data, nil
}
