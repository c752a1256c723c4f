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

type AllocationRepository interface {
	Save(ctx context.Context, a Allocation, tx *sql.Tx) error
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

func (r *allocationRepository) command(tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}

	return r.db
}

func (r *allocationRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// Save implements AllocationRepository.
func (r *allocationRepository) Save(ctx context.Context, a Allocation, tx *sql.Tx) error {
	query := `
		INSERT INTO ticket_allocation
		(
			id, event_id, tier_name, total_quantity, unit_price, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving ticket allocation's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, a.ID, a.EventID, a.TierName, a.TotalQuantity, a.UnitPrice, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving ticket allocation's properties")
	}

	return nil
}
