package event

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ticketbay/tb-marketplace/pkg/errors"
	"github.com/ticketbay/tb-marketplace/pkg/status"
)

// AvailabilityRepository answers how many units of an allocation are
// already committed, counting purchases and offers still inside their
// window. The count is a snapshot taken without the allocation lock, so it
// is advisory; the waiting list transaction recounts under the lock.
type AvailabilityRepository interface {
	CountCommittedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) (int64, error)
}

type availabilityRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewAvailabilityRepository(logger *logrus.Logger, db *sql.DB) AvailabilityRepository {
	return &availabilityRepository{
		logger: logger,
		db:     db,
	}
}

func (r *availabilityRepository) command(tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}

	return r.db
}

func (r *availabilityRepository) CountCommittedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) (int64, error) {
	query := `
		SELECT COUNT(*) FROM waiting_list
		WHERE allocation_id = $1
		AND (status = 'PURCHASED' OR (status = 'OFFERED' AND offer_expires_at >= $2))
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "failed to count committed capacity")
	}
	defer stmt.Close()

	var committed int64
	if err := stmt.QueryRowContext(ctx, allocationID, now).Scan(&committed); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return 0, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "failed to count committed capacity")
	}

	return committed, nil
}
