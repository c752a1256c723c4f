package waitinglist

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

type WaitingListRepository interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(ctx context.Context, tx *sql.Tx) error
	Rollback(ctx context.Context, tx *sql.Tx) error

	Save(ctx context.Context, e Entry, tx *sql.Tx) error
	FindByID(ctx context.Context, ID string, tx *sql.Tx) (Entry, error)
	FindLiveByAllocationIDAndCustomerID(ctx context.Context, allocationID, customerID string, tx *sql.Tx) (Entry, error)
	FindOldestWaitingByAllocationID(ctx context.Context, allocationID string, tx *sql.Tx) (Entry, error)
	CountWaitingBefore(ctx context.Context, e Entry, tx *sql.Tx) (int64, error)
	CountPurchasedByAllocationID(ctx context.Context, allocationID string, tx *sql.Tx) (int64, error)
	CountActiveOfferedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) (int64, error)
	UpdateStatus(ctx context.Context, ID string, toStatus string, offerExpiresAt *time.Time, updatedAt time.Time, tx *sql.Tx) error
	FindManyLapsedOffered(ctx context.Context, now time.Time, limit int, tx *sql.Tx) ([]Entry, error)
	FindManyLapsedOfferedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) ([]Entry, error)
	FindManyLiveByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]Entry, error)
}

type sqlCommand interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

const entryColumns = "id, allocation_id, event_id, customer_id, status, offer_expires_at, created_at, updated_at"

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

func (r *waitingListRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// BeginTx implements WaitingListRepository.
func (r *waitingListRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return nil, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to begin transaction")
	}

	return tx, nil
}

// CommitTx implements WaitingListRepository.
func (r *waitingListRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Commit(); err != nil {
		return r.translate(ctx, err, "an error occurred trying to commit transaction")
	}

	return nil
}

// Rollback implements WaitingListRepository.
func (r *waitingListRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred trying to rollback transaction")
	}

	return nil
}

func scanEntry(row interface{ Scan(...interface{}) error }) (Entry, error) {
	var e Entry
	var offerExpiresAt sql.NullTime

	err := row.Scan(&e.ID, &e.AllocationID, &e.EventID, &e.CustomerID, &e.Status, &offerExpiresAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return Entry{}, err
	}

	if offerExpiresAt.Valid {
		e.OfferExpiresAt = &offerExpiresAt.Time
	}

	return e, nil
}

// Save implements WaitingListRepository.
func (r *waitingListRepository) Save(ctx context.Context, e Entry, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		INSERT INTO waiting_list
		(
			id, allocation_id, event_id, customer_id, status, offer_expires_at, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving waiting list entry's properties")
	}
	defer stmt.Close()

	var offerExpiresAt sql.NullTime
	if e.OfferExpiresAt != nil {
		offerExpiresAt.Valid = true
		offerExpiresAt.Time = *e.OfferExpiresAt
	}

	_, err = stmt.ExecContext(ctx, e.ID, e.AllocationID, e.EventID, e.CustomerID, e.Status, offerExpiresAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving waiting list entry's properties")
	}

	return nil
}

// FindByID implements WaitingListRepository.
func (r *waitingListRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (Entry, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM waiting_list
		WHERE
			id = $1
		LIMIT 1
	`, entryColumns)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return Entry{}, r.translate(ctx, err, "an error occurred while getting waiting list entry's properties")
	}
	defer stmt.Close()

	e, err := scanEntry(stmt.QueryRowContext(ctx, ID))
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("waiting list entry with id '%s' is not found", ID))
		}
		return Entry{}, r.translate(ctx, err, "an error occurred while getting waiting list entry's properties")
	}

	return e, nil
}

// FindLiveByAllocationIDAndCustomerID implements WaitingListRepository.
func (r *waitingListRepository) FindLiveByAllocationIDAndCustomerID(ctx context.Context, allocationID, customerID string, tx *sql.Tx) (Entry, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM waiting_list
		WHERE
			allocation_id = $1
		AND
			customer_id = $2
		AND
			status IN ('%s', '%s')
		LIMIT 1
	`, entryColumns, StatusWaiting, StatusOffered)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return Entry{}, r.translate(ctx, err, "an error occurred while getting waiting list entry's properties")
	}
	defer stmt.Close()

	e, err := scanEntry(stmt.QueryRowContext(ctx, allocationID, customerID))
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "live waiting list entry is not found")
		}
		return Entry{}, r.translate(ctx, err, "an error occurred while getting waiting list entry's properties")
	}

	return e, nil
}

// FindOldestWaitingByAllocationID implements WaitingListRepository. FIFO is
// creation order with the entry id as a stable tiebreaker.
func (r *waitingListRepository) FindOldestWaitingByAllocationID(ctx context.Context, allocationID string, tx *sql.Tx) (Entry, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM waiting_list
		WHERE
			allocation_id = $1
		AND
			status = '%s'
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`, entryColumns, StatusWaiting)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return Entry{}, r.translate(ctx, err, "an error occurred while getting waiting list entry's properties")
	}
	defer stmt.Close()

	e, err := scanEntry(stmt.QueryRowContext(ctx, allocationID))
	if err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "no waiting entry for allocation")
		}
		return Entry{}, r.translate(ctx, err, "an error occurred while getting waiting list entry's properties")
	}

	return e, nil
}

// CountWaitingBefore implements WaitingListRepository. The count feeds the
// 1-based queue position shown to the buyer; it is never used for
// allocation decisions.
func (r *waitingListRepository) CountWaitingBefore(ctx context.Context, e Entry, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT count(id)
		FROM waiting_list
		WHERE
			allocation_id = $1
		AND
			status = '%s'
		AND
			(created_at < $2 OR (created_at = $2 AND id < $3))
	`, StatusWaiting)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting waiting list entry's properties")
	}
	defer stmt.Close()

	var count int64
	row := stmt.QueryRowContext(ctx, e.AllocationID, e.CreatedAt, e.ID)

	if err := row.Scan(&count); err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting waiting list entry's properties")
	}

	return count, nil
}

// CountPurchasedByAllocationID implements WaitingListRepository.
func (r *waitingListRepository) CountPurchasedByAllocationID(ctx context.Context, allocationID string, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT count(id)
		FROM waiting_list
		WHERE
			allocation_id = $1
		AND
			status = '%s'
	`, StatusPurchased)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting waiting list entry's properties")
	}
	defer stmt.Close()

	var count int64
	row := stmt.QueryRowContext(ctx, allocationID)

	if err := row.Scan(&count); err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting waiting list entry's properties")
	}

	return count, nil
}

// CountActiveOfferedByAllocationID implements WaitingListRepository. Offers
// whose window already lapsed do not hold capacity even before the expiry
// path has retired them.
func (r *waitingListRepository) CountActiveOfferedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) (int64, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT count(id)
		FROM waiting_list
		WHERE
			allocation_id = $1
		AND
			status = '%s'
		AND
			offer_expires_at >= $2
	`, StatusOffered)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting waiting list entry's properties")
	}
	defer stmt.Close()

	var count int64
	row := stmt.QueryRowContext(ctx, allocationID, now)

	if err := row.Scan(&count); err != nil {
		return 0, r.translate(ctx, err, "an error occurred while counting waiting list entry's properties")
	}

	return count, nil
}

// UpdateStatus implements WaitingListRepository. The transition guard lives
// in the use case; the repository applies the write it was handed.
func (r *waitingListRepository) UpdateStatus(ctx context.Context, ID string, toStatus string, offerExpiresAt *time.Time, updatedAt time.Time, tx *sql.Tx) error {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := `
		UPDATE waiting_list
		SET
			status = $1,
			offer_expires_at = $2,
			updated_at = $3
		WHERE id = $4
	`

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while updating waiting list entry's properties")
	}
	defer stmt.Close()

	var expiry sql.NullTime
	if offerExpiresAt != nil {
		expiry.Valid = true
		expiry.Time = *offerExpiresAt
	}

	_, err = stmt.ExecContext(ctx, toStatus, expiry, updatedAt, ID)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while updating waiting list entry's properties")
	}

	return nil
}

// FindManyLapsedOffered implements WaitingListRepository. Feeds the
// reconciliation sweep; no locks are taken here, the sweep re-checks each
// entry under its allocation lock.
func (r *waitingListRepository) FindManyLapsedOffered(ctx context.Context, now time.Time, limit int, tx *sql.Tx) ([]Entry, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM waiting_list
		WHERE
			status = '%s'
		AND
			offer_expires_at < $1
		ORDER BY offer_expires_at ASC
		LIMIT $2
	`, entryColumns, StatusOffered)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, now, limit)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
	}

	defer rows.Close()

	var data = make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
		}

		data = append(data, e)
	}

	return data, nil
}

// FindManyLapsedOfferedByAllocationID implements WaitingListRepository.
// Runs under the allocation row lock so a join can retire lapsed offers on
// its unit before any capacity decision.
func (r *waitingListRepository) FindManyLapsedOfferedByAllocationID(ctx context.Context, allocationID string, now time.Time, tx *sql.Tx) ([]Entry, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM waiting_list
		WHERE
			allocation_id = $1
		AND
			status = '%s'
		AND
			offer_expires_at < $2
		ORDER BY offer_expires_at ASC
	`, entryColumns, StatusOffered)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, allocationID, now)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
	}

	defer rows.Close()

	var data = make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
		}

		data = append(data, e)
	}

	return data, nil
}

// FindManyLiveByEventID implements WaitingListRepository. Used when an
// event is cancelled and every live claim must be retired.
func (r *waitingListRepository) FindManyLiveByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]Entry, error) {
	var cmd sqlCommand = r.db

	if tx != nil {
		cmd = tx
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM waiting_list
		WHERE
			event_id = $1
		AND
			status IN ('%s', '%s')
	`, entryColumns, StatusWaiting, StatusOffered)

	stmt, err := cmd.PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, eventID)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
	}

	defer rows.Close()

	var data = make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, r.translate(ctx, err, "an error occurred while getting bunch of waiting list entry's properties")
		}

		data = append(data, e)
	}

	return data, nil
}
