package review

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/lib/pq"
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

type ReviewRepository interface {
	Save(ctx context.Context, rv Review, tx *sql.Tx) error
	Update(ctx context.Context, rv Review, tx *sql.Tx) error
	FindByEventIDAndCustomerID(ctx context.Context, eventID, customerID string, tx *sql.Tx) (Review, error)
	FindManyByEventID(ctx context.Context, eventID string, offset, limit int64, tx *sql.Tx) ([]Review, error)
	SummaryByEventID(ctx context.Context, eventID string, tx *sql.Tx) (Summary, error)
}

type reviewRepository struct {
	logger *logrus.Logger
	db     *sql.DB
}

func NewReviewRepository(logger *logrus.Logger, db *sql.DB) ReviewRepository {
	return &reviewRepository{
		logger: logger,
		db:     db,
	}
}

const reviewColumns = `id, event_id, customer_id, customer_name, rating, comment, created_at, updated_at`

func (r *reviewRepository) command(tx *sql.Tx) sqlCommand {
	if tx != nil {
		return tx
	}

	return r.db
}

func (r *reviewRepository) translate(ctx context.Context, err error, message string) error {
	if postgresql.IsSerializationFailure(err) {
		return errors.New(http.StatusConflict, status.SERIALIZATION_CONFLICT, message)
	}

	r.logger.WithContext(ctx).WithError(err).Error()
	return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, message)
}

// Save implements ReviewRepository.
func (r *reviewRepository) Save(ctx context.Context, rv Review, tx *sql.Tx) error {
	query := `
		INSERT INTO review
		(
			id, event_id, customer_id, customer_name, rating, comment, created_at, updated_at
		)
		VALUES
		(
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while saving review's properties")
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, rv.ID, rv.EventID, rv.CustomerID, rv.CustomerName, rv.Rating, rv.Comment, rv.CreatedAt, rv.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return errors.New(http.StatusConflict, status.CONFLICT, "event has already been reviewed by this customer")
		}
		return r.translate(ctx, err, "an error occurred while saving review's properties")
	}

	return nil
}

// Update implements ReviewRepository.
func (r *reviewRepository) Update(ctx context.Context, rv Review, tx *sql.Tx) error {
	query := `
		UPDATE review SET rating = $1, comment = $2, updated_at = $3
		WHERE event_id = $4 AND customer_id = $5
	`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while updating review's properties")
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, rv.Rating, rv.Comment, rv.UpdatedAt, rv.EventID, rv.CustomerID)
	if err != nil {
		return r.translate(ctx, err, "an error occurred while updating review's properties")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.translate(ctx, err, "an error occurred while updating review's properties")
	}
	if affected < 1 {
		return errors.New(http.StatusNotFound, status.NOT_FOUND, "review is not found")
	}

	return nil
}

// FindByEventIDAndCustomerID implements ReviewRepository.
func (r *reviewRepository) FindByEventIDAndCustomerID(ctx context.Context, eventID, customerID string, tx *sql.Tx) (Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM review WHERE event_id = $1 AND customer_id = $2`, reviewColumns)

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return Review{}, r.translate(ctx, err, "an error occurred while getting review's properties")
	}
	defer stmt.Close()

	row := stmt.QueryRowContext(ctx, eventID, customerID)

	var data Review
	err = row.Scan(&data.ID, &data.EventID, &data.CustomerID, &data.CustomerName, &data.Rating, &data.Comment, &data.CreatedAt, &data.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return Review{}, errors.New(http.StatusNotFound, status.NOT_FOUND, "review is not found")
		}
		return Review{}, r.translate(ctx, err, "an error occurred while getting review's properties")
	}

	return data, nil
}

// FindManyByEventID implements ReviewRepository.
func (r *reviewRepository) FindManyByEventID(ctx context.Context, eventID string, offset, limit int64, tx *sql.Tx) ([]Review, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM review
		WHERE event_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`, reviewColumns)

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of review's properties")
	}
	defer stmt.Close()

	rows, err := stmt.QueryContext(ctx, eventID, offset, limit)
	if err != nil {
		return nil, r.translate(ctx, err, "an error occurred while getting bunch of review's properties")
	}

	defer rows.Close()

	var data = make([]Review, 0)
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.EventID, &rv.CustomerID, &rv.CustomerName, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, r.translate(ctx, err, "an error occurred while getting bunch of review's properties")
		}

		data = append(data, rv)
	}

	return data, nil
}

// SummaryByEventID implements ReviewRepository.
func (r *reviewRepository) SummaryByEventID(ctx context.Context, eventID string, tx *sql.Tx) (Summary, error) {
	query := `SELECT count(id), COALESCE(AVG(rating), 0) FROM review WHERE event_id = $1`

	stmt, err := r.command(tx).PrepareContext(ctx, query)
	if err != nil {
		return Summary{}, r.translate(ctx, err, "an error occurred while summarizing reviews")
	}
	defer stmt.Close()

	var summary Summary
	row := stmt.QueryRowContext(ctx, eventID)

	if err := row.Scan(&summary.Count, &summary.AverageRating); err != nil {
		return Summary{}, r.translate(ctx, err, "an error occurred while summarizing reviews")
	}

	return summary, nil
}
