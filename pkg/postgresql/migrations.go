package postgresql

import (
	"database/sql"
	"fmt"
)

// RunMigrations applies the schema. Statements are idempotent so the
// service can run them on every boot.
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS event (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			location VARCHAR(255) NOT NULL DEFAULT '',
			event_date TIMESTAMPTZ NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			total_tickets BIGINT NOT NULL,
			organizer_id VARCHAR(64) NOT NULL,
			is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ticket_allocation (
			id VARCHAR(64) PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL REFERENCES event(id),
			tier_name VARCHAR(128) NOT NULL DEFAULT '',
			total_quantity BIGINT NOT NULL,
			unit_price NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS waiting_list (
			id VARCHAR(64) PRIMARY KEY,
			allocation_id VARCHAR(64) NOT NULL REFERENCES ticket_allocation(id),
			event_id VARCHAR(64) NOT NULL REFERENCES event(id),
			customer_id VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL,
			offer_expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS acquired_ticket (
			id VARCHAR(64) PRIMARY KEY,
			entry_id VARCHAR(64) NOT NULL UNIQUE REFERENCES waiting_list(id),
			allocation_id VARCHAR(64) NOT NULL REFERENCES ticket_allocation(id),
			event_id VARCHAR(64) NOT NULL REFERENCES event(id),
			customer_id VARCHAR(64) NOT NULL,
			payment_reference VARCHAR(128) NOT NULL,
			status VARCHAR(16) NOT NULL,
			purchased_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS review (
			id VARCHAR(64) PRIMARY KEY,
			event_id VARCHAR(64) NOT NULL REFERENCES event(id),
			customer_id VARCHAR(64) NOT NULL,
			rating SMALLINT NOT NULL,
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			UNIQUE (event_id, customer_id)
		)`,

		// a buyer holds at most one live claim per sellable unit
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_waiting_list_live_claim
			ON waiting_list (allocation_id, customer_id)
			WHERE status IN ('WAITING', 'OFFERED')`,

		`CREATE INDEX IF NOT EXISTS idx_waiting_list_allocation_status
			ON waiting_list (allocation_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_waiting_list_offer_expires_at
			ON waiting_list (offer_expires_at)
			WHERE status = 'OFFERED'`,
		`CREATE INDEX IF NOT EXISTS idx_ticket_allocation_event
			ON ticket_allocation (event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_acquired_ticket_customer
			ON acquired_ticket (customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_review_event
			ON review (event_id)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("postgresql: migration failed: %w", err)
		}
	}

	return nil
}
