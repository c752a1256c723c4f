package postgresql

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/lib/pq"
	"github.com/ticketbay/tb-marketplace/config"
)

var (
	db   *sql.DB
	once sync.Once
)

// IsSerializationFailure reports whether err is a retryable transaction
// conflict (serialization failure or deadlock).
func IsSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	return pqErr.Code == "40001" || pqErr.Code == "40P01"
}

func GetDatabase() *sql.DB {
	once.Do(func() {
		c := config.Get().Postgres

		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
		)

		var err error
		db, err = sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("postgresql: %v", err)
		}

		db.SetMaxOpenConns(c.MaxOpenConns)
		db.SetMaxIdleConns(c.MaxIdleConns)
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	})

	return db
}
