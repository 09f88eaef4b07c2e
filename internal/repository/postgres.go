package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// NewPostgresRepository opens a PostgreSQL pool. The server is not contacted
// until first use; see WaitForDatabase.
func NewPostgresRepository(connectionString string) (*SQLRepository, error) {
	db, err := sqlx.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newPostgres(db), nil
}

// NewPostgresRepositoryFromDB wraps an existing connection pool.
func NewPostgresRepositoryFromDB(db *sql.DB) *SQLRepository {
	return newPostgres(sqlx.NewDb(db, "postgres"))
}

func newPostgres(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db, dialect: "postgres", isDuplicate: isPostgresDuplicate}
}

func isPostgresDuplicate(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
