// Package store persists users, posts, and sessions behind a small sqlx
// layer. SQLite (via modernc.org/sqlite) is the default backend; PostgreSQL
// (via pgx) is available for deployments that already run one.
package store

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Store is the persistence layer for the application.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to the database identified by driver ("sqlite" or
// "postgres") and dsn, and runs migrations. For sqlite an empty dsn opens an
// in-memory database, which is what the tests use.
func Open(driver, dsn string) (*Store, error) {
	var db *sqlx.DB
	var err error

	switch driver {
	case "", "sqlite":
		driver = "sqlite"
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err = sqlx.Connect("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

		// Foreign keys are off by default in SQLite; cascade deletes
		// (user -> posts, user -> sessions) depend on them.
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	case "postgres":
		db, err = sqlx.Connect("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres database: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind translates ?-style placeholders to the connected driver's bindvar
// syntax ($1, $2, ... on postgres).
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
