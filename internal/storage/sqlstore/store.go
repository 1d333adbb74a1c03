// Package sqlstore implements the storage contracts on database/sql. It runs
// on Postgres in production and on SQLite for local development and tests.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Vasu1712/lounge-backend/internal/apperr"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	DefaultRetention = 500
)

type Options struct {
	// Retention is the per-scope message cap. Zero means DefaultRetention.
	Retention int
	Logger    *slog.Logger
}

// SQLStore implements storage.UserStore, storage.MessageStore and
// storage.TicketStore.
type SQLStore struct {
	db         *sql.DB
	driverName string
	retention  int
	log        *slog.Logger
}

// New opens the database, checks connectivity and creates missing tables.
func New(driverName, dataSourceName string, opts Options) (*SQLStore, error) {
	if driverName != DriverPostgres && driverName != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driverName)
	}
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if driverName == DriverSQLite {
		// One connection: keeps a :memory: database alive and serialises writers.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &SQLStore{db: db, driverName: driverName, retention: opts.Retention, log: opts.Logger}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT UNIQUE NOT NULL,
	username TEXT UNIQUE,
	password TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	level INTEGER NOT NULL DEFAULT 1,
	banned BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	scope TEXT NOT NULL,
	sender_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	sender_email TEXT NOT NULL,
	sender_username TEXT,
	receiver_id TEXT REFERENCES users(id) ON DELETE CASCADE,
	receiver_email TEXT,
	receiver_username TEXT,
	content TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	CHECK ((receiver_id IS NULL AND scope = 'public') OR (receiver_id IS NOT NULL AND scope <> 'public'))
);

CREATE INDEX IF NOT EXISTS idx_messages_scope_id ON messages (scope, id);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	participant_a TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	participant_b TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	last_message_id INTEGER NOT NULL,
	last_message_preview TEXT NOT NULL,
	last_sender_id TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_a ON conversations (participant_a);
CREATE INDEX IF NOT EXISTS idx_conversations_b ON conversations (participant_b);

CREATE TABLE IF NOT EXISTS tickets (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	user_email TEXT NOT NULL,
	subject TEXT NOT NULL,
	message TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'open',
	created_at TIMESTAMP NOT NULL
);
`

func (s *SQLStore) createTables() error {
	query := schema
	if s.driverName == DriverPostgres {
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "BIGSERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "last_message_id INTEGER", "last_message_id BIGINT")
		query = strings.ReplaceAll(query, "TIMESTAMP", "TIMESTAMPTZ")
	} else {
		if _, err := s.db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	return nil
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.driverName != DriverPostgres {
		return query
	}
	n := strings.Count(query, "?")
	for i := 1; i <= n; i++ {
		query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
	}
	return query
}

// withTx runs fn in a transaction and commits when it returns nil.
func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Unavailable(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

// lockScope serialises appends to one scope for the rest of the transaction.
// SQLite needs nothing: the single connection already serialises writers.
func (s *SQLStore) lockScope(ctx context.Context, tx *sql.Tx, scope string) error {
	if s.driverName != DriverPostgres {
		return nil
	}
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", scope); err != nil {
		return apperr.Unavailable(err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping is used by the health endpoint.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
