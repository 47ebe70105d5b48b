package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/repository"
)

type dialect struct {
	get    string
	lock   string
	upsert string
	update string
}

// SQL is a Store over a database/sql table with columns
// (id TEXT PRIMARY KEY, state JSON, updated_at TIMESTAMP).
type SQL[T any] struct {
	db *sql.DB
	q  dialect
}

// NewSQLite creates a store over table in a SQLite database, creating the
// table if it does not exist.
func NewSQLite[T any](ctx context.Context, db *sql.DB, table string) (*SQL[T], error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			state      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, table)

	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create %s table: %w", table, err)
	}

	return &SQL[T]{
		db: db,
		q: dialect{
			get:  fmt.Sprintf(`SELECT state FROM %s WHERE id = ?`, table),
			// A no-op write takes the write lock before reading so concurrent
			// updates queue on busy_timeout instead of failing on upgrade.
			lock: fmt.Sprintf(`UPDATE %s SET updated_at = updated_at WHERE id = ? RETURNING state`, table),
			upsert: fmt.Sprintf(`
				INSERT INTO %s(id, state, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
				ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`, table),
			update: fmt.Sprintf(`UPDATE %s SET state = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, table),
		},
	}, nil
}

// NewPostgres creates a store over an existing Postgres table. The schema is
// owned by cmd/migrate.
func NewPostgres[T any](db *sql.DB, table string) (*SQL[T], error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}

	return &SQL[T]{
		db: db,
		q: dialect{
			get:  fmt.Sprintf(`SELECT state FROM %s WHERE id = $1`, table),
			lock: fmt.Sprintf(`SELECT state FROM %s WHERE id = $1 FOR UPDATE`, table),
			upsert: fmt.Sprintf(`
				INSERT INTO %s(id, state, updated_at) VALUES ($1, $2, now())
				ON CONFLICT (id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`, table),
			update: fmt.Sprintf(`UPDATE %s SET state = $1, updated_at = now() WHERE id = $2`, table),
		},
	}, nil
}

func scanState(s repository.Scanner) ([]byte, error) {
	var data []byte
	err := s.Scan(&data)
	return data, err
}

func (s *SQL[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	data, err := repository.QueryOne(ctx, s.db, s.q.get, []any{id}, scanState)
	if err != nil {
		return zero, repository.MapError(err, ErrNotFound, ErrConflict)
	}
	return decode[T](data)
}

func (s *SQL[T]) Put(ctx context.Context, id string, v T) error {
	data, err := encode(v)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, s.q.upsert, id, string(data)); err != nil {
		return fmt.Errorf("put state %s: %w", id, err)
	}
	return nil
}

func (s *SQL[T]) Update(ctx context.Context, id string, fn func(T) (T, error)) (T, error) {
	var zero T

	next, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (T, error) {
		data, err := repository.QueryOne(ctx, tx, s.q.lock, []any{id}, scanState)
		if err != nil {
			return zero, err
		}

		current, err := decode[T](data)
		if err != nil {
			return zero, err
		}

		next, err := fn(current)
		if err != nil {
			return zero, err
		}

		encoded, err := encode(next)
		if err != nil {
			return zero, err
		}

		if err := repository.ExecExpectOne(ctx, tx, s.q.update, string(encoded), id); err != nil {
			return zero, err
		}
		return next, nil
	})

	if errors.Is(err, sql.ErrNoRows) {
		return zero, ErrNotFound
	}
	return next, err
}
