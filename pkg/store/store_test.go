package store_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/store"
)

type run struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Steps  []string `json:"steps"`
	Count  int      `json:"count"`
}

func exercise(t *testing.T, s store.Store[run]) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Update(ctx, "missing", func(r run) (run, error) { return r, nil })
	require.ErrorIs(t, err, store.ErrNotFound)

	initial := run{ID: "r1", Status: "PENDING"}
	require.NoError(t, s.Put(ctx, "r1", initial))

	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, initial, got)

	got.Steps = append(got.Steps, "mutated-copy")
	again, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	require.Empty(t, again.Steps, "Get must return an independent copy")

	updated, err := s.Update(ctx, "r1", func(r run) (run, error) {
		r.Status = "APPROVED"
		r.Steps = append(r.Steps, "Ingest")
		return r, nil
	})
	require.NoError(t, err)
	require.Equal(t, "APPROVED", updated.Status)

	boom := errors.New("boom")
	_, err = s.Update(ctx, "r1", func(r run) (run, error) {
		r.Status = "REJECTED"
		return r, boom
	})
	require.ErrorIs(t, err, boom)

	final, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "APPROVED", final.Status, "failed update must not write")
	require.Equal(t, []string{"Ingest"}, final.Steps)

	require.NoError(t, s.Put(ctx, "r1", run{ID: "r1", Status: "REJECTED"}))
	replaced, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "REJECTED", replaced.Status)
}

func concurrentIncrements(t *testing.T, s store.Store[run], workers int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "counter", run{ID: "counter"}))

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			_, err := s.Update(ctx, "counter", func(r run) (run, error) {
				r.Count++
				return r, nil
			})
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	got, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, workers, got.Count)
}

func TestMemory(t *testing.T) {
	s := store.NewMemory[run]()
	exercise(t, s)
	concurrentIncrements(t, s, 50)
}

func TestSQLite(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "runs.db")+"?_pragma=busy_timeout(5000)")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := store.NewSQLite[run](context.Background(), db, "runs")
	require.NoError(t, err)

	exercise(t, s)
	concurrentIncrements(t, s, 8)
}

func TestSQLiteRejectsBadTable(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = store.NewSQLite[run](context.Background(), db, "runs; DROP TABLE x")
	require.ErrorIs(t, err, store.ErrInvalidTable)
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("INVOICE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INVOICE_TEST_POSTGRES_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS store_test_runs (
		id TEXT PRIMARY KEY, state JSONB NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now())`)
	require.NoError(t, err)
	_, err = db.Exec(`TRUNCATE store_test_runs`)
	require.NoError(t, err)

	s, err := store.NewPostgres[run](db, "store_test_runs")
	require.NoError(t, err)

	exercise(t, s)
	concurrentIncrements(t, s, 20)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("INVOICE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("INVOICE_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.Ping(ctx).Err())

	prefix := "invoice:test:" + time.Now().Format("150405.000") + ":"
	t.Cleanup(func() {
		iter := client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	})

	s := store.NewRedis[run](client, prefix, time.Minute)
	exercise(t, s)
	concurrentIncrements(t, s, 10)

	ttl, err := client.TTL(ctx, prefix+"r1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
}
