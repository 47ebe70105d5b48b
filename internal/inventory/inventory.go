// Package inventory is the stock lookup table used to validate invoice line
// items. Names match exactly; ClosestMatch provides the fuzzy fallback.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/DevDizzle/galatiq-invoice-agent/pkg/repository"
)

// NotFound is the stock level reported for names absent from the table.
const NotFound = -1

// DefaultCatalog returns the stock levels loaded by Seed on a fresh install.
func DefaultCatalog() map[string]int {
	return map[string]int{
		"GadgetX": 100,
		"WidgetY": 50,
		"ThingZ":  0,
	}
}

// Item is a single inventory row.
type Item struct {
	Name  string `json:"item_name"`
	Stock int    `json:"stock"`
}

// System defines the public contract for inventory operations.
type System interface {
	Handler() *Handler

	// Seed replaces the table contents with catalog.
	Seed(ctx context.Context, catalog map[string]int) error
	// Lookup returns the stock for an exact name, or NotFound.
	Lookup(ctx context.Context, name string) (int, error)
	// Names returns every known item name in ascending order.
	Names(ctx context.Context) ([]string, error)
	// Items returns every row in ascending name order.
	Items(ctx context.Context) ([]Item, error)
}

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

const schema = `CREATE TABLE IF NOT EXISTS inventory (
	item_name TEXT PRIMARY KEY,
	stock INTEGER NOT NULL CHECK (stock >= 0)
)`

// New creates the inventory table on db if needed and returns the System.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (System, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create inventory table: %w", err)
	}
	return &repo{
		db:     db,
		logger: logger.With("system", "inventory"),
	}, nil
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Seed(ctx context.Context, catalog map[string]int) error {
	for name, stock := range catalog {
		if strings.TrimSpace(name) == "" || stock < 0 {
			return fmt.Errorf("%w: %q stock %d", ErrInvalid, name, stock)
		}
	}

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM inventory"); err != nil {
			return struct{}{}, err
		}
		for _, name := range slices.Sorted(maps.Keys(catalog)) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO inventory (item_name, stock) VALUES (?, ?)",
				name, catalog[name],
			); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return fmt.Errorf("seed inventory: %w", err)
	}

	r.logger.Info("inventory seeded", "items", len(catalog))
	return nil
}

func (r *repo) Lookup(ctx context.Context, name string) (int, error) {
	stock, err := repository.QueryOne(ctx, r.db,
		"SELECT stock FROM inventory WHERE item_name = ?",
		[]any{name},
		func(s repository.Scanner) (int, error) {
			var n int
			err := s.Scan(&n)
			return n, err
		},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query inventory %q: %w", name, err)
	}
	return stock, nil
}

func (r *repo) Names(ctx context.Context) ([]string, error) {
	names, err := repository.QueryMany(ctx, r.db,
		"SELECT item_name FROM inventory ORDER BY item_name",
		nil,
		func(s repository.Scanner) (string, error) {
			var name string
			err := s.Scan(&name)
			return name, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory names: %w", err)
	}
	return names, nil
}

func (r *repo) Items(ctx context.Context) ([]Item, error) {
	items, err := repository.QueryMany(ctx, r.db,
		"SELECT item_name, stock FROM inventory ORDER BY item_name",
		nil,
		func(s repository.Scanner) (Item, error) {
			var it Item
			err := s.Scan(&it.Name, &it.Stock)
			return it, err
		},
	)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}
