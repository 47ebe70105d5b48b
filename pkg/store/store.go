// Package store keeps keyed state values behind a backend-neutral interface.
// Values are encoded as JSON, so every backend hands out independent copies.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrNotFound indicates no value is stored under the requested id.
	ErrNotFound = errors.New("state not found")
	// ErrConflict indicates an optimistic update lost to a concurrent writer
	// more times than the backend is willing to retry.
	ErrConflict = errors.New("state update conflict")
	// ErrInvalidTable indicates a table name that is not a plain identifier.
	ErrInvalidTable = errors.New("invalid table name")
)

// Store reads and writes values of type T by id.
type Store[T any] interface {
	// Get returns the value stored under id or ErrNotFound.
	Get(ctx context.Context, id string) (T, error)
	// Put stores v under id, replacing any existing value.
	Put(ctx context.Context, id string, v T) error
	// Update applies fn to the current value and stores the result
	// atomically with respect to other Update calls on the same id.
	// If fn returns an error nothing is written and the error is returned.
	Update(ctx context.Context, id string, fn func(T) (T, error)) (T, error)
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func validateTable(name string) error {
	if !identifier.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return nil
}

func encode[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

func decode[T any](data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode state: %w", err)
	}
	return v, nil
}
