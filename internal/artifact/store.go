// Package artifact provides opaque key-addressed byte storage for
// inputs staged for the provider and outputs fetched from it.
package artifact

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound is returned when no artifact exists under a key.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidKey is returned for keys that escape the flat
	// namespace, e.g. via path traversal.
	ErrInvalidKey = errors.New("invalid artifact key")
)

// Store is opaque key-addressed byte storage. Keys are flat strings;
// overwriting an existing key is permitted so re-processing the same
// task produces the same key.
type Store interface {
	// Write persists data under key, overwriting any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// Read returns the bytes stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)
}
