package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a named object does not exist
var ErrNotFound = errors.New("object not found")

// ErrCorrupt is returned when a stored document cannot be decoded
var ErrCorrupt = errors.New("stored document is corrupt")

// ObjectStore defines the contract for named blob storage operations.
// Store must replace an object atomically from a reader's perspective.
type ObjectStore interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// UpdateNotifier is told about every successful save
type UpdateNotifier interface {
	NotifyUpdate(ctx context.Context, lastUpdated string) error
}
