// Package storage persists session fields as string key/value pairs.
//
// The session store writes one key per field and removes the key instead of
// writing an empty value, so every backend only needs Get, Set and Remove.
package storage

import (
	"context"
	"io"
)

// Storage is a durable string key/value store.
type Storage interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends holding connections or files.
type Closer interface {
	Storage
	io.Closer
}
