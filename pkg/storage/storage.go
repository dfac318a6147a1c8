// Package storage provides a small key/value store for durable client-side
// preferences, with local file and in-memory implementations.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Store defines the interface for preference storage operations
type Store interface {
	// Get returns the raw value stored under key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}

// StoreType identifies the storage backend
type StoreType string

const (
	StoreTypeLocal  StoreType = "local"
	StoreTypeMemory StoreType = "memory"
)

// Config holds storage configuration
type Config struct {
	Type      StoreType
	LocalPath string
}

// New creates a new Store implementation based on configuration
func New(cfg *Config) (Store, error) {
	switch cfg.Type {
	case StoreTypeMemory:
		return NewMemoryStore(), nil
	case StoreTypeLocal:
		fallthrough
	default:
		return NewLocalStore(cfg.LocalPath)
	}
}
