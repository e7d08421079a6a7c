// Package store persists session credentials between runs of the client
package store

import (
	"context"
	"io"
)

// Keys the session manager reads and writes
const (
	KeyAccessToken  = "token"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
)

// Store is a small string key/value store.
// Get returns errors.ErrNotFound for absent keys and Remove of an absent key succeeds.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Close releases s if the adapter holds a connection
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
