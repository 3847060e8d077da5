// Package persistence keeps the durable copy of the client session: one
// versioned state document plus a separately stored auth token.
package persistence

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("key not found")

const (
	StateKey = "app_state"
	TokenKey = "token"
)

// Backend is a durable key/value store. Put must replace a value atomically:
// a reader sees either the previous value or the new one, never a mix.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
