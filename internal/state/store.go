// Package state is the keyed record store shared by every pipeline stage.
// Values are opaque JSON documents grouped by namespace.
package state

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("state: record not found")

// Store is satisfied by the Postgres, Redis and in-memory backends.
// Set replaces the whole value. Delete of an absent key succeeds.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	List(ctx context.Context, namespace string) ([][]byte, error)
}
