// Package store is the narrow capability surface the frontier needs from the
// shared key-value store. The frontier only ever talks to Store; the Redis
// implementation lives in redis_store.go.
package store

import "context"

// Store is a connection-scoped handle to the shared key-value store.
type Store interface {
	Connect(ctx context.Context, host string, port int, password string) error
	Disconnect() error

	GetScalar(ctx context.Context, key string) (string, bool, error)
	SetScalar(ctx context.Context, key, value string) error
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
	CountKeys(ctx context.Context, prefix string) (int64, error)
	DeleteKeys(ctx context.Context, prefix string) (int64, error)

	GetHashField(ctx context.Context, key, field string) (string, bool, error)
	GetHashFields(ctx context.Context, key string) (map[string]string, error)
	SetHashField(ctx context.Context, key, field, value string) error
	SetHashFields(ctx context.Context, key string, fields map[string]string) error

	AddToSortedSet(ctx context.Context, set, member string, score float64) error
	RangeByScore(ctx context.Context, set string) ([]string, error)
	SortedSetLen(ctx context.Context, set string) (int64, error)
	SortedSetScore(ctx context.Context, set, member string) (float64, bool, error)

	// Watch registers a watch on keys and runs fn. Writes queued through
	// Tx.Commit are applied only if none of the watched keys changed since
	// registration; otherwise Commit returns ErrTxConflict and nothing is applied.
	Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error
}

// Tx is the read side of a watched transaction.
type Tx interface {
	GetHashField(ctx context.Context, key, field string) (string, bool, error)
	GetHashFields(ctx context.Context, key string) (map[string]string, error)
	// ListKeys returns every key starting with prefix, read on the watching
	// connection.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Commit queues the writes issued by build and executes them atomically.
	Commit(ctx context.Context, build func(b Batch)) error
}

// Batch collects writes for a single atomic commit.
type Batch interface {
	SetHashField(key, field, value string)
	AddToSortedSet(set, member string, score float64)
	RemoveFromSortedSet(set, member string)
	SetScalar(key, value string)
	Delete(keys ...string)
}
