package frontier

import (
	"context"
	"fmt"

	"relentless-frontier/internal/store"
)

// IDAllocator issues entry ids from the shared counter. INCR is atomic on
// the server, so ids never repeat across workers as long as the counter is
// only reset together with a full purge of entries.
type IDAllocator struct {
	store store.Store
	key   string
}

func NewIDAllocator(st store.Store) *IDAllocator {
	return &IDAllocator{store: st, key: KeyEntryCounter}
}

// Next increments the counter and returns the new value.
func (a *IDAllocator) Next(ctx context.Context) (uint64, error) {
	n, err := a.store.Increment(ctx, a.key)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, &store.OperationError{Op: "incr", Key: a.key, Err: fmt.Errorf("counter returned non-positive id %d", n)}
	}
	return uint64(n), nil
}
