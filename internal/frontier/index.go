package frontier

import (
	"context"

	"relentless-frontier/internal/store"
)

// Index keeps entry keys in two sorted sets scored by creation time: the
// unassigned backlog and the assigned audit set.
type Index struct {
	store      store.Store
	unassigned string
	assigned   string
}

func NewIndex(st store.Store) *Index {
	return &Index{store: st, unassigned: KeyUnassigned, assigned: KeyAssigned}
}

// PublishUnassigned makes key visible to claimers.
func (i *Index) PublishUnassigned(ctx context.Context, key string, createdAt int64) error {
	return i.store.AddToSortedSet(ctx, i.unassigned, key, float64(createdAt))
}

// OldestUnassigned returns a fresh snapshot of the backlog, oldest first.
// Entries with equal timestamps keep whatever order the store returns.
func (i *Index) OldestUnassigned(ctx context.Context) ([]string, error) {
	return i.store.RangeByScore(ctx, i.unassigned)
}

// MoveToAssigned queues the insert into the assigned set. Only valid inside a commit.
func (i *Index) MoveToAssigned(b store.Batch, key string, createdAt int64) {
	b.AddToSortedSet(i.assigned, key, float64(createdAt))
}

// RemoveFromUnassigned queues the removal from the backlog. Only valid inside a commit.
func (i *Index) RemoveFromUnassigned(b store.Batch, key string) {
	b.RemoveFromSortedSet(i.unassigned, key)
}

// Clear queues dropping every member of set. Only valid inside a commit.
func (i *Index) Clear(b store.Batch, set string) {
	b.Delete(set)
}

// Counts returns the sizes of the unassigned and assigned sets.
func (i *Index) Counts(ctx context.Context) (unassigned, assigned int64, err error) {
	if unassigned, err = i.store.SortedSetLen(ctx, i.unassigned); err != nil {
		return 0, 0, err
	}
	if assigned, err = i.store.SortedSetLen(ctx, i.assigned); err != nil {
		return 0, 0, err
	}
	return unassigned, assigned, nil
}
