package frontier

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"relentless-frontier/internal/store"
)

// Bootstrapper prepares the shared store for use.
type Bootstrapper struct {
	store  store.Store
	index  *Index
	logger *zap.Logger
}

func NewBootstrapper(st store.Store, index *Index, logger *zap.Logger) *Bootstrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bootstrapper{store: st, index: index, logger: logger}
}

// Initialize creates the id counter if it is missing. Without force an
// existing store is only inspected, never written.
//
// force wipes everything in one transaction: both sets, every entry record
// and the counter. Never use it against a store holding live work.
func (b *Bootstrapper) Initialize(ctx context.Context, force bool) error {
	log := b.logger.With(zap.Bool("force", force))
	log.Info("initialising frontier store")

	counterExists, err := b.store.Exists(ctx, KeyEntryCounter)
	if err != nil {
		return err
	}
	if counterExists && !force {
		log.Info("entry counter already exists", zap.String("key", KeyEntryCounter))
	}

	entries, err := b.store.CountKeys(ctx, EntryKeyPrefix)
	if err != nil {
		return err
	}
	log.Info("domain entries found", zap.Int64("count", entries))
	if !counterExists && !force && entries > 0 {
		log.Warn("entry counter missing while entries exist; new ids may overwrite records")
	}

	unassigned, assigned, err := b.index.Counts(ctx)
	if err != nil {
		return err
	}
	log.Info("frontier sets found",
		zap.Int64("unassigned", unassigned),
		zap.Int64("assigned", assigned))

	if force {
		return b.reset(ctx, log)
	}

	if !counterExists {
		log.Info("setting entry counter to 0", zap.String("key", KeyEntryCounter))
		if err := b.store.SetScalar(ctx, KeyEntryCounter, "0"); err != nil {
			return err
		}
	}
	return nil
}

// reset clears both sets, deletes every entry record and zeroes the counter
// in a single commit. The counter and both sets are watched, so an entry
// added while the records are listed aborts the reset with nothing applied.
func (b *Bootstrapper) reset(ctx context.Context, log *zap.Logger) error {
	var deleted int
	err := b.store.Watch(ctx, func(tx store.Tx) error {
		keys, err := tx.ListKeys(ctx, EntryKeyPrefix)
		if err != nil {
			return err
		}
		deleted = len(keys)
		return tx.Commit(ctx, func(batch store.Batch) {
			b.index.Clear(batch, KeyUnassigned)
			b.index.Clear(batch, KeyAssigned)
			batch.Delete(keys...)
			batch.SetScalar(KeyEntryCounter, "0")
		})
	}, KeyEntryCounter, KeyUnassigned, KeyAssigned)
	if err != nil {
		log.Error("force reset aborted, store left unchanged", zap.Error(err))
		return fmt.Errorf("force reset: %w", err)
	}
	log.Warn("store reset",
		zap.Int("deleted_entries", deleted),
		zap.String("counter", KeyEntryCounter))
	return nil
}
