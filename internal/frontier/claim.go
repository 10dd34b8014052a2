package frontier

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"relentless-frontier/internal/metrics"
	"relentless-frontier/internal/models"
	"relentless-frontier/internal/store"
)

// ClaimPolicy controls how often ClaimOldest re-reads the backlog.
//
// MaxScans is the number of snapshots one call may walk. With the default of
// 1 a call makes a single pass; higher values re-read the backlog after
// Backoff, but only when the previous pass lost at least one race. An empty
// backlog always returns immediately.
type ClaimPolicy struct {
	MaxScans int
	Backoff  time.Duration
}

// DefaultClaimPolicy is a single pass with no re-scan.
var DefaultClaimPolicy = ClaimPolicy{MaxScans: 1, Backoff: 200 * time.Millisecond}

type attempt int

const (
	attemptClaimed attempt = iota
	attemptConflict
	attemptTaken
	attemptMissing
)

// Claimer runs the optimistic claim protocol.
type Claimer struct {
	store   store.Store
	index   *Index
	policy  ClaimPolicy
	logger  *zap.Logger
	metrics *metrics.Frontier
}

func NewClaimer(st store.Store, index *Index, policy ClaimPolicy, logger *zap.Logger, m *metrics.Frontier) *Claimer {
	if policy.MaxScans < 1 {
		policy.MaxScans = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Claimer{store: st, index: index, policy: policy, logger: logger, metrics: m}
}

// ClaimOldest transitions the oldest unassigned entry to assigned on behalf
// of workerID. It returns ok=false when no entry could be claimed; that is
// not an error. A lost race on one candidate moves on to the next candidate
// and never retries the same key within a pass.
func (c *Claimer) ClaimOldest(ctx context.Context, workerID string) (models.DomainEntry, bool, error) {
	start := time.Now()
	defer func() { c.metrics.ObserveClaim(time.Since(start)) }()

	for scan := 1; ; scan++ {
		keys, err := c.index.OldestUnassigned(ctx)
		if err != nil {
			c.metrics.ClaimOutcome(metrics.OutcomeError)
			return models.DomainEntry{}, false, err
		}

		conflicts := 0
		for _, key := range keys {
			entry, res, err := c.tryClaim(ctx, key, workerID)
			if err != nil {
				c.metrics.ClaimOutcome(metrics.OutcomeError)
				return models.DomainEntry{}, false, err
			}
			switch res {
			case attemptClaimed:
				c.metrics.ClaimOutcome(metrics.OutcomeClaimed)
				c.logger.Debug("entry claimed",
					zap.String("entry", key),
					zap.String("url", entry.URL),
					zap.String("worker", workerID),
					zap.Int("scan", scan))
				return entry, true, nil
			case attemptConflict:
				conflicts++
				c.metrics.ClaimOutcome(metrics.OutcomeConflict)
				c.logger.Debug("lost claim race", zap.String("entry", key), zap.String("worker", workerID))
			case attemptTaken:
				c.metrics.ClaimOutcome(metrics.OutcomeSkipped)
			case attemptMissing:
				c.metrics.ClaimOutcome(metrics.OutcomeSkipped)
				c.logger.Warn("backlog member has no record", zap.String("entry", key))
			}
		}

		if conflicts == 0 || scan >= c.policy.MaxScans {
			c.metrics.ClaimOutcome(metrics.OutcomeEmpty)
			return models.DomainEntry{}, false, nil
		}
		if err := sleepCtx(ctx, c.policy.Backoff); err != nil {
			return models.DomainEntry{}, false, err
		}
	}
}

// tryClaim watches key, checks its status and commits the move to the
// assigned set. A change to key by anyone else between the watch and the
// commit aborts the commit with nothing applied.
func (c *Claimer) tryClaim(ctx context.Context, key, workerID string) (models.DomainEntry, attempt, error) {
	var (
		claimed models.DomainEntry
		res     attempt
	)
	err := c.store.Watch(ctx, func(tx store.Tx) error {
		fields, err := tx.GetHashFields(ctx, key)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			res = attemptMissing
			return nil
		}
		if models.EntryStatus(fields[FieldStatus]) != models.StatusUnassigned {
			res = attemptTaken
			return nil
		}
		entry, err := decodeEntry(key, fields)
		if err != nil {
			return err
		}

		err = tx.Commit(ctx, func(b store.Batch) {
			b.SetHashField(key, FieldStatus, string(models.StatusAssigned))
			b.SetHashField(key, FieldWorker, workerID)
			c.index.RemoveFromUnassigned(b, key)
			c.index.MoveToAssigned(b, key, entry.CreatedAt)
		})
		if err != nil {
			return err
		}
		entry.Status = models.StatusAssigned
		entry.AssignedWorker = workerID
		claimed = entry
		res = attemptClaimed
		return nil
	}, key)

	if errors.Is(err, store.ErrTxConflict) {
		return models.DomainEntry{}, attemptConflict, nil
	}
	if err != nil {
		return models.DomainEntry{}, 0, err
	}
	return claimed, res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
