package frontier

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"relentless-frontier/internal/metrics"
	"relentless-frontier/internal/models"
	"relentless-frontier/internal/store"
)

// Stats is a point-in-time view of the frontier.
type Stats struct {
	LastID     uint64 `json:"last_id"`
	Unassigned int64  `json:"unassigned"`
	Assigned   int64  `json:"assigned"`
}

// Service wires the frontier components around one Store.
type Service struct {
	store     store.Store
	ids       *IDAllocator
	entries   *EntryStore
	index     *Index
	claimer   *Claimer
	bootstrap *Bootstrapper
	logger    *zap.Logger
	metrics   *metrics.Frontier
}

type options struct {
	logger  *zap.Logger
	now     func() time.Time
	policy  ClaimPolicy
	metrics *metrics.Frontier
}

// Option configures a Service.
type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides the clock used for entry creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithClaimPolicy(p ClaimPolicy) Option {
	return func(o *options) { o.policy = p }
}

func WithMetrics(m *metrics.Frontier) Option {
	return func(o *options) { o.metrics = m }
}

// New builds a Service. st must already be connected.
func New(st store.Store, opts ...Option) *Service {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
		policy: DefaultClaimPolicy,
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.Named("frontier")

	ids := NewIDAllocator(st)
	index := NewIndex(st)
	return &Service{
		store:     st,
		ids:       ids,
		entries:   NewEntryStore(st, ids, o.now),
		index:     index,
		claimer:   NewClaimer(st, index, o.policy, logger.Named("claim"), o.metrics),
		bootstrap: NewBootstrapper(st, index, logger.Named("bootstrap")),
		logger:    logger,
		metrics:   o.metrics,
	}
}

func (s *Service) Initialize(ctx context.Context, force bool) error {
	return s.bootstrap.Initialize(ctx, force)
}

// AddEntry creates a record for rawURL and publishes it to the backlog.
// If the publish fails the record exists but is never claimable.
func (s *Service) AddEntry(ctx context.Context, rawURL string) (models.DomainEntry, error) {
	entry, err := s.entries.Create(ctx, rawURL)
	if err != nil {
		return models.DomainEntry{}, err
	}
	if err := s.index.PublishUnassigned(ctx, entry.Key, entry.CreatedAt); err != nil {
		s.logger.Error("entry created but not published",
			zap.String("entry", entry.Key),
			zap.Error(err))
		return models.DomainEntry{}, err
	}
	s.metrics.EntryCreated()
	s.logger.Debug("entry added", zap.String("entry", entry.Key), zap.String("url", entry.URL))
	return entry, nil
}

func (s *Service) ClaimOldest(ctx context.Context, workerID string) (models.DomainEntry, bool, error) {
	return s.claimer.ClaimOldest(ctx, workerID)
}

// Get looks an entry up by its key or bare id.
func (s *Service) Get(ctx context.Context, keyOrID string) (models.DomainEntry, bool, error) {
	id, err := ParseEntryKey(keyOrID)
	if err != nil {
		return models.DomainEntry{}, false, err
	}
	return s.entries.Get(ctx, EntryKey(id))
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	unassigned, assigned, err := s.index.Counts(ctx)
	if err != nil {
		return Stats{}, err
	}
	var last uint64
	raw, ok, err := s.store.GetScalar(ctx, KeyEntryCounter)
	if err != nil {
		return Stats{}, err
	}
	if ok {
		if last, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return Stats{}, &store.OperationError{Op: "decode", Key: KeyEntryCounter, Err: err}
		}
	}
	s.metrics.SetBacklog(unassigned, assigned)
	return Stats{LastID: last, Unassigned: unassigned, Assigned: assigned}, nil
}

func (s *Service) Entries() *EntryStore { return s.entries }
func (s *Service) Index() *Index         { return s.index }
func (s *Service) IDs() *IDAllocator     { return s.ids }

// Frontier is the surface the api, worker and CLI depend on.
type Frontier interface {
	Initialize(ctx context.Context, force bool) error
	AddEntry(ctx context.Context, rawURL string) (models.DomainEntry, error)
	ClaimOldest(ctx context.Context, workerID string) (models.DomainEntry, bool, error)
	Get(ctx context.Context, keyOrID string) (models.DomainEntry, bool, error)
	Stats(ctx context.Context) (Stats, error)
}

var _ Frontier = (*Service)(nil)
