package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"relentless-frontier/common"
	"relentless-frontier/internal/config"
	"relentless-frontier/internal/frontier"
	"relentless-frontier/internal/kafka"
	"relentless-frontier/internal/logging"
	"relentless-frontier/internal/models"
)

type worker struct {
	frontier       frontier.Frontier
	publisher      kafka.ClaimPublisher
	id             string
	pollInterval   time.Duration
	publishTimeout time.Duration
	now            func() time.Time
	logger         *zap.Logger
	metrics        *workerMetrics
}

func newWorker(
	f frontier.Frontier,
	publisher kafka.ClaimPublisher,
	id string,
	pollInterval time.Duration,
	publishTimeout time.Duration,
	logger *zap.Logger,
	m *workerMetrics,
) *worker {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if publishTimeout <= 0 {
		publishTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &worker{
		frontier:       f,
		publisher:      publisher,
		id:             id,
		pollInterval:   pollInterval,
		publishTimeout: publishTimeout,
		now:            time.Now,
		logger:         logger,
		metrics:        m,
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logger := logging.Must(cfg.Log.Development).Named("worker").With(zap.String("worker_id", cfg.Worker.ID))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, st, err := common.OpenFrontier(ctx, cfg, logger, reg)
	if err != nil {
		logger.Fatal("connect store", zap.Error(err))
	}
	defer func() {
		if err := st.Disconnect(); err != nil {
			logger.Warn("failed to disconnect store", zap.Error(err))
		}
	}()
	if err := svc.Initialize(ctx, false); err != nil {
		logger.Fatal("initialize frontier", zap.Error(err))
	}

	prod := kafka.NewProducer(cfg.Kafka.Broker, cfg.Kafka.ClaimsTopic)
	defer func() {
		if err := prod.Close(); err != nil {
			logger.Warn("failed to close producer", zap.Error(err))
		}
	}()

	if cfg.Metrics.Addr != "" {
		common.StartMetricsServer(ctx, cfg.Metrics.Addr, reg, logger)
	}

	w := newWorker(svc, prod, cfg.Worker.ID, cfg.Worker.PollInterval, cfg.Worker.PublishTimeout, logger, newWorkerMetrics(reg))
	logger.Info("worker claiming",
		zap.String("topic", cfg.Kafka.ClaimsTopic),
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.Duration("poll_interval", cfg.Worker.PollInterval))

	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.run(ctx)
		}()
	}
	wg.Wait()
	logger.Info("worker stopped")
}

// run claims entries until ctx is done. It keeps claiming while the backlog
// yields entries and waits pollInterval once it comes back empty or fails.
func (w *worker) run(ctx context.Context) {
	w.metrics.loopStarted()
	defer w.metrics.loopStopped()
	for {
		claimed, err := w.step(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			w.logger.Error("claim step failed", zap.Error(err))
		}
		if claimed && err == nil {
			continue
		}
		if !sleepCtx(ctx, w.pollInterval) {
			return
		}
	}
}

// step claims at most one entry and publishes its claim event. The claim is
// not rolled back when publishing fails; the entry stays assigned to w.id.
func (w *worker) step(ctx context.Context) (bool, error) {
	entry, ok, err := w.frontier.ClaimOldest(ctx, w.id)
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	if !ok {
		return false, nil
	}
	w.metrics.claimed()

	event := models.NewClaimEvent(entry, w.now())
	pubCtx, cancel := context.WithTimeout(ctx, w.publishTimeout)
	defer cancel()
	if err := w.publisher.PublishClaim(pubCtx, event); err != nil {
		w.metrics.publishFailed()
		return true, fmt.Errorf("publish claim %s: %w", entry.Key, err)
	}
	w.metrics.published()

	w.logger.Info("entry claimed",
		zap.String("entry", entry.Key),
		zap.String("url", entry.URL),
		zap.Int64("created_at", entry.CreatedAt))
	return true, nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
