package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	kgo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"relentless-frontier/common"
	"relentless-frontier/internal/config"
	"relentless-frontier/internal/graph"
	rkafka "relentless-frontier/internal/kafka"
	"relentless-frontier/internal/logging"
	"relentless-frontier/internal/metrics"
	"relentless-frontier/internal/models"
)

const maxRetryDelay = 2 * time.Second

type claimWriter interface {
	WriteClaim(ctx context.Context, event models.ClaimEvent) error
}

// consumer reads claim events and writes them to the graph with bounded
// parallelism. A processed message is handed to the commit coordinator
// whether or not the write succeeded, unless the write was cut short by
// shutdown; that offset stays uncommitted and is redelivered.
type consumer struct {
	reader    rkafka.MessageReader
	writer    claimWriter
	commits   *commitCoordinator
	commitCh  chan<- kgo.Message
	sem       chan struct{}
	wg        sync.WaitGroup
	retryMax  int
	retryBase time.Duration
	metrics   *metrics.GraphWriter
	logger    *zap.Logger
}

func newConsumer(
	reader rkafka.MessageReader,
	writer claimWriter,
	commits *commitCoordinator,
	commitCh chan<- kgo.Message,
	concurrency int,
	retryMax int,
	retryBase time.Duration,
	m *metrics.GraphWriter,
	logger *zap.Logger,
) *consumer {
	if concurrency < 1 {
		concurrency = 1
	}
	if retryMax < 0 {
		retryMax = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &consumer{
		reader:    reader,
		writer:    writer,
		commits:   commits,
		commitCh:  commitCh,
		sem:       make(chan struct{}, concurrency),
		retryMax:  retryMax,
		retryBase: retryBase,
		metrics:   m,
		logger:    logger,
	}
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}
	logger := logging.Must(cfg.Log.Development).Named("graph-writer")
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	driver, err := graph.NewDriver(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password)
	if err != nil {
		logger.Fatal("neo4j driver error", zap.Error(err))
	}
	defer func() {
		if err := driver.Close(context.Background()); err != nil {
			logger.Warn("neo4j close error", zap.Error(err))
		}
	}()

	reader := rkafka.NewReader(cfg.Kafka.Broker, cfg.Kafka.ClaimsTopic, cfg.Kafka.ClaimsGroup)
	defer func() {
		if err := reader.Close(); err != nil {
			logger.Warn("claims reader close error", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewGraphWriter(reg)
	if cfg.Metrics.Addr != "" {
		common.StartMetricsServer(ctx, cfg.Metrics.Addr, reg, logger)
	}

	commitCh := make(chan kgo.Message, cfg.Graph.Concurrency*2)
	coordinator := newCommitCoordinator(reader, commitCh, m, logger)
	var coordWg sync.WaitGroup
	coordWg.Add(1)
	go coordinator.run(ctx, &coordWg)

	c := newConsumer(
		reader,
		graph.NewAssignmentWriter(driver, logger),
		coordinator,
		commitCh,
		cfg.Graph.Concurrency,
		cfg.Graph.RetryMax,
		cfg.Graph.RetryBase,
		m,
		logger,
	)
	logger.Info("graph writer consuming",
		zap.String("topic", cfg.Kafka.ClaimsTopic),
		zap.String("group", cfg.Kafka.ClaimsGroup),
		zap.Int("concurrency", cfg.Graph.Concurrency))
	c.run(ctx)
	c.wg.Wait()
	close(commitCh)
	coordWg.Wait()
}

func (c *consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("claims fetch error", zap.Error(err))
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := c.dispatch(ctx, msg); err != nil {
			return
		}
	}
}

// dispatch decodes msg synchronously and hands the write to a goroutine.
// It only fails when ctx is done while waiting for a free slot.
func (c *consumer) dispatch(ctx context.Context, msg kgo.Message) error {
	c.commits.expect(msg)
	event, err := rkafka.DecodeClaim(msg.Value)
	if err != nil {
		c.metrics.Event(metrics.ResultInvalid)
		c.logger.Warn("invalid claim payload", zap.Int64("offset", msg.Offset), zap.Error(err))
		c.commitCh <- msg
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.sem <- struct{}{}:
	}
	c.wg.Add(1)
	go c.process(ctx, msg, event)
	return nil
}

func (c *consumer) process(ctx context.Context, msg kgo.Message, event models.ClaimEvent) {
	defer func() {
		<-c.sem
		c.wg.Done()
	}()

	if err := c.writeWithRetry(ctx, event); err != nil {
		if ctx.Err() != nil {
			c.logger.Info("claim write interrupted, offset left uncommitted",
				zap.String("entry", event.EntryKey),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset))
			return
		}
		result := metrics.ResultFailed
		if errors.Is(err, graph.ErrIncompleteEvent) {
			result = metrics.ResultInvalid
		}
		c.metrics.Event(result)
		c.logger.Error("claim write failed",
			zap.String("entry", event.EntryKey),
			zap.String("worker_id", event.WorkerID),
			zap.Error(err))
		c.commitCh <- msg
		return
	}
	c.metrics.Event(metrics.ResultWritten)
	c.logger.Debug("claim written", zap.String("entry", event.EntryKey), zap.String("worker_id", event.WorkerID))
	c.commitCh <- msg
}

func (c *consumer) writeWithRetry(ctx context.Context, event models.ClaimEvent) error {
	delay := c.retryBase
	var err error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if err = c.writer.WriteClaim(ctx, event); err == nil {
			return nil
		}
		if errors.Is(err, graph.ErrIncompleteEvent) || attempt == c.retryMax {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
	}
	return fmt.Errorf("write claim %s: %w", event.EntryKey, err)
}
