package main

import (
	"context"
	"sync"
	"time"

	kgo "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	rkafka "relentless-frontier/internal/kafka"
	"relentless-frontier/internal/metrics"
)

const flushTimeout = 5 * time.Second

// commitCoordinator buffers processed messages per partition and commits
// them in offset order, so a slow write never lets a later offset be
// committed ahead of it.
type commitCoordinator struct {
	reader     rkafka.MessageReader
	commitCh   <-chan kgo.Message
	nextOffset map[int]int64
	pending    map[int]map[int64]kgo.Message
	mu         sync.Mutex
	metrics    *metrics.GraphWriter
	logger     *zap.Logger
}

func newCommitCoordinator(reader rkafka.MessageReader, commitCh <-chan kgo.Message, m *metrics.GraphWriter, logger *zap.Logger) *commitCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &commitCoordinator{
		reader:     reader,
		commitCh:   commitCh,
		nextOffset: make(map[int]int64),
		pending:    make(map[int]map[int64]kgo.Message),
		metrics:    m,
		logger:     logger,
	}
}

// run receives processed messages until commitCh is closed, then flushes
// what is left. Commits stop once ctx is done but messages are still
// accepted, so senders never block on shutdown.
func (c *commitCoordinator) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for msg := range c.commitCh {
		c.enqueue(msg)
		if ctx.Err() == nil {
			c.drain(ctx, msg.Partition)
		}
	}
	c.flush()
}

// expect records the fetch order. The first offset fetched on a partition
// becomes the partition's next expected offset; call it before processing
// starts so a fast later message cannot claim that slot.
func (c *commitCoordinator) expect(msg kgo.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.nextOffset[msg.Partition]; !exists {
		c.nextOffset[msg.Partition] = msg.Offset
	}
}

// enqueue buffers a processed message.
func (c *commitCoordinator) enqueue(msg kgo.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := msg.Partition
	if c.pending[p] == nil {
		c.pending[p] = make(map[int64]kgo.Message)
	}
	c.pending[p][msg.Offset] = msg
	c.metrics.AddPending(1)
	if _, exists := c.nextOffset[p]; !exists {
		c.nextOffset[p] = msg.Offset
	}
}

// commitNext commits the next contiguous message of partition. Caller must
// hold c.mu; the lock is released around the commit call. A failed commit
// leaves the message buffered for the next drain.
func (c *commitCoordinator) commitNext(ctx context.Context, partition int) bool {
	next := c.nextOffset[partition]
	m, ok := c.pending[partition][next]
	if !ok {
		return false
	}
	delete(c.pending[partition], next)
	c.metrics.AddPending(-1)
	c.mu.Unlock()
	start := time.Now()
	err := c.reader.CommitMessages(ctx, m)
	c.metrics.ObserveCommit(time.Since(start))
	c.mu.Lock()
	if err != nil {
		c.metrics.CommitError()
		c.logger.Warn("commit error",
			zap.Int("partition", partition),
			zap.Int64("offset", next),
			zap.Error(err))
		c.pending[partition][next] = m
		c.metrics.AddPending(1)
		return false
	}
	c.nextOffset[partition] = next + 1
	return true
}

func (c *commitCoordinator) drain(ctx context.Context, partition int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.commitNext(ctx, partition) {
	}
}

// flush commits remaining contiguous messages on shutdown. It uses its own
// deadline since the run context is usually already cancelled.
func (c *commitCoordinator) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	for p := range c.pending {
		for c.commitNext(ctx, p) {
		}
	}
}
