package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"relentless-frontier/internal/models"
	"relentless-frontier/internal/store"
	"relentless-frontier/mocks"
)

func newTestWorker(t *testing.T) (*worker, *mocks.MockFrontier, *mocks.MockClaimPublisher) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := mocks.NewMockFrontier(ctrl)
	pub := mocks.NewMockClaimPublisher(ctrl)
	w := newWorker(f, pub, "w1", 5*time.Millisecond, time.Second, zap.NewNop(), newWorkerMetrics(prometheus.NewRegistry()))
	w.now = func() time.Time { return time.Unix(1700000100, 0) }
	return w, f, pub
}

func assignedEntry() models.DomainEntry {
	return models.DomainEntry{
		ID:             1,
		Key:            "NODE_ENTRY:1",
		URL:            "https://a.com",
		CreatedAt:      1700000000,
		Status:         models.StatusAssigned,
		AssignedWorker: "w1",
	}
}

func TestStepPublishesClaim(t *testing.T) {
	w, f, pub := newTestWorker(t)
	f.EXPECT().ClaimOldest(gomock.Any(), "w1").Return(assignedEntry(), true, nil)
	pub.EXPECT().PublishClaim(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event models.ClaimEvent) error {
			if event.EntryKey != "NODE_ENTRY:1" || event.EntryID != 1 {
				t.Fatalf("unexpected entry in event: %+v", event)
			}
			if event.WorkerID != "w1" || event.URL != "https://a.com" {
				t.Fatalf("unexpected event: %+v", event)
			}
			if event.CreatedAt != 1700000000 || !event.ClaimedAt.Equal(time.Unix(1700000100, 0)) {
				t.Fatalf("unexpected timestamps: %+v", event)
			}
			return nil
		},
	)

	claimed, err := w.step(context.Background())
	if err != nil {
		t.Fatalf("step error: %v", err)
	}
	if !claimed {
		t.Fatal("expected a claim")
	}
	if got := testutil.ToFloat64(w.metrics.claims); got != 1 {
		t.Fatalf("expected 1 claim, got %v", got)
	}
	if got := testutil.ToFloat64(w.metrics.events); got != 1 {
		t.Fatalf("expected 1 published event, got %v", got)
	}
}

func TestStepEmptyBacklog(t *testing.T) {
	w, f, pub := newTestWorker(t)
	f.EXPECT().ClaimOldest(gomock.Any(), "w1").Return(models.DomainEntry{}, false, nil)
	pub.EXPECT().PublishClaim(gomock.Any(), gomock.Any()).Times(0)

	claimed, err := w.step(context.Background())
	if err != nil || claimed {
		t.Fatalf("expected no claim and no error, got %v %v", claimed, err)
	}
}

func TestStepClaimError(t *testing.T) {
	w, f, pub := newTestWorker(t)
	f.EXPECT().ClaimOldest(gomock.Any(), "w1").Return(models.DomainEntry{}, false, store.ErrNotConnected)
	pub.EXPECT().PublishClaim(gomock.Any(), gomock.Any()).Times(0)

	claimed, err := w.step(context.Background())
	if claimed {
		t.Fatal("expected no claim")
	}
	if !errors.Is(err, store.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestStepPublishError(t *testing.T) {
	w, f, pub := newTestWorker(t)
	f.EXPECT().ClaimOldest(gomock.Any(), "w1").Return(assignedEntry(), true, nil)
	pub.EXPECT().PublishClaim(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	claimed, err := w.step(context.Background())
	if !claimed {
		t.Fatal("claim should still be reported")
	}
	if err == nil {
		t.Fatal("expected publish error")
	}
	if got := testutil.ToFloat64(w.metrics.publishErrors); got != 1 {
		t.Fatalf("expected 1 publish error, got %v", got)
	}
}

func TestRunDrainsThenPolls(t *testing.T) {
	w, f, pub := newTestWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	gomock.InOrder(
		f.EXPECT().ClaimOldest(gomock.Any(), "w1").Return(assignedEntry(), true, nil),
		f.EXPECT().ClaimOldest(gomock.Any(), "w1").Return(assignedEntry(), true, nil),
		f.EXPECT().ClaimOldest(gomock.Any(), "w1").DoAndReturn(
			func(context.Context, string) (models.DomainEntry, bool, error) {
				atomic.AddInt32(&calls, 1)
				cancel()
				return models.DomainEntry{}, false, nil
			},
		),
	)
	pub.EXPECT().PublishClaim(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected the empty poll to run once, got %d", calls)
	}
	if got := testutil.ToFloat64(w.metrics.loops); got != 0 {
		t.Fatalf("expected loop gauge back at 0, got %v", got)
	}
}

func TestRunKeepsGoingAfterErrors(t *testing.T) {
	w, f, pub := newTestWorker(t)
	pub.EXPECT().PublishClaim(gomock.Any(), gomock.Any()).Times(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	f.EXPECT().ClaimOldest(gomock.Any(), "w1").DoAndReturn(
		func(context.Context, string) (models.DomainEntry, bool, error) {
			if atomic.AddInt32(&calls, 1) == 3 {
				cancel()
			}
			return models.DomainEntry{}, false, &store.OperationError{Op: "zrangebyscore", Err: errors.New("timeout")}
		},
	).MinTimes(3)

	done := make(chan struct{})
	go func() {
		w.run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestNewWorkerDefaults(t *testing.T) {
	w := newWorker(nil, nil, "w", 0, 0, nil, nil)
	if w.pollInterval != time.Second || w.publishTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %s %s", w.pollInterval, w.publishTimeout)
	}
	// nil metrics must be safe
	w.metrics.claimed()
	w.metrics.loopStarted()
}
