package store_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"relentless-frontier/internal/store"
)

func newConnectedStore(t *testing.T) (*store.RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	s := store.NewRedisStore(store.Options{DialTimeout: time.Second})
	require.NoError(t, s.Connect(context.Background(), mr.Host(), port, ""))
	t.Cleanup(func() { _ = s.Disconnect() })
	return s, mr
}

func TestConnectFailureReturnsConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	port, _ := strconv.Atoi(mr.Port())
	host := mr.Host()
	mr.Close()

	s := store.NewRedisStore(store.Options{DialTimeout: 200 * time.Millisecond})
	err := s.Connect(context.Background(), host, port, "")
	if err == nil {
		t.Fatal("expected connect error, got nil")
	}
	var connErr *store.ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %T", err)
	}
	if connErr.Host != host || connErr.Port != port || connErr.Err == nil {
		t.Fatalf("unexpected connection error fields: %+v", connErr)
	}

	if _, _, err := s.GetScalar(context.Background(), "k"); !errors.Is(err, store.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected after failed connect, got %v", err)
	}
}

func TestConnectRejectsBadPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("secret")
	port, _ := strconv.Atoi(mr.Port())

	s := store.NewRedisStore(store.Options{})
	var connErr *store.ConnectionError
	require.ErrorAs(t, s.Connect(context.Background(), mr.Host(), port, "wrong"), &connErr)
	require.NoError(t, s.Connect(context.Background(), mr.Host(), port, "secret"))
	require.NoError(t, s.Disconnect())
}

func TestOperationsRequireConnection(t *testing.T) {
	ctx := context.Background()
	s := store.NewRedisStore(store.Options{})

	checks := map[string]error{}
	_, _, checks["get"] = s.GetScalar(ctx, "k")
	checks["set"] = s.SetScalar(ctx, "k", "v")
	_, checks["exists"] = s.Exists(ctx, "k")
	_, checks["incr"] = s.Increment(ctx, "k")
	_, _, checks["hget"] = s.GetHashField(ctx, "k", "f")
	checks["hset"] = s.SetHashField(ctx, "k", "f", "v")
	checks["hmset"] = s.SetHashFields(ctx, "k", map[string]string{"f": "v"})
	checks["zadd"] = s.AddToSortedSet(ctx, "z", "m", 1)
	_, checks["zrange"] = s.RangeByScore(ctx, "z")
	checks["watch"] = s.Watch(ctx, func(store.Tx) error { return nil }, "k")

	for op, err := range checks {
		if !errors.Is(err, store.ErrNotConnected) {
			t.Errorf("%s: expected ErrNotConnected, got %v", op, err)
		}
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	s := store.NewRedisStore(store.Options{})
	require.NoError(t, s.Disconnect())

	connected, _ := newConnectedStore(t)
	require.NoError(t, connected.Disconnect())
	require.NoError(t, connected.Disconnect())
	_, err := connected.Exists(context.Background(), "k")
	require.ErrorIs(t, err, store.ErrNotConnected)
}

func TestScalarAndExists(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)

	_, ok, err := s.GetScalar(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SetScalar(ctx, "counter", "0"))
	val, ok, err := s.GetScalar(ctx, "counter")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "0", val)

	exists, err := s.Exists(ctx, "counter")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestIncrementCreatesMissingKey(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)

	n, err := s.Increment(ctx, "fresh")
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestIncrementNonIntegerIsOperationError(t *testing.T) {
	ctx := context.Background()
	s, mr := newConnectedStore(t)
	require.NoError(t, mr.Set("counter", "not-a-number"))

	_, err := s.Increment(ctx, "counter")
	var opErr *store.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OperationError, got %T (%v)", err, err)
	}
	if opErr.Op != "incr" || opErr.Key != "counter" {
		t.Fatalf("unexpected operation error: %+v", opErr)
	}
}

func TestWrongTypeIsOperationError(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)
	require.NoError(t, s.SetScalar(ctx, "plain", "v"))

	_, _, err := s.GetHashField(ctx, "plain", "f")
	var opErr *store.OperationError
	require.ErrorAs(t, err, &opErr)
}

func TestHashFields(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)

	require.NoError(t, s.SetHashFields(ctx, "rec", map[string]string{"URL": "http://a.com", "timestamp": "100"}))
	require.NoError(t, s.SetHashField(ctx, "rec", "assigned_status", "unassigned"))

	val, ok, err := s.GetHashField(ctx, "rec", "URL")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "http://a.com", val)

	_, ok, err = s.GetHashField(ctx, "rec", "nope")
	require.NoError(t, err)
	require.False(t, ok)

	all, err := s.GetHashFields(ctx, "rec")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"URL": "http://a.com", "timestamp": "100", "assigned_status": "unassigned"}, all)
}

func TestSortedSetOrdering(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)

	require.NoError(t, s.AddToSortedSet(ctx, "z", "late", 300))
	require.NoError(t, s.AddToSortedSet(ctx, "z", "early", 100))
	require.NoError(t, s.AddToSortedSet(ctx, "z", "middle", 200))

	members, err := s.RangeByScore(ctx, "z")
	require.NoError(t, err)
	require.Equal(t, []string{"early", "middle", "late"}, members)

	n, err := s.SortedSetLen(ctx, "z")
	require.NoError(t, err)
	require.Equal(t, int64(3), n)

	score, ok, err := s.SortedSetScore(ctx, "z", "middle")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, float64(200), score)

	_, ok, err = s.SortedSetScore(ctx, "z", "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCountAndDeleteKeysByPrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)

	for i := 0; i < 250; i++ {
		require.NoError(t, s.SetHashField(ctx, "NODE_ENTRY:"+strconv.Itoa(i), "URL", "u"))
	}
	require.NoError(t, s.SetScalar(ctx, "other", "x"))

	n, err := s.CountKeys(ctx, "NODE_ENTRY:")
	require.NoError(t, err)
	require.Equal(t, int64(250), n)

	deleted, err := s.DeleteKeys(ctx, "NODE_ENTRY:")
	require.NoError(t, err)
	require.Equal(t, int64(250), deleted)

	n, err = s.CountKeys(ctx, "NODE_ENTRY:")
	require.NoError(t, err)
	require.Zero(t, n)

	exists, err := s.Exists(ctx, "other")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestWatchCommitApplies(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)
	require.NoError(t, s.SetHashField(ctx, "rec", "status", "open"))
	require.NoError(t, s.AddToSortedSet(ctx, "from", "rec", 5))

	err := s.Watch(ctx, func(tx store.Tx) error {
		status, ok, err := tx.GetHashField(ctx, "rec", "status")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "open", status)
		return tx.Commit(ctx, func(b store.Batch) {
			b.SetHashField("rec", "status", "closed")
			b.RemoveFromSortedSet("from", "rec")
			b.AddToSortedSet("to", "rec", 5)
		})
	}, "rec")
	require.NoError(t, err)

	status, _, _ := s.GetHashField(ctx, "rec", "status")
	require.Equal(t, "closed", status)
	from, _ := s.RangeByScore(ctx, "from")
	require.Empty(t, from)
	to, _ := s.RangeByScore(ctx, "to")
	require.Equal(t, []string{"rec"}, to)
}

func TestWatchListKeysAndResetBatch(t *testing.T) {
	ctx := context.Background()
	s, mr := newConnectedStore(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SetHashField(ctx, "NODE_ENTRY:"+strconv.Itoa(i), "URL", "u"))
	}
	require.NoError(t, s.AddToSortedSet(ctx, "queue", "NODE_ENTRY:0", 1))
	require.NoError(t, s.SetScalar(ctx, "counter", "3"))
	require.NoError(t, s.SetScalar(ctx, "other", "x"))

	err := s.Watch(ctx, func(tx store.Tx) error {
		keys, err := tx.ListKeys(ctx, "NODE_ENTRY:")
		require.NoError(t, err)
		require.Len(t, keys, 3)
		return tx.Commit(ctx, func(b store.Batch) {
			b.Delete("queue")
			b.Delete(keys...)
			b.Delete()
			b.SetScalar("counter", "0")
		})
	}, "counter", "queue")
	require.NoError(t, err)

	n, err := s.CountKeys(ctx, "NODE_ENTRY:")
	require.NoError(t, err)
	require.Zero(t, n)
	require.False(t, mr.Exists("queue"))
	val, _, err := s.GetScalar(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, "0", val)
	require.True(t, mr.Exists("other"))
}

func TestWatchConflictAbortsCommit(t *testing.T) {
	ctx := context.Background()
	s, mr := newConnectedStore(t)
	require.NoError(t, s.SetHashField(ctx, "rec", "status", "open"))

	err := s.Watch(ctx, func(tx store.Tx) error {
		// Another client changes the watched key before EXEC.
		mr.HSet("rec", "status", "taken")
		return tx.Commit(ctx, func(b store.Batch) {
			b.SetHashField("rec", "status", "closed")
			b.AddToSortedSet("to", "rec", 1)
		})
	}, "rec")
	if !errors.Is(err, store.ErrTxConflict) {
		t.Fatalf("expected ErrTxConflict, got %v", err)
	}

	status, _, _ := s.GetHashField(ctx, "rec", "status")
	require.Equal(t, "taken", status)
	to, _ := s.RangeByScore(ctx, "to")
	require.Empty(t, to)
}

func TestWatchPropagatesCallbackError(t *testing.T) {
	ctx := context.Background()
	s, _ := newConnectedStore(t)
	boom := errors.New("boom")

	err := s.Watch(ctx, func(store.Tx) error { return boom }, "rec")
	require.ErrorIs(t, err, boom)
	var opErr *store.OperationError
	require.ErrorAs(t, err, &opErr)
}
