package store

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 100

// Options tunes the underlying Redis client.
type Options struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RedisStore implements Store on top of go-redis.
type RedisStore struct {
	opts Options

	mu     sync.RWMutex
	client *redis.Client
	host   string
	port   int
}

// NewRedisStore returns an unconnected store. Call Connect before use.
func NewRedisStore(opts Options) *RedisStore {
	return &RedisStore{opts: opts}
}

// Connect dials host:port and pings the server. On failure the store stays
// unconnected and a *ConnectionError is returned.
func (s *RedisStore) Connect(ctx context.Context, host string, port int, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Password:     password,
		DialTimeout:  s.opts.DialTimeout,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return &ConnectionError{Host: host, Port: port, Err: err}
	}

	s.mu.Lock()
	old := s.client
	s.client = client
	s.host = host
	s.port = port
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}
	return nil
}

// Disconnect closes the client. Safe to call on an unconnected store.
func (s *RedisStore) Disconnect() error {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.Close()
}

// Addr returns the host and port of the current connection.
func (s *RedisStore) Addr() (string, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host, s.port
}

func (s *RedisStore) conn() (*redis.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, ErrNotConnected
	}
	return s.client, nil
}

func (s *RedisStore) GetScalar(ctx context.Context, key string) (string, bool, error) {
	client, err := s.conn()
	if err != nil {
		return "", false, err
	}
	val, err := client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, opError("get", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) SetScalar(ctx context.Context, key, value string) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	return opError("set", key, client.Set(ctx, key, value, 0).Err())
}

func (s *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	client, err := s.conn()
	if err != nil {
		return false, err
	}
	n, err := client.Exists(ctx, key).Result()
	if err != nil {
		return false, opError("exists", key, err)
	}
	return n > 0, nil
}

// Increment runs INCR, which treats a missing key as 0 and rejects values
// that are not integers.
func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	client, err := s.conn()
	if err != nil {
		return 0, err
	}
	n, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, opError("incr", key, err)
	}
	return n, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	client, err := s.conn()
	if err != nil {
		return err
	}
	return opError("del", "", client.Del(ctx, keys...).Err())
}

// CountKeys counts keys starting with prefix using SCAN.
func (s *RedisStore) CountKeys(ctx context.Context, prefix string) (int64, error) {
	client, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int64
	iter := client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, opError("scan", prefix, err)
	}
	return n, nil
}

// DeleteKeys removes every key starting with prefix and returns how many were deleted.
func (s *RedisStore) DeleteKeys(ctx context.Context, prefix string) (int64, error) {
	client, err := s.conn()
	if err != nil {
		return 0, err
	}
	var (
		deleted int64
		batch   []string
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := client.Del(ctx, batch...).Result()
		if err != nil {
			return err
		}
		deleted += n
		batch = batch[:0]
		return nil
	}
	iter := client.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatch {
			if err := flush(); err != nil {
				return deleted, opError("del", prefix, err)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, opError("scan", prefix, err)
	}
	if err := flush(); err != nil {
		return deleted, opError("del", prefix, err)
	}
	return deleted, nil
}

func (s *RedisStore) GetHashField(ctx context.Context, key, field string) (string, bool, error) {
	client, err := s.conn()
	if err != nil {
		return "", false, err
	}
	return hget(ctx, client, key, field)
}

func (s *RedisStore) GetHashFields(ctx context.Context, key string) (map[string]string, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	return hgetall(ctx, client, key)
}

func (s *RedisStore) SetHashField(ctx context.Context, key, field, value string) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	return opError("hset", key, client.HSet(ctx, key, field, value).Err())
}

// SetHashFields writes all fields with a single HSET so readers never observe
// a partially written record.
func (s *RedisStore) SetHashFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	client, err := s.conn()
	if err != nil {
		return err
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return opError("hset", key, client.HSet(ctx, key, values).Err())
}

func (s *RedisStore) AddToSortedSet(ctx context.Context, set, member string, score float64) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	return opError("zadd", set, client.ZAdd(ctx, set, redis.Z{Score: score, Member: member}).Err())
}

// RangeByScore returns every member of set in ascending score order.
func (s *RedisStore) RangeByScore(ctx context.Context, set string) ([]string, error) {
	client, err := s.conn()
	if err != nil {
		return nil, err
	}
	members, err := client.ZRangeByScore(ctx, set, &redis.ZRangeBy{Min: "-inf", Max: "+inf"}).Result()
	if err != nil {
		return nil, opError("zrangebyscore", set, err)
	}
	return members, nil
}

func (s *RedisStore) SortedSetLen(ctx context.Context, set string) (int64, error) {
	client, err := s.conn()
	if err != nil {
		return 0, err
	}
	n, err := client.ZCard(ctx, set).Result()
	if err != nil {
		return 0, opError("zcard", set, err)
	}
	return n, nil
}

func (s *RedisStore) SortedSetScore(ctx context.Context, set, member string) (float64, bool, error) {
	client, err := s.conn()
	if err != nil {
		return 0, false, err
	}
	score, err := client.ZScore(ctx, set, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, opError("zscore", set, err)
	}
	return score, true, nil
}

// Watch maps onto WATCH/MULTI/EXEC. The watch is released when fn returns,
// whether or not it committed.
func (s *RedisStore) Watch(ctx context.Context, fn func(tx Tx) error, keys ...string) error {
	client, err := s.conn()
	if err != nil {
		return err
	}
	err = client.Watch(ctx, func(tx *redis.Tx) error {
		return fn(&redisTx{tx: tx})
	}, keys...)
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.TxFailedErr) {
		return ErrTxConflict
	}
	key := ""
	if len(keys) > 0 {
		key = keys[0]
	}
	return opError("watch", key, err)
}

type redisTx struct {
	tx *redis.Tx
}

func (t *redisTx) GetHashField(ctx context.Context, key, field string) (string, bool, error) {
	return hget(ctx, t.tx, key, field)
}

func (t *redisTx) GetHashFields(ctx context.Context, key string) (map[string]string, error) {
	return hgetall(ctx, t.tx, key)
}

func (t *redisTx) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := t.tx.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, opError("scan", prefix, err)
	}
	return keys, nil
}

func (t *redisTx) Commit(ctx context.Context, build func(b Batch)) error {
	_, err := t.tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		build(&redisBatch{ctx: ctx, pipe: pipe})
		return nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.TxFailedErr) {
		return ErrTxConflict
	}
	return opError("exec", "", err)
}

type redisBatch struct {
	ctx  context.Context
	pipe redis.Pipeliner
}

func (b *redisBatch) SetHashField(key, field, value string) {
	b.pipe.HSet(b.ctx, key, field, value)
}

func (b *redisBatch) AddToSortedSet(set, member string, score float64) {
	b.pipe.ZAdd(b.ctx, set, redis.Z{Score: score, Member: member})
}

func (b *redisBatch) RemoveFromSortedSet(set, member string) {
	b.pipe.ZRem(b.ctx, set, member)
}

func (b *redisBatch) SetScalar(key, value string) {
	b.pipe.Set(b.ctx, key, value, 0)
}

func (b *redisBatch) Delete(keys ...string) {
	if len(keys) == 0 {
		return
	}
	b.pipe.Del(b.ctx, keys...)
}

func hget(ctx context.Context, c redis.Cmdable, key, field string) (string, bool, error) {
	val, err := c.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, opError("hget", key, err)
	}
	return val, true, nil
}

func hgetall(ctx context.Context, c redis.Cmdable, key string) (map[string]string, error) {
	fields, err := c.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, opError("hgetall", key, err)
	}
	return fields, nil
}
