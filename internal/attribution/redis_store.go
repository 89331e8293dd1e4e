package attribution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by stores when no record exists for the session.
var ErrNotFound = errors.New("attribution: record not found")

const redisKeyPrefix = "attribution:"

// RedisStore keeps attribution records in Redis with a TTL matching the
// browsing-session lifetime.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. ttl bounds how long a record
// outlives the visitor's last page load.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Put serializes the record under the session key, replacing any prior one.
func (s *RedisStore) Put(ctx context.Context, sessionID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("attribution: marshal record: %w", err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+sessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("attribution: redis set: %w", err)
	}
	return nil
}

// Get returns the stored record, refreshing its TTL on access.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (Record, error) {
	data, err := s.client.GetEx(ctx, redisKeyPrefix+sessionID, s.ttl).Bytes()
	if err == redis.Nil {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("attribution: redis get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("attribution: unmarshal record: %w", err)
	}
	return rec, nil
}

// MemoryStore is an in-memory Store for tests and single-process setups.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put stores the record for the session.
func (s *MemoryStore) Put(ctx context.Context, sessionID string, rec Record) error {
	s.mu.Lock()
	s.records[sessionID] = rec
	s.mu.Unlock()
	return nil
}

// Get returns the stored record.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
