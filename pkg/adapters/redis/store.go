// Package redis provides the Redis-backed run archive for deployments where
// runs must survive the process or be shared between instances.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

// Store implements ports.RunStore using Redis. Records are JSON values under
// a prefixed key; a ZSET indexes run ids by start time for newest-first
// listing.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

var _ ports.RunStore = (*Store)(nil)

type Option func(*Store)

// WithTTL sets the expiration for archived runs.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for archived runs.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "furrow:run:",
		ttl:    0, // No expiration by default
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the record to Redis and indexes it by start time.
func (s *Store) Save(ctx context.Context, record domain.RunRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(record.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		// Millisecond score keeps ordering exact within float64 range.
		Score:  float64(record.StartedAt.UnixMilli()),
		Member: record.ID,
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a record by run id.
func (s *Store) Load(ctx context.Context, id string) (domain.RunRecord, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if err == backend.Nil {
			return domain.RunRecord{}, domain.ErrRunNotFound
		}
		return domain.RunRecord{}, fmt.Errorf("failed to get from redis: %w", err)
	}

	var record domain.RunRecord
	if err := json.Unmarshal([]byte(val), &record); err != nil {
		return domain.RunRecord{}, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return record, nil
}

// Delete removes a record and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(id))
	pipe.ZRem(ctx, s.indexKey(), id)

	_, err := pipe.Exec(ctx)
	return err
}

// List returns archived records newest first. Index entries whose record
// expired are pruned lazily.
func (s *Store) List(ctx context.Context) ([]domain.RunRecord, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if len(ids) == 0 {
		return []domain.RunRecord{}, nil
	}

	pipe := s.client.Pipeline()
	gets := make([]*backend.StringCmd, len(ids))
	for i, id := range ids {
		gets[i] = pipe.Get(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != backend.Nil {
		return nil, fmt.Errorf("failed to fetch runs: %w", err)
	}

	records := make([]domain.RunRecord, 0, len(ids))
	var expired []any
	for i, cmd := range gets {
		val, err := cmd.Result()
		if err == backend.Nil {
			expired = append(expired, ids[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch run %s: %w", ids[i], err)
		}
		var record domain.RunRecord
		if err := json.Unmarshal([]byte(val), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run %s: %w", ids[i], err)
		}
		records = append(records, record)
	}

	if len(expired) > 0 {
		_ = s.client.ZRem(ctx, s.indexKey(), expired...).Err()
	}
	return records, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
