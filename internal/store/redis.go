// ABOUTME: Redis implementation of DocumentStore using go-redis
// ABOUTME: Keeps JSON bodies under prefixed keys and insertion order in a sorted set

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/2389/agent-roster/internal/roster"
)

// DefaultRedisPrefix namespaces every key written by RedisStore.
const DefaultRedisPrefix = "roster:"

// deleteRetries bounds optimistic-lock retries in Delete.
const deleteRetries = 5

// RedisOptions configures NewRedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore implements DocumentStore on a Redis server.
//
// Keys:
//
//	<prefix>doc:<id>  JSON body, "_deleted": true once deleted
//	<prefix>ids       sorted set of ids scored by insertion sequence
//	<prefix>seq       insertion sequence counter
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	s := NewRedisStoreFromClient(rdb, prefix)
	if err := s.Ping(ctx); err != nil {
		rdb.Close()
		return nil, err
	}
	s.logger.Info("Redis store initialized", "addr", opts.Addr, "db", opts.DB, "prefix", prefix)
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client without pinging it.
func NewRedisStoreFromClient(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		logger: slog.Default().With("component", "store"),
		now:    time.Now,
	}
}

func (s *RedisStore) docKey(id string) string { return s.prefix + "doc:" + id }
func (s *RedisStore) idsKey() string         { return s.prefix + "ids" }
func (s *RedisStore) seqKey() string         { return s.prefix + "seq" }

// Put inserts a new document.
func (s *RedisStore) Put(ctx context.Context, doc Document) (string, error) {
	_, body, err := prepare(doc, s.now())
	if err != nil {
		return "", err
	}

	seq, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return "", unavailable("allocating sequence", err)
	}

	id := uuid.New().String()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(id), body, 0)
		pipe.ZAdd(ctx, s.idsKey(), redis.Z{Score: float64(seq), Member: id})
		return nil
	})
	if err != nil {
		return "", unavailable("inserting document", err)
	}
	return id, nil
}

// Get retrieves an active document by ID.
func (s *RedisStore) Get(ctx context.Context, id string) (Document, error) {
	body, err := s.rdb.Get(ctx, s.docKey(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("loading document", err)
	}
	doc, err := decode(body)
	if err != nil {
		return nil, err
	}
	if roster.IsDeleted(doc) {
		return nil, ErrNotFound
	}
	return withID(id, doc, false), nil
}

// Delete flags a document as deleted. The read-modify-write runs under
// WATCH so a concurrent delete of the same id reports ErrNotFound.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := s.docKey(id)
	txf := func(tx *redis.Tx) error {
		body, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		doc, err := decode(body)
		if err != nil {
			return err
		}
		if roster.IsDeleted(doc) {
			return ErrNotFound
		}
		doc[roster.FieldDeleted] = true
		updated, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding document: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for range deleteRetries {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err == nil || errors.Is(err, ErrNotFound) {
			return err
		}
		return unavailable("deleting document", err)
	}
	return unavailable("deleting document", redis.TxFailedErr)
}

// ListAll returns every document in insertion order.
func (s *RedisStore) ListAll(ctx context.Context) ([]KeyValue, error) {
	ids, err := s.rdb.ZRange(ctx, s.idsKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable("listing documents", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, unavailable("listing documents", err)
	}

	out := make([]KeyValue, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("document missing for indexed id", "id", ids[i])
			continue
		}
		doc, err := decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, KeyValue{Key: ids[i], Value: withID(ids[i], doc, roster.IsDeleted(doc))})
	}
	return out, nil
}

// QueryBySortedField returns active documents ordered by field.
func (s *RedisStore) QueryBySortedField(ctx context.Context, field string, opts QueryOptions) ([]Row, error) {
	if err := checkField(field); err != nil {
		return nil, err
	}
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return queryEntries(all, field, opts), nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ensure RedisStore implements DocumentStore
var _ DocumentStore = (*RedisStore)(nil)
