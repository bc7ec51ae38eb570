package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skyward/flighttrack/internal/model"
)

// maxIndexRetries bounds the optimistic retry loop on the recency index.
// Exhausting it surfaces ErrConflict instead of spinning.
const maxIndexRetries = 3

// RedisFlightStore implements FlightStore on two keyspaces: one record per
// flight:{owner}:{trace} key and an ordered trace-id list per flights:{owner}
// key. The index document is the source of truth for which records List
// returns and in what order; the record keys are the source of truth for
// payload contents.
type RedisFlightStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisFlightStore creates a Redis-backed flight store.
func NewRedisFlightStore(host string, port int, password string, db int, logger *zap.Logger) (FlightStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisFlightStore{
		client: client,
		logger: logger,
	}, nil
}

func recordKey(ownerID, traceID string) string {
	return fmt.Sprintf("flight:%s:%s", ownerID, traceID)
}

func indexKey(ownerID string) string {
	return fmt.Sprintf("flights:%s", ownerID)
}

// SaveFlight writes the record first and updates the index second. A crash
// between the two steps leaves an orphan record absent from the index, which
// List never sees and a later save repairs; the reverse order could leave a
// dangling index entry instead.
func (s *RedisFlightStore) SaveFlight(ctx context.Context, record *model.FlightRecord) error {
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	// Preserve created_at across overwrites.
	existing, err := s.GetFlight(ctx, record.OwnerID, record.TraceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal flight record: %w", err)
	}

	if err := s.client.Set(ctx, recordKey(record.OwnerID, record.TraceID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: save flight record: %v", ErrUnavailable, err)
	}

	return s.updateIndex(ctx, record.OwnerID, func(ids []string) []string {
		return promote(ids, record.TraceID, model.MaxRecentFlights)
	})
}

// GetFlight retrieves one record by key, bypassing the index entirely.
func (s *RedisFlightStore) GetFlight(ctx context.Context, ownerID, traceID string) (*model.FlightRecord, error) {
	data, err := s.client.Get(ctx, recordKey(ownerID, traceID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get flight record: %v", ErrUnavailable, err)
	}

	var record model.FlightRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flight record: %w", err)
	}

	return &record, nil
}

// ListFlights reads the index document, then fan-reads the referenced
// records concurrently. Index entries whose record is missing are dropped:
// staleness under concurrent writers is expected and never a list failure.
func (s *RedisFlightStore) ListFlights(ctx context.Context, ownerID string) ([]*model.FlightRecord, error) {
	ids, err := s.readIndex(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.FlightRecord{}, nil
	}

	slots := make([]*model.FlightRecord, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			record, err := s.GetFlight(gctx, ownerID, id)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			slots[i] = record
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]*model.FlightRecord, 0, len(slots))
	for _, record := range slots {
		if record != nil {
			records = append(records, record)
		}
	}

	return records, nil
}

// DeleteFlight removes the record and its index entry. The index removal is
// idempotent; only a missing record yields ErrNotFound.
func (s *RedisFlightStore) DeleteFlight(ctx context.Context, ownerID, traceID string) error {
	deleted, err := s.client.Del(ctx, recordKey(ownerID, traceID)).Result()
	if err != nil {
		return fmt.Errorf("%w: delete flight record: %v", ErrUnavailable, err)
	}

	if err := s.updateIndex(ctx, ownerID, func(ids []string) []string {
		return remove(ids, traceID)
	}); err != nil {
		return err
	}

	if deleted == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks the Redis connection.
func (s *RedisFlightStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (s *RedisFlightStore) Close() {
	if err := s.client.Close(); err != nil {
		s.logger.Warn("failed to close Redis client", zap.Error(err))
	}
}

// readIndex returns the owner's trace-id list; a missing index document is
// an empty list.
func (s *RedisFlightStore) readIndex(ctx context.Context, ownerID string) ([]string, error) {
	data, err := s.client.Get(ctx, indexKey(ownerID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read flight index: %v", ErrUnavailable, err)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flight index: %w", err)
	}

	return ids, nil
}

// updateIndex applies mutate to the index document under an optimistic
// WATCH transaction. The read-modify-write is a classic lost-update hazard
// under concurrent saves for the same owner, so a conflicting write aborts
// the transaction and the loop retries up to maxIndexRetries times before
// surfacing ErrConflict.
func (s *RedisFlightStore) updateIndex(ctx context.Context, ownerID string, mutate func([]string) []string) error {
	key := indexKey(ownerID)

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("%w: read flight index: %v", ErrUnavailable, err)
		}

		var ids []string
		if len(data) > 0 {
			if err := json.Unmarshal(data, &ids); err != nil {
				return fmt.Errorf("failed to unmarshal flight index: %w", err)
			}
		}

		updated, err := json.Marshal(mutate(ids))
		if err != nil {
			return fmt.Errorf("failed to marshal flight index: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxIndexRetries; attempt++ {
		err := s.client.Watch(ctx, txn, key)
		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			s.logger.Debug("flight index write conflict, retrying",
				zap.String("owner_id", ownerID),
				zap.Int("attempt", attempt+1))
			continue
		}
		return err
	}

	return fmt.Errorf("%w: flight index for owner %s", ErrConflict, ownerID)
}
