package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"music_stream/internal/domain"
	apperrors "music_stream/pkg/errors"
	"music_stream/pkg/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:user:%s"
	presenceIndexKey  = "presence:users"

	presenceTxRetries = 5
)

// PresenceMutator receives the current record (nil when absent) and returns the
// record to store. Returning nil leaves the store untouched.
type PresenceMutator func(current *domain.PresenceRecord) *domain.PresenceRecord

type PresenceStore interface {
	// Update runs fn atomically for userID and returns the stored record, or nil if fn declined.
	Update(ctx context.Context, userID string, fn PresenceMutator) (*domain.PresenceRecord, error)
	Get(ctx context.Context, userID string) (*domain.PresenceRecord, error)
	List(ctx context.Context) ([]*domain.PresenceRecord, error)
	// Touch keeps the records of userIDs alive. Missing records stay missing.
	Touch(ctx context.Context, userIDs ...string) error
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// redisPresenceStore keeps one JSON value per user with a TTL plus an index set,
// so several server processes share the same presence view.
type redisPresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
	log logger.Logger
}

func NewRedisPresenceStore(rdb *redis.Client, ttl time.Duration, log logger.Logger) PresenceStore {
	return &redisPresenceStore{rdb: rdb, ttl: ttl, log: log}
}

func (r *redisPresenceStore) key(userID string) string {
	return fmt.Sprintf(presenceKeyPrefix, userID)
}

func (r *redisPresenceStore) Update(ctx context.Context, userID string, fn PresenceMutator) (*domain.PresenceRecord, error) {
	key := r.key(userID)
	var stored *domain.PresenceRecord

	txf := func(tx *redis.Tx) error {
		stored = nil
		current, err := r.read(ctx, tx, key)
		if err != nil {
			return err
		}

		next := fn(current)
		if next == nil {
			return nil
		}
		next.UserID = userID

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal presence: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			pipe.SAdd(ctx, presenceIndexKey, userID)
			return nil
		})
		if err != nil {
			return err
		}
		stored = next
		return nil
	}

	for i := 0; i < presenceTxRetries; i++ {
		err := r.rdb.Watch(ctx, txf, key)
		if err == nil {
			return stored, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		r.log.Error("Failed to update presence", "error", err, "user_id", userID)
		return nil, err
	}

	return nil, fmt.Errorf("presence update for %s: too much contention", userID)
}

func (r *redisPresenceStore) Get(ctx context.Context, userID string) (*domain.PresenceRecord, error) {
	record, err := r.read(ctx, r.rdb, r.key(userID))
	if err != nil {
		r.log.Error("Failed to get presence", "error", err, "user_id", userID)
		return nil, err
	}
	if record == nil {
		return nil, apperrors.ErrStatusNotFound
	}
	return record, nil
}

func (r *redisPresenceStore) List(ctx context.Context) ([]*domain.PresenceRecord, error) {
	userIDs, err := r.rdb.SMembers(ctx, presenceIndexKey).Result()
	if err != nil {
		r.log.Error("Failed to list presence index", "error", err)
		return nil, err
	}
	records := []*domain.PresenceRecord{}
	if len(userIDs) == 0 {
		return records, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = r.key(id)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		r.log.Error("Failed to load presence records", "error", err)
		return nil, err
	}

	var expired []interface{}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// key expired, prune the index lazily
			expired = append(expired, userIDs[i])
			continue
		}
		var record domain.PresenceRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			r.log.Warn("Failed to unmarshal presence", "error", err, "user_id", userIDs[i])
			continue
		}
		records = append(records, &record)
	}

	if len(expired) > 0 {
		if err := r.rdb.SRem(ctx, presenceIndexKey, expired...).Err(); err != nil {
			r.log.Warn("Failed to prune presence index", "error", err)
		}
	}

	return records, nil
}

func (r *redisPresenceStore) Touch(ctx context.Context, userIDs ...string) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Expire(ctx, r.key(id), r.ttl)
		}
		return nil
	})
	if err != nil {
		r.log.Error("Failed to refresh presence ttl", "error", err, "users", len(userIDs))
		return err
	}
	return nil
}

func (r *redisPresenceStore) read(ctx context.Context, c stringGetter, key string) (*domain.PresenceRecord, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record domain.PresenceRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal presence: %w", err)
	}
	return &record, nil
}
