package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"go-shortlink/types"
)

// RedisStorage implements the Storage interface on Redis, one JSON record per key.
type RedisStorage struct {
	client     redis.Cmdable
	prefix     string
	visitsMode types.VisitsMode
	logger     *zap.Logger
}

// NewRedisClient connects to addr and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable("ping", err)
	}
	return client, nil
}

// NewRedisStorage stores links under prefix+id.
func NewRedisStorage(client redis.Cmdable, prefix string, visitsMode types.VisitsMode, logger *zap.Logger) *RedisStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStorage{client: client, prefix: prefix, visitsMode: visitsMode, logger: logger}
}

func (s *RedisStorage) key(id string) string {
	return s.prefix + id
}

// PutIfAbsent writes the record with SETNX.
func (s *RedisStorage) PutIfAbsent(ctx context.Context, link types.ShortLink) (types.ShortLink, error) {
	payload, err := json.Marshal(types.NewRecord(link, s.visitsMode))
	if err != nil {
		return types.ShortLink{}, err
	}

	ok, err := s.client.SetNX(ctx, s.key(link.ID), payload, 0).Result()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, ctxErr
		}
		s.logger.Error("SETNX failed", zap.String("id", link.ID), zap.Error(err))
		return types.ShortLink{}, unavailable("setnx", err)
	}
	if !ok {
		s.logger.Warn("Attempt to create duplicate id", zap.String("id", link.ID))
		return types.ShortLink{}, ErrIDExists
	}
	return link, nil
}

// Get loads the record stored under id.
func (s *RedisStorage) Get(ctx context.Context, id string) (types.ShortLink, bool, error) {
	payload, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.ShortLink{}, false, nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return types.ShortLink{}, false, ctxErr
		}
		return types.ShortLink{}, false, unavailable("get", err)
	}

	var record types.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding record %q: %w", id, err)
	}
	link, err := record.ShortLink()
	if err != nil {
		return types.ShortLink{}, false, fmt.Errorf("decoding record %q: %w", id, err)
	}
	return link, true, nil
}
