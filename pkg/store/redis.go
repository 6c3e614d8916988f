package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chenBenjamin97/shot-labeler/pkg/shot"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "shot-labeler:labels:"

//RedisStore keeps each copy of the labels as one JSON string.
type RedisStore struct {
	client *redis.Client
}

//NewRedisStore connects to redisURL ("redis://host:6379/0") and pings it.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("NewRedisStore: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("NewRedisStore: failed to ping redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func redisKey(source Source, videoID string) string {
	return redisKeyPrefix + string(source) + ":" + videoID
}

func (s *RedisStore) Save(ctx context.Context, source Source, labels *shot.VideoLabels) error {
	if err := validSource(source); err != nil {
		return err
	}
	if labels == nil || labels.VideoID == "" {
		return errors.New("Save: labels without video id")
	}

	data, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return s.client.Set(ctx, redisKey(source, labels.VideoID), data, 0).Err()
}

func (s *RedisStore) Get(ctx context.Context, videoID string) (*shot.VideoLabels, Source, error) {
	for _, source := range []Source{Confirmed, Generated} {
		data, err := s.client.Get(ctx, redisKey(source, videoID)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("Get: %w", err)
		}

		var labels shot.VideoLabels
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, "", fmt.Errorf("Get: Could not parse %s labels of '%s', got '%v'", source, videoID, err)
		}
		return &labels, source, nil
	}
	return nil, "", fmt.Errorf("%w: '%s'", ErrNotFound, videoID)
}

func (s *RedisStore) Confirm(ctx context.Context, videoID string) error {
	data, err := s.client.Get(ctx, redisKey(Generated, videoID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: no generated labels for '%s'", ErrNotFound, videoID)
	}
	if err != nil {
		return fmt.Errorf("Confirm: %w", err)
	}
	return s.client.Set(ctx, redisKey(Confirmed, videoID), data, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
