// Package cache provides Redis caching operations for annotations, keyed per
// annotation and per owning media item.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/artifact-annotator/backend/internal/config"
	"github.com/artifact-annotator/backend/internal/models"
)

const (
	// Cache key prefixes
	annotationKeyPrefix = "annotation:"
	mediaListKeyPrefix  = "annotations:media:"
)

// Cache defines the interface for caching operations.
type Cache interface {
	// Get retrieves an annotation from cache by ID.
	Get(ctx context.Context, id string) (*models.Annotation, error)

	// GetMediaList retrieves the cached annotation list for a media item.
	GetMediaList(ctx context.Context, mediaID string) ([]models.Annotation, bool, error)

	// Set stores an annotation in cache and invalidates its media list.
	Set(ctx context.Context, annotation *models.Annotation) error

	// SetMediaList stores the annotation list for a media item.
	SetMediaList(ctx context.Context, mediaID string, annotations []models.Annotation) error

	// Delete removes an annotation from cache and invalidates its media list.
	Delete(ctx context.Context, id, mediaID string) error

	// InvalidateMedia removes the cached list for a media item.
	InvalidateMedia(ctx context.Context, mediaID string) error

	// Close closes the cache connection.
	Close() error
}

// RedisCache implements Cache using Redis.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache.
func NewRedisCache(cfg *config.Config, logger *zap.Logger) (Cache, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis cache")

	return &RedisCache{
		client: client,
		logger: logger,
		ttl:    cfg.CacheTTL(),
	}, nil
}

// Get retrieves an annotation from cache by ID.
func (c *RedisCache) Get(ctx context.Context, id string) (*models.Annotation, error) {
	key := annotationKeyPrefix + id

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Cache miss
	}
	if err != nil {
		c.logger.Warn("Failed to get from cache", zap.String("key", key), zap.Error(err))
		return nil, nil // Treat errors as cache miss
	}

	var annotation models.Annotation
	if err := json.Unmarshal(data, &annotation); err != nil {
		c.logger.Warn("Failed to unmarshal cached annotation", zap.Error(err))
		return nil, nil
	}

	c.logger.Debug("Cache hit", zap.String("key", key))
	return &annotation, nil
}

// GetMediaList retrieves the cached annotation list for a media item.
func (c *RedisCache) GetMediaList(ctx context.Context, mediaID string) ([]models.Annotation, bool, error) {
	key := mediaListKeyPrefix + mediaID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		c.logger.Warn("Failed to get media list from cache", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}

	var annotations []models.Annotation
	if err := json.Unmarshal(data, &annotations); err != nil {
		c.logger.Warn("Failed to unmarshal cached annotation list", zap.Error(err))
		return nil, false, nil
	}

	c.logger.Debug("Cache hit for media list", zap.String("media_id", mediaID))
	return annotations, true, nil
}

// Set stores an annotation in cache.
func (c *RedisCache) Set(ctx context.Context, annotation *models.Annotation) error {
	key := annotationKeyPrefix + annotation.ID

	data, err := json.Marshal(annotation)
	if err != nil {
		c.logger.Warn("Failed to marshal annotation for cache", zap.Error(err))
		return err
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to set cache", zap.String("key", key), zap.Error(err))
		return err
	}

	// The media list changed shape; force a refetch on next read.
	_ = c.InvalidateMedia(ctx, annotation.MediaID)

	c.logger.Debug("Cached annotation", zap.String("key", key))
	return nil
}

// SetMediaList stores the annotation list for a media item.
func (c *RedisCache) SetMediaList(ctx context.Context, mediaID string, annotations []models.Annotation) error {
	data, err := json.Marshal(annotations)
	if err != nil {
		c.logger.Warn("Failed to marshal annotation list for cache", zap.Error(err))
		return err
	}

	key := mediaListKeyPrefix + mediaID
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to set media list cache", zap.String("key", key), zap.Error(err))
		return err
	}

	c.logger.Debug("Cached media annotation list",
		zap.String("media_id", mediaID),
		zap.Int("count", len(annotations)),
	)
	return nil
}

// Delete removes an annotation from cache.
func (c *RedisCache) Delete(ctx context.Context, id, mediaID string) error {
	key := annotationKeyPrefix + id

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to delete from cache", zap.String("key", key), zap.Error(err))
		return err
	}

	if mediaID != "" {
		_ = c.InvalidateMedia(ctx, mediaID)
	}

	c.logger.Debug("Deleted from cache", zap.String("key", key))
	return nil
}

// InvalidateMedia removes the cached list for a media item.
func (c *RedisCache) InvalidateMedia(ctx context.Context, mediaID string) error {
	key := mediaListKeyPrefix + mediaID
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("Failed to invalidate media list cache", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	c.logger.Info("Closing Redis connection")
	return c.client.Close()
}
