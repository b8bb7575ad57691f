package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	pkgstorage "github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/redis/go-redis/v9"
)

const (
	storyKeyPrefix   = "story:"
	storyIndexKey    = "stories"
	sessionKeyPrefix = "play:"
	imagesDir        = "images"
)

// RedisStorage implements the Storage interface using Redis for story
// documents and play sessions, and the filesystem for image assets.
type RedisStorage struct {
	client     *redis.Client
	logger     *slog.Logger
	dataDir    string
	sessionTTL time.Duration
}

// Ensure RedisStorage implements Storage interface
var _ pkgstorage.Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a storage over an existing Redis client. A zero
// sessionTTL keeps play sessions forever.
func NewRedisStorage(client *redis.Client, dataDir string, sessionTTL time.Duration, logger *slog.Logger) *RedisStorage {
	if dataDir == "" {
		dataDir = "./data"
	}
	return &RedisStorage{
		client:     client,
		logger:     logger,
		dataDir:    dataDir,
		sessionTTL: sessionTTL,
	}
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context, maxRetries int, retryDelay time.Duration) error {
	for i := 0; i < maxRetries; i++ {
		err := r.Ping(ctx)
		if err == nil {
			r.logger.Info("Redis connection established")
			return nil
		}
		r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
		case <-time.After(retryDelay):
		}
	}
	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Story documents (Redis-backed)

func (r *RedisStorage) ListStories(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, storyIndexKey).Result()
	if err != nil {
		r.logger.Error("Failed to list stories", "error", err)
		return nil, fmt.Errorf("failed to list stories: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *RedisStorage) LoadStory(ctx context.Context, id string) (story.Document, error) {
	data, err := r.client.Get(ctx, storyKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("story %q: %w", id, pkgstorage.ErrNotFound)
		}
		r.logger.Error("Failed to load story", "story_id", id, "error", err)
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	doc, err := story.ParseDocument(data)
	if err != nil {
		r.logger.Error("Failed to parse stored story", "story_id", id, "error", err)
		return nil, err
	}
	return doc, nil
}

func (r *RedisStorage) SaveStory(ctx context.Context, id string, doc story.Document) error {
	if doc == nil {
		return errors.New("document cannot be nil")
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, storyKeyPrefix+id, data, 0)
		pipe.SAdd(ctx, storyIndexKey, id)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save story", "story_id", id, "error", err)
		return fmt.Errorf("failed to save story: %w", err)
	}
	return nil
}

func (r *RedisStorage) DeleteStory(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, storyKeyPrefix+id)
		pipe.SRem(ctx, storyIndexKey, id)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to delete story", "story_id", id, "error", err)
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

// Image assets (filesystem-backed)

func (r *RedisStorage) assetPath(name string) string {
	return filepath.Join(r.dataDir, imagesDir, name)
}

func (r *RedisStorage) UploadAsset(ctx context.Context, data []byte, ext string) (string, error) {
	dir := filepath.Join(r.dataDir, imagesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create images directory: %w", err)
	}

	name := pkgstorage.NewAssetName(ext)
	f, err := os.OpenFile(r.assetPath(name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create asset: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(r.assetPath(name))
		return "", fmt.Errorf("failed to write asset: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write asset: %w", err)
	}

	r.logger.Debug("Asset uploaded", "asset", name, "bytes", len(data))
	return name, nil
}

func (r *RedisStorage) ReadAsset(ctx context.Context, name string) ([]byte, error) {
	if err := pkgstorage.ValidateAssetName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(r.assetPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset %q: %w", name, pkgstorage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	return data, nil
}

// DeleteAssets removes asset files. Missing files are not an error.
func (r *RedisStorage) DeleteAssets(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := pkgstorage.ValidateAssetName(name); err != nil {
			errs = append(errs, fmt.Errorf("%q: %w", name, err))
			continue
		}
		if err := os.Remove(r.assetPath(name)); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("Failed to delete asset", "asset", name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Play sessions (Redis-backed)

func (r *RedisStorage) SavePlaySession(ctx context.Context, s *player.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	s.UpdatedAt = time.Now()

	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal play session", "uuid", s.ID, "error", err)
		return fmt.Errorf("failed to marshal play session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID.String(), data, r.sessionTTL).Err(); err != nil {
		r.logger.Error("Failed to save play session", "uuid", s.ID, "error", err)
		return fmt.Errorf("failed to save play session: %w", err)
	}
	return nil
}

func (r *RedisStorage) LoadPlaySession(ctx context.Context, id uuid.UUID) (*player.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.logger.Warn("Play session not found", "uuid", id)
			return nil, nil
		}
		r.logger.Error("Failed to load play session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load play session: %w", err)
	}

	var s player.Session
	if err := json.Unmarshal(data, &s); err != nil {
		r.logger.Error("Failed to unmarshal play session", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to unmarshal play session: %w", err)
	}
	return &s, nil
}

func (r *RedisStorage) DeletePlaySession(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id.String()).Err(); err != nil {
		r.logger.Error("Failed to delete play session", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete play session: %w", err)
	}
	return nil
}
