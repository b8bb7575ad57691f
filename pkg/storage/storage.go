package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/story"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
)

// Storage defines a unified interface for all storage operations.
// Story documents and play sessions are Redis-backed; image assets live on
// the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Story documents. LoadStory returns ErrNotFound for an unknown id.
	// A save replaces the whole document; the last save wins.
	ListStories(ctx context.Context) ([]string, error)
	LoadStory(ctx context.Context, id string) (story.Document, error)
	SaveStory(ctx context.Context, id string, doc story.Document) error
	DeleteStory(ctx context.Context, id string) error

	// Image assets. UploadAsset generates a collision-resistant file name
	// and returns it. DeleteAssets is best effort and keeps going past
	// failures, returning them joined.
	UploadAsset(ctx context.Context, data []byte, ext string) (string, error)
	ReadAsset(ctx context.Context, name string) ([]byte, error)
	DeleteAssets(ctx context.Context, names []string) error

	// Play sessions. LoadPlaySession returns nil, nil when absent.
	SavePlaySession(ctx context.Context, s *player.Session) error
	LoadPlaySession(ctx context.Context, id uuid.UUID) (*player.Session, error)
	DeletePlaySession(ctx context.Context, id uuid.UUID) error
}

// NewAssetName returns a fresh file name with the given extension.
func NewAssetName(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "." + ext
}

// ValidateAssetName rejects names that would escape the asset directory.
func ValidateAssetName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return ErrInvalidAssetName
	}
	return nil
}
