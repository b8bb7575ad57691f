package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	pkgstorage "github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/vars"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewRedisStorage(rdb, t.TempDir(), time.Hour, logger), mr
}

func TestRedisStorage_Stories(t *testing.T) {
	s, mr := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Ping(ctx))

	_, err := s.LoadStory(ctx, "pirates")
	assert.True(t, errors.Is(err, pkgstorage.ErrNotFound))

	doc := story.NewDocument()
	doc["main"].StartingStep = "hello"
	doc["main"].Steps["hello"] = &story.DialogueStep{Speaker: "Cap", Text: "Ahoy", Next: "bye"}
	doc["main"].Steps["bye"] = &story.DescriptionStep{Text: "The end."}
	require.NoError(t, s.SaveStory(ctx, "pirates", doc))
	require.NoError(t, s.SaveStory(ctx, "aliens", story.NewDocument()))

	assert.True(t, mr.Exists("story:pirates"))
	ids, err := s.ListStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aliens", "pirates"}, ids)

	loaded, err := s.LoadStory(ctx, "pirates")
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	require.NoError(t, s.DeleteStory(ctx, "pirates"))
	ids, err = s.ListStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aliens"}, ids)
	_, err = s.LoadStory(ctx, "pirates")
	assert.True(t, errors.Is(err, pkgstorage.ErrNotFound))
}

func TestRedisStorage_CorruptStory(t *testing.T) {
	s, mr := setupTestStorage(t)
	require.NoError(t, mr.Set("story:bad", `{"main":{"steps":{"a":{"type":"song"}}}}`))

	_, err := s.LoadStory(context.Background(), "bad")
	assert.True(t, errors.Is(err, story.ErrUnknownType))
}

func TestRedisStorage_PlaySessions(t *testing.T) {
	s, mr := setupTestStorage(t)
	ctx := context.Background()

	doc := story.NewDocument()
	doc["main"].StartingStep = "a"
	doc["main"].Steps["a"] = &story.DialogueStep{Text: "hi"}
	sess, err := player.Start(doc, "main", player.Options{Vars: map[string]vars.Value{"name": vars.String("Ann")}})
	require.NoError(t, err)

	loaded, err := s.LoadPlaySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, s.SavePlaySession(ctx, sess))
	assert.Equal(t, time.Hour, mr.TTL("play:"+sess.ID.String()))

	loaded, err = s.LoadPlaySession(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.ID, loaded.ID)
	assert.Equal(t, "a", loaded.CurrentStepID)
	name, ok := loaded.Vars.Get("name")
	require.True(t, ok)
	assert.Equal(t, "Ann", name.AsString())

	mr.FastForward(2 * time.Hour)
	loaded, err = s.LoadPlaySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded, "sessions expire")

	require.NoError(t, s.DeletePlaySession(ctx, uuid.New()))
}

func TestRedisStorage_Assets(t *testing.T) {
	s, _ := setupTestStorage(t)
	ctx := context.Background()

	name, err := s.UploadAsset(ctx, []byte{0x89, 'P', 'N', 'G'}, "png")
	require.NoError(t, err)
	assert.Equal(t, ".png", filepath.Ext(name))
	assert.FileExists(t, filepath.Join(s.dataDir, "images", name))

	data, err := s.ReadAsset(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data)

	_, err = s.ReadAsset(ctx, "../secrets")
	assert.True(t, errors.Is(err, pkgstorage.ErrInvalidAssetName))

	require.NoError(t, s.DeleteAssets(ctx, []string{name, "never-existed.png"}))
	_, err = s.ReadAsset(ctx, name)
	assert.True(t, errors.Is(err, pkgstorage.ErrNotFound))
}

func TestRedisStorage_WaitForConnection(t *testing.T) {
	s, mr := setupTestStorage(t)
	require.NoError(t, s.WaitForConnection(context.Background(), 3, time.Millisecond))

	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.Error(t, s.WaitForConnection(ctx, 2, time.Millisecond))
}
