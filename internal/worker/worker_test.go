package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/story-graph/internal/services/queue"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDeleter struct {
	mu    sync.Mutex
	calls int
}

func (f *failingDeleter) DeleteAssets(ctx context.Context, names []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("disk on fire")
}

func setupWorker(t *testing.T, assets AssetDeleter) (*AssetWorker, *queue.AssetQueue) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	client, err := queue.NewClient(context.Background(), "redis://"+mr.Addr(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	q := queue.NewAssetQueue(client, logger)
	w := New(q, assets, logger, "")
	w.timeout = 50 * time.Millisecond
	return w, q
}

func TestAssetWorker_DeletesQueuedAssets(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddAsset("map.png", []byte("x"))
	store.AddAsset("keep.png", []byte("y"))
	w, q := setupWorker(t, store)
	assert.Contains(t, w.ID(), "worker-")

	q.ForStory("pirates").ScheduleAssetDeletion(context.Background(), []string{"map.png"})

	took, err := w.processNext()
	require.NoError(t, err)
	assert.True(t, took)
	assert.False(t, store.HasAsset("map.png"))
	assert.True(t, store.HasAsset("keep.png"))
}

func TestAssetWorker_EmptyQueue(t *testing.T) {
	w, _ := setupWorker(t, storage.NewMockStorage())
	took, err := w.processNext()
	require.NoError(t, err)
	assert.False(t, took)
}

func TestAssetWorker_RetriesThenGivesUp(t *testing.T) {
	deleter := &failingDeleter{}
	w, q := setupWorker(t, deleter)
	ctx := context.Background()

	q.ScheduleAssetDeletion(ctx, []string{"map.png"})
	for i := 0; i < maxAttempts; i++ {
		took, err := w.processNext()
		require.NoError(t, err)
		assert.True(t, took)
	}

	depth, err := q.Depth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth, "the job is dropped after the last attempt")
	assert.Equal(t, maxAttempts, deleter.calls)
}

func TestAssetWorker_StartStop(t *testing.T) {
	store := storage.NewMockStorage()
	store.AddAsset("a.png", []byte("x"))
	w, q := setupWorker(t, store)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	q.ScheduleAssetDeletion(context.Background(), []string{"a.png"})
	assert.Eventually(t, func() bool { return !store.HasAsset("a.png") }, 2*time.Second, 10*time.Millisecond)

	w.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
