package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBroadcaster(t *testing.T) (*Broadcaster, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewBroadcaster(rdb, logger), rdb
}

func receive(t *testing.T, sub *redis.PubSub) Event {
	t.Helper()
	select {
	case msg := <-sub.Channel():
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBroadcaster_PublishesToStoryChannel(t *testing.T) {
	b, rdb := setupBroadcaster(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, Channel("pirates"))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, b.PublishStorySaved(ctx, "pirates", []string{"harbor", "town"}))
	ev := receive(t, sub)
	assert.Equal(t, EventTypeStorySaved, ev.Type)
	assert.Equal(t, "pirates", ev.StoryID)
	assert.Equal(t, []interface{}{"harbor", "town"}, ev.Data["scenes"])
	assert.False(t, ev.Timestamp.IsZero())

	s := &player.Session{ID: uuid.New(), StoryID: "pirates", SceneName: "harbor", CurrentStepID: "intro"}
	require.NoError(t, b.PublishPlayUpdated(ctx, s))
	ev = receive(t, sub)
	assert.Equal(t, EventTypePlayUpdated, ev.Type)
	assert.Equal(t, s.ID.String(), ev.Data["session_id"])
	assert.Equal(t, "intro", ev.Data["step"])

	require.NoError(t, b.PublishStoryDeleted(ctx, "pirates"))
	assert.Equal(t, EventTypeStoryDeleted, receive(t, sub).Type)
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "story-events:pirates", Channel("pirates"))
}
