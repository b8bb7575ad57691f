package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event being broadcast
type EventType string

const (
	EventTypeStorySaved   EventType = "story.saved"
	EventTypeStoryDeleted EventType = "story.deleted"
	EventTypePlayUpdated  EventType = "play.updated"
)

// Event represents a generic event structure
type Event struct {
	Type      EventType              `json:"type"`
	StoryID   string                 `json:"story_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Channel returns the pub/sub channel carrying events for a story.
func Channel(storyID string) string {
	return fmt.Sprintf("story-events:%s", storyID)
}

// Broadcaster publishes story events to Redis Pub/Sub
type Broadcaster struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

// NewBroadcaster creates a new event broadcaster
func NewBroadcaster(redisClient *redis.Client, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		redisClient: redisClient,
		logger:      logger,
	}
}

// PublishStorySaved publishes a story.saved event
func (b *Broadcaster) PublishStorySaved(ctx context.Context, storyID string, scenes []string) error {
	return b.publish(ctx, Event{
		Type:    EventTypeStorySaved,
		StoryID: storyID,
		Data: map[string]interface{}{
			"scenes": scenes,
		},
	})
}

// PublishStoryDeleted publishes a story.deleted event
func (b *Broadcaster) PublishStoryDeleted(ctx context.Context, storyID string) error {
	return b.publish(ctx, Event{
		Type:    EventTypeStoryDeleted,
		StoryID: storyID,
	})
}

// PublishPlayUpdated publishes a play.updated event after a session moves
func (b *Broadcaster) PublishPlayUpdated(ctx context.Context, s *player.Session) error {
	return b.publish(ctx, Event{
		Type:    EventTypePlayUpdated,
		StoryID: s.StoryID,
		Data: map[string]interface{}{
			"session_id": s.ID.String(),
			"scene":      s.SceneName,
			"step":       s.CurrentStepID,
			"ended":      s.Ended,
		},
	})
}

func (b *Broadcaster) publish(ctx context.Context, event Event) error {
	channel := Channel(event.StoryID)
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		b.logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := b.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		b.logger.Error("Failed to publish event", "error", err, "channel", channel)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debug("Event published",
		"channel", channel,
		"event_type", event.Type,
	)
	return nil
}
