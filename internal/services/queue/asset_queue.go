package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/jwebster45206/story-graph/pkg/queue"
	"github.com/redis/go-redis/v9"
)

const assetDeletionsKey = "asset-deletions"

// AssetQueue holds image files waiting to be removed from storage. Editing
// sessions push to it and the asset worker drains it.
type AssetQueue struct {
	client  *Client
	logger  *slog.Logger
	storyID string
}

var _ editor.AssetSink = (*AssetQueue)(nil)

func NewAssetQueue(client *Client, logger *slog.Logger) *AssetQueue {
	return &AssetQueue{
		client: client,
		logger: logger,
	}
}

// ForStory returns a queue that tags its jobs with storyID.
func (q *AssetQueue) ForStory(storyID string) *AssetQueue {
	cp := *q
	cp.storyID = storyID
	return &cp
}

// Enqueue adds a deletion job to the end of the queue.
func (q *AssetQueue) Enqueue(ctx context.Context, job *queue.AssetDeletion) error {
	data, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize asset deletion: %w", err)
	}
	if err := q.client.rdb.RPush(ctx, assetDeletionsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue asset deletion: %w", err)
	}
	q.logger.Debug("Enqueued asset deletion",
		"job_id", job.JobID,
		"story_id", job.StoryID,
		"filenames", job.Filenames)
	return nil
}

// ScheduleAssetDeletion queues filenames for removal. Failures are logged
// and never reach the caller.
func (q *AssetQueue) ScheduleAssetDeletion(ctx context.Context, filenames []string) {
	if len(filenames) == 0 {
		return
	}
	job := queue.NewAssetDeletion(q.storyID, filenames)
	if err := q.Enqueue(ctx, job); err != nil {
		q.logger.Error("Failed to schedule asset deletion",
			"error", err,
			"story_id", q.storyID,
			"filenames", filenames)
	}
}

// BlockingDequeue waits up to timeout for the next job. It returns nil, nil
// when the timeout passes with the queue empty. A zero timeout waits forever.
func (q *AssetQueue) BlockingDequeue(ctx context.Context, timeout time.Duration) (*queue.AssetDeletion, error) {
	result, err := q.client.rdb.BLPop(ctx, timeout, assetDeletionsKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue asset deletion: %w", err)
	}

	// BLPop returns [key, value]
	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected BLPop result: %v", result)
	}

	job, err := queue.FromJSON([]byte(result[1]))
	if err != nil {
		return nil, fmt.Errorf("failed to parse asset deletion: %w", err)
	}
	return job, nil
}

// Depth returns the number of jobs waiting.
func (q *AssetQueue) Depth(ctx context.Context) (int, error) {
	count, err := q.client.rdb.LLen(ctx, assetDeletionsKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue depth: %w", err)
	}
	return int(count), nil
}
