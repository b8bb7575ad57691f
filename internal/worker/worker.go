package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/internal/services/queue"
	queuePkg "github.com/jwebster45206/story-graph/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
	maxAttempts   = 3
)

// AssetDeleter removes stored asset files.
type AssetDeleter interface {
	DeleteAssets(ctx context.Context, names []string) error
}

// AssetWorker drains the asset deletion queue. Failed batches are re-queued
// a few times, then dropped with an error log; nothing is reported upstream.
type AssetWorker struct {
	id      string
	queue   *queue.AssetQueue
	assets  AssetDeleter
	log     *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a new worker instance
func New(q *queue.AssetQueue, assets AssetDeleter, log *slog.Logger, workerID string) *AssetWorker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &AssetWorker{
		id:      workerID,
		queue:   q,
		assets:  assets,
		log:     log,
		timeout: workerTimeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (w *AssetWorker) ID() string { return w.id }

// Start processes jobs until Stop is called.
func (w *AssetWorker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if _, err := w.processNext(); err != nil && w.ctx.Err() == nil {
				w.log.Error("Error processing asset deletion", "error", err, "worker_id", w.id)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *AssetWorker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNext waits for one job and handles it. It reports whether a job
// was taken from the queue.
func (w *AssetWorker) processNext() (bool, error) {
	ctx, cancel := context.WithTimeout(w.ctx, w.timeout+time.Second)
	defer cancel()

	job, err := w.queue.BlockingDequeue(ctx, w.timeout)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, nil
		}
		return false, err
	}
	if job == nil {
		return false, nil
	}

	w.process(job)
	return true, nil
}

func (w *AssetWorker) process(job *queuePkg.AssetDeletion) {
	log := w.log.With(
		"worker_id", w.id,
		"job_id", job.JobID,
		"story_id", job.StoryID,
	)
	start := time.Now()

	err := w.assets.DeleteAssets(w.ctx, job.Filenames)
	if err == nil {
		log.Info("Assets deleted", "filenames", job.Filenames, "duration", time.Since(start))
		return
	}

	job.Attempts++
	if job.Attempts >= maxAttempts {
		log.Error("Giving up on asset deletion", "error", err, "attempts", job.Attempts)
		return
	}
	log.Warn("Asset deletion failed, re-queueing", "error", err, "attempts", job.Attempts)
	if err := w.queue.Enqueue(w.ctx, job); err != nil {
		log.Error("Failed to re-queue asset deletion", "error", err)
	}
}
