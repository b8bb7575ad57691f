package queue

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// AssetDeletion is a batch of image files no longer referenced by a story.
type AssetDeletion struct {
	JobID      uuid.UUID `json:"job_id"`
	StoryID    string    `json:"story_id,omitempty"`
	Filenames  []string  `json:"filenames"`
	Attempts   int       `json:"attempts,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewAssetDeletion creates a job for the given files.
func NewAssetDeletion(storyID string, filenames []string) *AssetDeletion {
	return &AssetDeletion{
		JobID:      uuid.New(),
		StoryID:    storyID,
		Filenames:  filenames,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ToJSON converts the job to JSON bytes for Redis
func (j *AssetDeletion) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

// FromJSON parses a job from JSON bytes
func FromJSON(data []byte) (*AssetDeletion, error) {
	var job AssetDeletion
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	if job.JobID == uuid.Nil {
		return nil, errors.New("asset deletion job has no id")
	}
	return &job, nil
}
