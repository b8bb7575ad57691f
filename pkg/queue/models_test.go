package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetDeletion_JSON(t *testing.T) {
	job := NewAssetDeletion("pirates", []string{"a.png", "b.jpg"})
	data, err := job.ToJSON()
	require.NoError(t, err)

	parsed, err := FromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, job.JobID, parsed.JobID)
	assert.Equal(t, "pirates", parsed.StoryID)
	assert.Equal(t, []string{"a.png", "b.jpg"}, parsed.Filenames)
	assert.True(t, job.EnqueuedAt.Equal(parsed.EnqueuedAt))
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON([]byte(`{"filenames":["a.png"]}`))
	assert.Error(t, err, "a job without id is rejected")

	_, err = FromJSON([]byte(`not json`))
	assert.Error(t, err)
}
