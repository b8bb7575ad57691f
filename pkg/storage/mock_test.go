package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jwebster45206/story-graph/pkg/player"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockStorage_Stories(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	_, err := m.LoadStory(ctx, "pirates")
	assert.True(t, errors.Is(err, ErrNotFound))

	doc := story.NewDocument()
	doc["main"].Steps["hello"] = &story.DialogueStep{Speaker: "Cap", Text: "Ahoy"}
	doc["main"].StartingStep = "hello"
	require.NoError(t, m.SaveStory(ctx, "pirates", doc))
	require.NoError(t, m.SaveStory(ctx, "aliens", story.NewDocument()))

	ids, err := m.ListStories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aliens", "pirates"}, ids)

	loaded, err := m.LoadStory(ctx, "pirates")
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	loaded["main"].StartingStep = ""
	again, err := m.LoadStory(ctx, "pirates")
	require.NoError(t, err)
	assert.Equal(t, "hello", again["main"].StartingStep, "loaded documents are copies")

	require.NoError(t, m.DeleteStory(ctx, "pirates"))
	_, err = m.LoadStory(ctx, "pirates")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMockStorage_Assets(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()

	name, err := m.UploadAsset(ctx, []byte("png"), ".PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".png"))

	other, err := m.UploadAsset(ctx, []byte("png"), "png")
	require.NoError(t, err)
	assert.NotEqual(t, name, other)

	data, err := m.ReadAsset(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), data)

	err = m.DeleteAssets(ctx, []string{"../etc/passwd", name})
	assert.True(t, errors.Is(err, ErrInvalidAssetName))
	assert.False(t, m.HasAsset(name), "valid names are deleted despite earlier failures")
	assert.True(t, m.HasAsset(other))

	_, err = m.ReadAsset(ctx, name)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMockStorage_PlaySessions(t *testing.T) {
	ctx := context.Background()
	m := NewMockStorage()
	doc := story.NewDocument()
	doc["main"].Steps["a"] = &story.DialogueStep{Text: "hi"}
	doc["main"].StartingStep = "a"

	s, err := player.Start(doc, "main", player.Options{Vars: map[string]vars.Value{"gold": vars.Number(3)}})
	require.NoError(t, err)

	loaded, err := m.LoadPlaySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	require.NoError(t, m.SavePlaySession(ctx, s))
	s.Vars.Set("gold", vars.Number(0))

	loaded, err = m.LoadPlaySession(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	gold, _ := loaded.Vars.Get("gold")
	assert.Equal(t, 3.0, gold.AsNumber())

	require.NoError(t, m.DeletePlaySession(ctx, s.ID))
	loaded, err = m.LoadPlaySession(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestValidateAssetName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"map.png", true},
		{"", false},
		{"..", false},
		{"a/b.png", false},
		{`a\b.png`, false},
		{"../x.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidateAssetName(tt.name) == nil)
		})
	}
}
