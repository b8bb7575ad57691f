package editor

import (
	"errors"
	"testing"

	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndSwitchScene(t *testing.T) {
	e := newEditor(t, harborDocument(), "harbor")

	require.NoError(t, e.AddScene("cellar"))
	assert.Equal(t, "harbor", e.SceneName(), "adding a scene does not switch to it")
	assert.True(t, errors.Is(e.AddScene("cellar"), ErrConflict))
	assert.True(t, errors.Is(e.AddScene(""), ErrInvalidID))

	require.NoError(t, e.SwitchScene("cellar"))
	id, err := e.AddStep(story.StepDescription, Patch{"text": "Damp."})
	require.NoError(t, err)
	assert.Equal(t, id, e.Document()["cellar"].StartingStep)
	assert.True(t, errors.Is(e.SwitchScene("attic"), ErrNotFound))
}

func TestRenameScene(t *testing.T) {
	doc := harborDocument()
	e := newEditor(t, doc, "harbor")

	require.NoError(t, e.RenameScene("town", "village"))
	assert.NotContains(t, doc, "town")
	assert.Contains(t, doc, "village")
	assert.Equal(t, "village", doc["harbor"].Steps["leave"].(*story.SceneTransitionStep).NextScene)
	assert.Empty(t, story.Validate(doc))

	require.NoError(t, e.RenameScene("harbor", "docks"))
	assert.Equal(t, "docks", e.SceneName(), "renaming the current scene follows it")

	assert.NoError(t, e.RenameScene("docks", "docks"))
	assert.True(t, errors.Is(e.RenameScene("docks", "village"), ErrConflict))
	assert.True(t, errors.Is(e.RenameScene("nowhere", "x"), ErrNotFound))
	assert.True(t, errors.Is(e.RenameScene("docks", ""), ErrInvalidID))
}

func TestDeleteScene(t *testing.T) {
	doc := harborDocument()
	doc["town"].Steps["poster"] = &story.ImageStep{Image: story.SceneImage{Path: "poster.png"}}
	sink := &recordingSink{}
	e := newEditor(t, doc, "town").WithAssetSink(sink)

	require.NoError(t, e.DeleteScene("town"))
	assert.NotContains(t, doc, "town")
	assert.Equal(t, "", doc["harbor"].Steps["leave"].(*story.SceneTransitionStep).NextScene)
	assert.Equal(t, "harbor", e.SceneName())
	assert.Equal(t, [][]string{{"poster.png"}}, sink.calls)

	assert.True(t, errors.Is(e.DeleteScene("harbor"), ErrConflict), "the last scene stays")
	assert.True(t, errors.Is(e.DeleteScene("town"), ErrNotFound))
}

func TestLayout(t *testing.T) {
	doc := story.Document{
		"main": &story.Scene{
			StartingStep: "a",
			Steps: map[string]story.Step{
				"a":      &story.DescriptionStep{Next: "b"},
				"b":      &story.ChoiceStep{Choices: []story.Choice{{Next: "c"}, {Next: "d"}}},
				"c":      &story.DialogueStep{},
				"d":      &story.DialogueStep{Next: "a"},
				"orphan": &story.DialogueStep{},
			},
		},
	}
	e := newEditor(t, doc, "main")

	assert.Equal(t, 5, e.Layout(false))
	pos := doc["main"].NodePositions
	assert.Equal(t, story.Position{X: 0, Y: 0}, pos["a"])
	assert.Equal(t, story.Position{X: ColumnWidth, Y: 0}, pos["b"])
	assert.Equal(t, story.Position{X: 2 * ColumnWidth, Y: 0}, pos["c"])
	assert.Equal(t, story.Position{X: 2 * ColumnWidth, Y: RowHeight}, pos["d"])
	assert.Equal(t, story.Position{X: 3 * ColumnWidth, Y: 0}, pos["orphan"])

	require.NoError(t, e.SetNodePosition("a", 17, 23))
	assert.Equal(t, 0, e.Layout(false), "existing positions are kept")
	assert.Equal(t, story.Position{X: 17, Y: 23}, pos["a"])

	assert.Equal(t, 5, e.Layout(true))
	assert.Equal(t, story.Position{X: 0, Y: 0}, doc["main"].NodePositions["a"])
}
