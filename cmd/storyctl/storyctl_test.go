package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cleanStory = `{
  "harbor": {
    "startingStep": "intro",
    "steps": {
      "intro": {"type": "description", "text": "Gulls cry.", "next": "ask"},
      "ask":   {"type": "choice", "choices": [{"text": "Stay", "next": "intro"}, {"text": "Leave", "next": "leave"}]},
      "leave": {"type": "sceneTransition", "nextScene": "town"}
    }
  },
  "town": {"startingStep": "", "steps": {}}
}`

const brokenYAML = `
harbor:
  startingStep: intro
  steps:
    intro:
      type: dialogue
      speaker: Captain
      text: Aboard!
      next: ghost
`

func writeStory(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	validateStrict = false
	layoutScene, layoutForce, layoutOutput = "", false, ""

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestStoryValidator(t *testing.T) {
	tests := []struct {
		name         string
		file         string
		content      string
		wantErr      bool
		wantProblems int
	}{
		{name: "clean json", file: "harbor.json", content: cleanStory},
		{name: "dangling yaml reference", file: "harbor.yaml", content: brokenYAML, wantProblems: 1},
		{name: "bad extension", file: "harbor.txt", content: cleanStory, wantErr: true},
		{name: "bad filename", file: "my story.json", content: cleanStory, wantErr: true},
		{name: "invalid json", file: "broken.json", content: `{"harbor": `, wantErr: true},
		{name: "no scenes", file: "empty.json", content: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &StoryValidator{}
			err := v.validateFile(writeStory(t, tt.file, tt.content))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, v.problems, tt.wantProblems)
		})
	}
}

func TestValidateCommand(t *testing.T) {
	clean := writeStory(t, "harbor.json", cleanStory)
	broken := writeStory(t, "broken.yaml", brokenYAML)

	stdout, _, err := runCommand(t, "validate", clean, broken)
	require.NoError(t, err)
	assert.Contains(t, stdout, "references missing step \"ghost\"")

	_, stderr, err := runCommand(t, "validate", "--strict", clean, broken)
	require.Error(t, err)
	assert.Contains(t, stderr, "1 problem(s)")
}

func TestLayoutCommand(t *testing.T) {
	in := writeStory(t, "harbor.json", cleanStory)
	out := filepath.Join(t.TempDir(), "laid-out.json")

	_, stderr, err := runCommand(t, "layout", in, "--output", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, `scene "harbor": placed 3 node(s)`)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	doc, err := story.ParseDocument(data)
	require.NoError(t, err)

	positions := doc["harbor"].NodePositions
	require.Len(t, positions, 3)
	assert.Equal(t, story.Position{X: 0, Y: 0}, positions["intro"])
	assert.Equal(t, story.Position{X: 300, Y: 0}, positions["ask"])
	assert.Equal(t, story.Position{X: 600, Y: 0}, positions["leave"])
}

func TestLayoutCommand_UnknownScene(t *testing.T) {
	in := writeStory(t, "harbor.json", cleanStory)
	_, _, err := runCommand(t, "layout", in, "--scene", "attic")
	assert.Error(t, err)
}
