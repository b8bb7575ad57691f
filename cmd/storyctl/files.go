package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/story"
)

// loadDocument reads a story file, choosing the decoder by extension.
func loadDocument(filename string) (story.Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return story.ParseDocument(data)
	case ".yaml", ".yml":
		return story.ParseYAML(data)
	}
	return nil, fmt.Errorf("story file must have a .json, .yaml or .yml extension: %s", filepath.Base(filename))
}

// storyIDFromFilename is the id a file would be stored under.
func storyIDFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
