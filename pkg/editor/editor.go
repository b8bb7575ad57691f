package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jwebster45206/story-graph/pkg/story"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidType  = errors.New("invalid step type")
	ErrInvalidPatch = errors.New("invalid step data")
)

// AssetSink receives asset paths that are no longer referenced by the story.
// Deletion is best effort: the sink reports nothing back to the editor.
type AssetSink interface {
	ScheduleAssetDeletion(ctx context.Context, filenames []string)
}

// Editor is an authoring session over one document. Operations apply to the
// current scene. The editor is not safe for concurrent use.
type Editor struct {
	doc    story.Document
	scene  string
	assets AssetSink
	logger *slog.Logger
	ctx    context.Context
}

// New starts an editing session on the named scene of doc. The document is
// edited in place.
func New(doc story.Document, sceneName string) (*Editor, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil")
	}
	if _, ok := doc.Scene(sceneName); !ok {
		return nil, fmt.Errorf("scene %q: %w", sceneName, ErrNotFound)
	}
	return &Editor{
		doc:    doc,
		scene:  sceneName,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		ctx:    context.Background(),
	}, nil
}

// WithLogger sets the logger used for best-effort side effects.
// Returns the Editor for method chaining
func (e *Editor) WithLogger(logger *slog.Logger) *Editor {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// WithAssetSink sets where orphaned image paths are sent on delete.
// Returns the Editor for method chaining
func (e *Editor) WithAssetSink(sink AssetSink) *Editor {
	e.assets = sink
	return e
}

// WithContext sets the context handed to the asset sink.
// Returns the Editor for method chaining
func (e *Editor) WithContext(ctx context.Context) *Editor {
	e.ctx = ctx
	return e
}

func (e *Editor) Document() story.Document { return e.doc }
func (e *Editor) SceneName() string        { return e.scene }

// Scene returns the current scene.
func (e *Editor) Scene() *story.Scene {
	return e.doc[e.scene]
}

// Step returns a step of the current scene.
func (e *Editor) Step(id string) (story.Step, error) {
	st, ok := e.Scene().Step(id)
	if !ok {
		return nil, fmt.Errorf("step %q: %w", id, ErrNotFound)
	}
	return st, nil
}
