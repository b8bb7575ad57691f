package editor

import (
	"fmt"

	"github.com/jwebster45206/story-graph/pkg/story"
)

// SwitchScene makes another scene current.
func (e *Editor) SwitchScene(name string) error {
	if _, ok := e.doc.Scene(name); !ok {
		return fmt.Errorf("scene %q: %w", name, ErrNotFound)
	}
	e.scene = name
	return nil
}

// AddScene creates an empty scene. It does not change the current scene.
func (e *Editor) AddScene(name string) error {
	if name == "" {
		return fmt.Errorf("%w: scene name cannot be empty", ErrInvalidID)
	}
	if _, exists := e.doc[name]; exists {
		return fmt.Errorf("scene %q already exists: %w", name, ErrConflict)
	}
	e.doc[name] = story.NewScene()
	return nil
}

// RenameScene moves a scene to a new name and retargets every scene
// transition in the document that pointed at it.
func (e *Editor) RenameScene(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if newName == "" {
		return fmt.Errorf("%w: scene name cannot be empty", ErrInvalidID)
	}
	sc, ok := e.doc.Scene(oldName)
	if !ok {
		return fmt.Errorf("scene %q: %w", oldName, ErrNotFound)
	}
	if _, exists := e.doc[newName]; exists {
		return fmt.Errorf("scene %q already exists: %w", newName, ErrConflict)
	}

	delete(e.doc, oldName)
	e.doc[newName] = sc
	rewritten := e.forEachTransition(func(t *story.SceneTransitionStep) bool {
		if t.NextScene != oldName {
			return false
		}
		t.NextScene = newName
		return true
	})
	if e.scene == oldName {
		e.scene = newName
	}

	e.logger.Debug("Scene renamed", "old_name", oldName, "new_name", newName, "transitions_rewritten", rewritten)
	return nil
}

// DeleteScene removes a scene and clears transitions that targeted it. The
// last remaining scene cannot be deleted. When the current scene is removed
// the session moves to the first remaining scene by name.
func (e *Editor) DeleteScene(name string) error {
	sc, ok := e.doc.Scene(name)
	if !ok {
		return fmt.Errorf("scene %q: %w", name, ErrNotFound)
	}
	if len(e.doc) == 1 {
		return fmt.Errorf("cannot delete the only scene %q: %w", name, ErrConflict)
	}

	var images []string
	for _, st := range sc.Steps {
		if img, isImage := st.(*story.ImageStep); isImage && img.Image.Path != "" {
			images = append(images, img.Image.Path)
		}
	}

	delete(e.doc, name)
	cleared := e.forEachTransition(func(t *story.SceneTransitionStep) bool {
		if t.NextScene != name {
			return false
		}
		t.NextScene = ""
		return true
	})
	if e.scene == name {
		e.scene = e.doc.SceneNames()[0]
	}
	e.releaseAssets(images)

	e.logger.Debug("Scene deleted", "scene", name, "transitions_cleared", cleared)
	return nil
}

func (e *Editor) forEachTransition(fn func(*story.SceneTransitionStep) bool) int {
	n := 0
	for _, sc := range e.doc {
		if sc == nil {
			continue
		}
		for _, st := range sc.Steps {
			if t, ok := st.(*story.SceneTransitionStep); ok && fn(t) {
				n++
			}
		}
	}
	return n
}
