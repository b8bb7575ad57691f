package editor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jwebster45206/story-graph/pkg/story"
)

// Patch is a shallow set of step fields keyed by their serialized names.
// A nil value removes the field, resetting it to its zero value.
type Patch map[string]interface{}

// AddStep inserts a default-shaped step of type t, applies patch to it and
// returns the generated id. The first non-image step added to an empty scene
// becomes its starting step.
func (e *Editor) AddStep(t story.StepType, patch Patch) (string, error) {
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
	sc := e.Scene()

	var st story.Step = story.NewStep(t)
	if len(patch) > 0 {
		merged, err := mergePatch(st, patch)
		if err != nil {
			return "", err
		}
		st = merged
	}

	wasEmpty := len(sc.Steps) == 0
	id := e.nextStepID(t)
	sc.Steps[id] = st

	if wasEmpty && t != story.StepImage {
		sc.StartingStep = id
	}
	e.Layout(false)

	e.logger.Debug("Step added", "scene", e.scene, "step_id", id, "type", t)
	return id, nil
}

// nextStepID returns the first free "<type>_<n>" id, counting from the
// number of steps already in the scene.
func (e *Editor) nextStepID(t story.StepType) string {
	sc := e.Scene()
	for n := len(sc.Steps) + 1; ; n++ {
		id := fmt.Sprintf("%s_%d", t, n)
		if _, exists := sc.Steps[id]; !exists {
			return id
		}
	}
}

// UpdateStepData shallow-merges patch into a step, keeping its variant.
// Fields that do not belong to the variant are rejected.
func (e *Editor) UpdateStepData(id string, patch Patch) error {
	st, err := e.Step(id)
	if err != nil {
		return err
	}
	merged, err := mergePatch(st, patch)
	if err != nil {
		return fmt.Errorf("step %q: %w", id, err)
	}
	e.Scene().Steps[id] = merged
	return nil
}

func mergePatch(st story.Step, patch Patch) (story.Step, error) {
	base, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal step: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("failed to read step fields: %w", err)
	}
	delete(fields, "type")

	for key, value := range patch {
		if key == "type" {
			continue
		}
		if value == nil {
			delete(fields, key)
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %v", ErrInvalidPatch, key, err)
		}
		fields[key] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}

	out := story.NewStep(st.Type())
	dec := json.NewDecoder(bytes.NewReader(merged))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}

// RenameStep moves a step to a new id and retargets every reference to it,
// including the starting step and its canvas position. Renaming a step to
// its own id is a no-op.
func (e *Editor) RenameStep(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	if newID == "" {
		return fmt.Errorf("%w: step id cannot be empty", ErrInvalidID)
	}
	sc := e.Scene()
	st, ok := sc.Step(oldID)
	if !ok {
		return fmt.Errorf("step %q: %w", oldID, ErrNotFound)
	}
	if _, exists := sc.Steps[newID]; exists {
		return fmt.Errorf("step %q already exists: %w", newID, ErrConflict)
	}

	delete(sc.Steps, oldID)
	sc.Steps[newID] = st

	rewritten := 0
	for _, other := range sc.Steps {
		rewritten += story.RewriteReferences(other, oldID, newID)
	}
	if sc.StartingStep == oldID {
		sc.StartingStep = newID
	}
	if pos, ok := sc.NodePositions[oldID]; ok {
		delete(sc.NodePositions, oldID)
		sc.NodePositions[newID] = pos
	}

	e.logger.Debug("Step renamed",
		"scene", e.scene,
		"old_id", oldID,
		"new_id", newID,
		"references_rewritten", rewritten)
	return nil
}

// DeleteSteps removes the given steps and repairs the graph: next pointers to
// them are cleared, choices and branches targeting them are dropped, and a
// starting step among them is cleared. Unknown ids are ignored, so repeating
// a delete is harmless. Images no longer used anywhere in the document are
// handed to the asset sink. It returns the ids actually removed, sorted.
func (e *Editor) DeleteSteps(ids ...string) []string {
	sc := e.Scene()
	dead := make(map[string]bool, len(ids))
	var removed []string
	var images []string

	for _, id := range ids {
		if id == "" {
			continue
		}
		dead[id] = true
		st, ok := sc.Steps[id]
		if !ok {
			continue
		}
		if img, isImage := st.(*story.ImageStep); isImage && img.Image.Path != "" {
			images = append(images, img.Image.Path)
		}
		delete(sc.Steps, id)
		delete(sc.NodePositions, id)
		removed = append(removed, id)
	}
	if len(dead) == 0 {
		return nil
	}

	isDead := func(id string) bool { return dead[id] }
	stripped := 0
	for _, st := range sc.Steps {
		stripped += story.StripReferences(st, isDead)
	}
	if dead[sc.StartingStep] {
		sc.StartingStep = ""
	}

	e.releaseAssets(images)

	sort.Strings(removed)
	if len(removed) > 0 {
		e.logger.Debug("Steps deleted",
			"scene", e.scene,
			"removed", removed,
			"references_stripped", stripped)
	}
	return removed
}

// releaseAssets hands image paths that nothing references anymore to the sink.
func (e *Editor) releaseAssets(paths []string) {
	if e.assets == nil || len(paths) == 0 {
		return
	}
	inUse := e.doc.ImagePaths()
	seen := make(map[string]bool)
	var orphaned []string
	for _, p := range paths {
		if inUse[p] > 0 || seen[p] {
			continue
		}
		seen[p] = true
		orphaned = append(orphaned, p)
	}
	if len(orphaned) == 0 {
		return
	}
	e.logger.Info("Scheduling orphaned assets for deletion", "scene", e.scene, "assets", orphaned)
	e.assets.ScheduleAssetDeletion(e.ctx, orphaned)
}

// Connect adds an edge from source to target. A choice step gains a new
// choice; steps with a single next pointer have it overwritten. Scene
// transitions and missing ids are left untouched. It reports whether an
// edge was made.
func (e *Editor) Connect(sourceID, targetID string) bool {
	sc := e.Scene()
	src, ok := sc.Step(sourceID)
	if !ok || !sc.HasStep(targetID) {
		return false
	}

	switch st := src.(type) {
	case *story.ChoiceStep:
		st.Choices = append(st.Choices, story.Choice{Next: targetID})
		return true
	case *story.DialogueStep, *story.DescriptionStep, *story.ImageStep:
		return story.SetNext(st, targetID)
	case *story.SceneTransitionStep:
		return false
	}
	return false
}

// Disconnect removes every edge from source to target using the same rules
// as delete. It returns the number of edges removed.
func (e *Editor) Disconnect(sourceID, targetID string) int {
	src, ok := e.Scene().Step(sourceID)
	if !ok || targetID == "" {
		return 0
	}
	return story.StripReferences(src, func(id string) bool { return id == targetID })
}

// SetNodePosition records where a node sits on the editor canvas.
func (e *Editor) SetNodePosition(id string, x, y float64) error {
	sc := e.Scene()
	if !sc.HasStep(id) {
		return fmt.Errorf("step %q: %w", id, ErrNotFound)
	}
	if sc.NodePositions == nil {
		sc.NodePositions = make(map[string]story.Position)
	}
	sc.NodePositions[id] = story.Position{X: x, Y: y}
	return nil
}

// SetStartingStep sets the scene entry point. An empty id clears it.
func (e *Editor) SetStartingStep(id string) error {
	sc := e.Scene()
	if id != "" && !sc.HasStep(id) {
		return fmt.Errorf("step %q: %w", id, ErrNotFound)
	}
	sc.StartingStep = id
	return nil
}
