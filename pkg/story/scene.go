package story

import (
	"slices"
	"sort"
)

// DefaultSceneName names the single scene of a new document.
const DefaultSceneName = "main"

// Scene is a self-contained sub-graph of steps with one entry point.
type Scene struct {
	StartingStep  string              `json:"startingStep"`
	Steps         map[string]Step     `json:"steps"`
	NodePositions map[string]Position `json:"nodePositions,omitempty"`
}

// Document maps scene names to scenes. Cross-scene references use scene names.
type Document map[string]*Scene

func NewScene() *Scene {
	return &Scene{Steps: make(map[string]Step)}
}

// NewDocument returns a story with one empty scene.
func NewDocument() Document {
	return Document{DefaultSceneName: NewScene()}
}

func (d Document) Scene(name string) (*Scene, bool) {
	sc, ok := d[name]
	return sc, ok && sc != nil
}

// SceneNames returns scene names in sorted order.
func (d Document) SceneNames() []string {
	names := make([]string, 0, len(d))
	for name := range d {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (sc *Scene) Step(id string) (Step, bool) {
	if sc == nil || id == "" {
		return nil, false
	}
	st, ok := sc.Steps[id]
	return st, ok && st != nil
}

func (sc *Scene) HasStep(id string) bool {
	_, ok := sc.Step(id)
	return ok
}

// StepIDs returns step ids in sorted order.
func (sc *Scene) StepIDs() []string {
	ids := make([]string, 0, len(sc.Steps))
	for id := range sc.Steps {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d Document) Clone() Document {
	out := make(Document, len(d))
	for name, sc := range d {
		out[name] = sc.Clone()
	}
	return out
}

func (sc *Scene) Clone() *Scene {
	if sc == nil {
		return nil
	}
	out := &Scene{
		StartingStep: sc.StartingStep,
		Steps:        make(map[string]Step, len(sc.Steps)),
	}
	for id, st := range sc.Steps {
		out.Steps[id] = CloneStep(st)
	}
	if sc.NodePositions != nil {
		out.NodePositions = make(map[string]Position, len(sc.NodePositions))
		for id, p := range sc.NodePositions {
			out.NodePositions[id] = p
		}
	}
	return out
}

// CloneStep deep-copies a step so edits to the copy never alias the original.
func CloneStep(s Step) Step {
	switch st := s.(type) {
	case *DialogueStep:
		c := *st
		return &c
	case *DescriptionStep:
		c := *st
		c.ConditionalBranches = slices.Clone(st.ConditionalBranches)
		if st.InsertionPoints != nil {
			c.InsertionPoints = make([]TextInsertionPoint, len(st.InsertionPoints))
			for i, ip := range st.InsertionPoints {
				c.InsertionPoints[i] = TextInsertionPoint{ID: ip.ID, Variants: slices.Clone(ip.Variants)}
			}
		}
		return &c
	case *ChoiceStep:
		c := ChoiceStep{}
		if st.Choices != nil {
			c.Choices = make([]Choice, len(st.Choices))
			for i, ch := range st.Choices {
				ch.SetVariables = slices.Clone(ch.SetVariables)
				ch.Requires = slices.Clone(ch.Requires)
				c.Choices[i] = ch
			}
		}
		return &c
	case *SceneTransitionStep:
		c := *st
		c.SetVariables = slices.Clone(st.SetVariables)
		c.Requires = slices.Clone(st.Requires)
		return &c
	case *ImageStep:
		c := *st
		return &c
	}
	return nil
}
