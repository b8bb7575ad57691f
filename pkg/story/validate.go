package story

import (
	"fmt"
	"sort"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
)

// Problem is one integrity issue found in a document. Problems are advisory:
// an author may leave the graph inconsistent between edits.
type Problem struct {
	Scene   string `json:"scene"`
	Step    string `json:"step,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p Problem) String() string {
	if p.Step == "" {
		return fmt.Sprintf("scene %q: %s: %s", p.Scene, p.Field, p.Message)
	}
	return fmt.Sprintf("scene %q step %q: %s: %s", p.Scene, p.Step, p.Field, p.Message)
}

type validator struct {
	doc      Document
	problems []Problem
}

// Validate checks the cross-reference invariants of a document. Results are
// ordered by scene, then step id.
func Validate(doc Document) []Problem {
	v := &validator{doc: doc}
	for _, name := range doc.SceneNames() {
		v.validateScene(name, doc[name])
	}
	return v.problems
}

func (v *validator) add(scene, step, field, format string, args ...interface{}) {
	v.problems = append(v.problems, Problem{
		Scene:   scene,
		Step:    step,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *validator) validateScene(name string, sc *Scene) {
	if sc == nil {
		v.add(name, "", "scene", "scene is null")
		return
	}

	if sc.StartingStep == "" {
		if len(sc.Steps) > 0 {
			v.add(name, "", "startingStep", "scene has no starting step")
		}
	} else if !sc.HasStep(sc.StartingStep) {
		v.add(name, "", "startingStep", "references missing step %q", sc.StartingStep)
	}

	for _, id := range sc.StepIDs() {
		st := sc.Steps[id]
		if st == nil {
			v.add(name, id, "step", "step is null")
			continue
		}
		for _, ref := range References(st) {
			if !sc.HasStep(ref.Target) {
				v.add(name, id, refField(ref), "references missing step %q", ref.Target)
			}
		}
		v.validateStep(name, id, st)
	}

	positions := make([]string, 0, len(sc.NodePositions))
	for id := range sc.NodePositions {
		if !sc.HasStep(id) {
			positions = append(positions, id)
		}
	}
	sort.Strings(positions)
	for _, id := range positions {
		v.add(name, id, "nodePositions", "position recorded for missing step")
	}
}

func (v *validator) validateStep(scene, id string, s Step) {
	switch st := s.(type) {
	case *DescriptionStep:
		for i, br := range st.ConditionalBranches {
			v.validateCondition(scene, id, fmt.Sprintf("conditionalBranches[%d].condition", i), br.Condition)
		}
		seen := make(map[string]bool)
		for i, ip := range st.InsertionPoints {
			field := fmt.Sprintf("insertionPoints[%d]", i)
			if ip.ID == "" {
				v.add(scene, id, field, "insertion point has no id")
			} else if seen[ip.ID] {
				v.add(scene, id, field, "duplicate insertion point id %q", ip.ID)
			}
			seen[ip.ID] = true
			for j, variant := range ip.Variants {
				if variant.Condition.IsZero() {
					continue
				}
				v.validateCondition(scene, id, fmt.Sprintf("%s.variants[%d].condition", field, j), variant.Condition)
			}
		}
	case *ChoiceStep:
		for i, ch := range st.Choices {
			for j, set := range ch.SetVariables {
				field := fmt.Sprintf("choices[%d].setVariables[%d]", i, j)
				if set.VariableName == "" {
					v.add(scene, id, field, "variable name is empty")
				}
				if !set.Value.IsValid() {
					v.add(scene, id, field, "no value to set")
				}
			}
		}
	case *SceneTransitionStep:
		if st.NextScene == "" {
			v.add(scene, id, "nextScene", "scene transition has no target scene")
		} else if _, ok := v.doc.Scene(st.NextScene); !ok {
			v.add(scene, id, "nextScene", "references missing scene %q", st.NextScene)
		}
	case *ImageStep:
		if st.Image.Path == "" {
			v.add(scene, id, "image.path", "image step has no image")
		}
	case *DialogueStep:
	}
}

func (v *validator) validateCondition(scene, id, field string, c conditionals.Condition) {
	if c.VariableName == "" {
		v.add(scene, id, field, "condition has no variable name")
	}
	if !c.Operator.Valid() {
		v.add(scene, id, field, "unsupported operator %q", c.Operator)
	}
	if !c.Value.IsValid() {
		v.add(scene, id, field, "condition has no comparison value")
	}
}

func refField(ref Ref) string {
	switch ref.Kind {
	case EdgeChoice:
		return fmt.Sprintf("choices[%d].next", ref.Index)
	case EdgeBranch:
		return fmt.Sprintf("conditionalBranches[%d].next", ref.Index)
	default:
		return "next"
	}
}
