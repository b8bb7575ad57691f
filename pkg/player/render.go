package player

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/vars"
)

var (
	ErrSceneNotFound    = errors.New("scene not found")
	ErrStepNotFound     = errors.New("step not found")
	ErrNoEntryPoint     = errors.New("scene has no starting step")
	ErrChoiceRequired   = errors.New("current step requires a choice")
	ErrNotChoiceStep    = errors.New("current step is not a choice")
	ErrChoiceOutOfRange = errors.New("choice index out of range")
	ErrEnded            = errors.New("story has ended")
)

// ChoiceView is one clickable option of a choice step.
type ChoiceView struct {
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Next       string `json:"next,omitempty"`
	IsDialogue bool   `json:"isDialogue,omitempty"`
}

// View is the resolved content of a step for the current variables.
type View struct {
	Kind      story.StepType    `json:"kind"`
	SceneName string            `json:"sceneName"`
	StepID    string            `json:"stepId"`
	Speaker   string            `json:"speaker,omitempty"`
	Text      string            `json:"text,omitempty"`
	Image     *story.SceneImage `json:"image,omitempty"`
	Choices   []ChoiceView      `json:"choices,omitempty"`

	// Next is the effective next step after branches are applied.
	Next      string `json:"next,omitempty"`
	NextScene string `json:"nextScene,omitempty"`

	// Transitions lists the step ids play can move to from here.
	Transitions []string `json:"transitions"`
	Terminal    bool     `json:"terminal"`
}

// Render resolves a step against store. It never modifies doc.
func Render(doc story.Document, sceneName, stepID string, store vars.Reader) (*View, error) {
	sc, ok := doc.Scene(sceneName)
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", sceneName, ErrSceneNotFound)
	}
	st, ok := sc.Step(stepID)
	if !ok {
		return nil, fmt.Errorf("step %q in scene %q: %w", stepID, sceneName, ErrStepNotFound)
	}

	v := &View{
		Kind:        st.Type(),
		SceneName:   sceneName,
		StepID:      stepID,
		Transitions: []string{},
	}

	switch s := st.(type) {
	case *story.DialogueStep:
		v.Speaker = s.Speaker
		v.Text = s.Text
		v.Next = s.Next
	case *story.DescriptionStep:
		v.Text = ResolveText(s, store)
		v.Next = EffectiveNext(s, store)
	case *story.ImageStep:
		img := s.Image
		v.Image = &img
		v.Next = s.Next
	case *story.ChoiceStep:
		v.Choices = make([]ChoiceView, len(s.Choices))
		for i, c := range s.Choices {
			v.Choices[i] = ChoiceView{Index: i, Text: c.Text, Next: c.Next, IsDialogue: c.IsDialogue}
			if c.Next != "" {
				v.Transitions = append(v.Transitions, c.Next)
			}
		}
	case *story.SceneTransitionStep:
		v.Text = s.Text
		v.NextScene = s.NextScene
	}

	if v.Next != "" {
		v.Transitions = append(v.Transitions, v.Next)
	}
	v.Terminal = IsTerminal(st, v.Next)
	return v, nil
}

// IsTerminal reports whether play halts at a step whose effective next is
// next. Choices and scene transitions are never dead ends.
func IsTerminal(st story.Step, next string) bool {
	switch st.(type) {
	case *story.ChoiceStep, *story.SceneTransitionStep:
		return false
	}
	return next == ""
}

// EffectiveNext returns the target of the first conditional branch that
// holds, falling back to the step's own next.
func EffectiveNext(s *story.DescriptionStep, store vars.Reader) string {
	for _, b := range s.ConditionalBranches {
		if conditionals.Evaluate(b.Condition, store) {
			return b.Next
		}
	}
	return s.Next
}

// ResolveText replaces each {{id}} insertion point with the text of its
// first matching variant. Unmatched points render as empty.
func ResolveText(s *story.DescriptionStep, store vars.Reader) string {
	if len(s.InsertionPoints) == 0 {
		return s.Text
	}
	pairs := make([]string, 0, 2*len(s.InsertionPoints))
	for _, ip := range s.InsertionPoints {
		pairs = append(pairs, "{{"+ip.ID+"}}", resolveInsertion(ip, store))
	}
	return strings.NewReplacer(pairs...).Replace(s.Text)
}

func resolveInsertion(ip story.TextInsertionPoint, store vars.Reader) string {
	for _, variant := range ip.Variants {
		if conditionals.Evaluate(variant.Condition, store) {
			return variant.Text
		}
	}
	return ""
}
