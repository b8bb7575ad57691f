package story

import (
	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/vars"
)

// StepType is the serialized discriminant of a Step.
type StepType string

const (
	StepDialogue        StepType = "dialogue"
	StepDescription     StepType = "description"
	StepChoice          StepType = "choice"
	StepSceneTransition StepType = "sceneTransition"
	StepImage           StepType = "image"
)

// StepTypes lists every variant in palette order.
var StepTypes = []StepType{StepDialogue, StepDescription, StepChoice, StepSceneTransition, StepImage}

func (t StepType) Valid() bool {
	switch t {
	case StepDialogue, StepDescription, StepChoice, StepSceneTransition, StepImage:
		return true
	}
	return false
}

// Step is one node of a scene graph. The set of implementations is closed:
// *DialogueStep, *DescriptionStep, *ChoiceStep, *SceneTransitionStep and *ImageStep.
//
//sumtype:decl
type Step interface {
	Type() StepType
	isStep()
}

// DialogueStep is a line spoken by a named character.
type DialogueStep struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Next    string `json:"next,omitempty"`
}

// DescriptionStep is narration. Its text may contain insertion points written
// as {{id}}, and its conditional branches override Next in order.
type DescriptionStep struct {
	Text                string               `json:"text"`
	Next                string               `json:"next,omitempty"`
	ConditionalBranches []ConditionalBranch  `json:"conditionalBranches,omitempty"`
	InsertionPoints     []TextInsertionPoint `json:"insertionPoints,omitempty"`
}

// ChoiceStep presents every choice; it has no text or next of its own.
type ChoiceStep struct {
	Choices []Choice `json:"choices"`
}

// SceneTransitionStep moves play to the starting step of another scene.
// SetVariables and Requires are carried for compatibility but not applied.
type SceneTransitionStep struct {
	Text         string                   `json:"text"`
	NextScene    string                   `json:"nextScene"`
	SetVariables []VariableSetting        `json:"setVariables,omitempty"`
	Requires     []conditionals.Condition `json:"requires,omitempty"`
}

// ImageStep shows an uploaded image.
type ImageStep struct {
	Image SceneImage `json:"image"`
	Next  string     `json:"next,omitempty"`
}

func (*DialogueStep) Type() StepType        { return StepDialogue }
func (*DescriptionStep) Type() StepType     { return StepDescription }
func (*ChoiceStep) Type() StepType          { return StepChoice }
func (*SceneTransitionStep) Type() StepType { return StepSceneTransition }
func (*ImageStep) Type() StepType           { return StepImage }

func (*DialogueStep) isStep()        {}
func (*DescriptionStep) isStep()     {}
func (*ChoiceStep) isStep()          {}
func (*SceneTransitionStep) isStep() {}
func (*ImageStep) isStep()           {}

// Choice is one option of a ChoiceStep. SetVariables are written to the
// player's store when the choice is taken. Requires is a legacy field that
// play does not enforce.
type Choice struct {
	Text              string                   `json:"text"`
	Next              string                   `json:"next"`
	HistoryText       string                   `json:"historyText,omitempty"`
	IsDialogue        bool                     `json:"isDialogue,omitempty"`
	HistoryIsDialogue bool                     `json:"historyIsDialogue,omitempty"`
	SetVariables      []VariableSetting        `json:"setVariables,omitempty"`
	Requires          []conditionals.Condition `json:"requires,omitempty"`
}

type VariableSetting struct {
	VariableName string     `json:"variableName"`
	Value        vars.Value `json:"value"`
}

// ConditionalBranch overrides a description's Next when its condition holds.
type ConditionalBranch struct {
	Condition conditionals.Condition `json:"condition"`
	Next      string                 `json:"next"`
}

// TextInsertionPoint is a named slot in description text. The first variant
// whose condition holds supplies the text; otherwise the slot is empty.
type TextInsertionPoint struct {
	ID       string        `json:"id"`
	Variants []TextVariant `json:"variants"`
}

type TextVariant struct {
	Condition conditionals.Condition `json:"condition"`
	Text      string                 `json:"text"`
}

// SceneImage references an uploaded asset by its storage path.
type SceneImage struct {
	Path    string `json:"path"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Position is the editor canvas location of a node.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewStep returns the default shape for a step type, or nil for an unknown type.
func NewStep(t StepType) Step {
	switch t {
	case StepDialogue:
		return &DialogueStep{}
	case StepDescription:
		return &DescriptionStep{}
	case StepChoice:
		return &ChoiceStep{Choices: []Choice{}}
	case StepSceneTransition:
		return &SceneTransitionStep{}
	case StepImage:
		return &ImageStep{}
	}
	return nil
}

// NextOf returns the single next pointer of a step, if its variant has one.
func NextOf(s Step) (string, bool) {
	switch st := s.(type) {
	case *DialogueStep:
		return st.Next, true
	case *DescriptionStep:
		return st.Next, true
	case *ImageStep:
		return st.Next, true
	case *ChoiceStep, *SceneTransitionStep:
		return "", false
	}
	return "", false
}

// SetNext overwrites the single next pointer. It reports false for variants
// without one.
func SetNext(s Step, next string) bool {
	switch st := s.(type) {
	case *DialogueStep:
		st.Next = next
	case *DescriptionStep:
		st.Next = next
	case *ImageStep:
		st.Next = next
	case *ChoiceStep, *SceneTransitionStep:
		return false
	default:
		return false
	}
	return true
}
