package story

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMissingType = errors.New("step is missing a type")
	ErrUnknownType = errors.New("unknown step type")
)

func (s *DialogueStep) MarshalJSON() ([]byte, error) {
	type alias DialogueStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		*alias
	}{StepDialogue, (*alias)(s)})
}

func (s *DescriptionStep) MarshalJSON() ([]byte, error) {
	type alias DescriptionStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		*alias
	}{StepDescription, (*alias)(s)})
}

func (s *ChoiceStep) MarshalJSON() ([]byte, error) {
	type alias ChoiceStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		*alias
	}{StepChoice, (*alias)(s)})
}

func (s *SceneTransitionStep) MarshalJSON() ([]byte, error) {
	type alias SceneTransitionStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		*alias
	}{StepSceneTransition, (*alias)(s)})
}

func (s *ImageStep) MarshalJSON() ([]byte, error) {
	type alias ImageStep
	return json.Marshal(struct {
		Type StepType `json:"type"`
		*alias
	}{StepImage, (*alias)(s)})
}

// UnmarshalStep decodes one step, dispatching on its "type" field.
func UnmarshalStep(data []byte) (Step, error) {
	var head struct {
		Type StepType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to read step type: %w", err)
	}
	if head.Type == "" {
		return nil, ErrMissingType
	}

	step := NewStep(head.Type)
	if step == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
	if err := json.Unmarshal(data, step); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s step: %w", head.Type, err)
	}
	return step, nil
}

// UnmarshalJSON decodes the steps map through UnmarshalStep.
func (sc *Scene) UnmarshalJSON(data []byte) error {
	var aux struct {
		StartingStep  string                     `json:"startingStep"`
		Steps         map[string]json.RawMessage `json:"steps"`
		NodePositions map[string]Position        `json:"nodePositions,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	steps := make(map[string]Step, len(aux.Steps))
	for id, raw := range aux.Steps {
		step, err := UnmarshalStep(raw)
		if err != nil {
			return fmt.Errorf("step %q: %w", id, err)
		}
		steps[id] = step
	}

	sc.StartingStep = aux.StartingStep
	sc.Steps = steps
	sc.NodePositions = aux.NodePositions
	return nil
}

// ParseDocument decodes a serialized story document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse story document: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	for name, sc := range doc {
		if sc == nil {
			doc[name] = NewScene()
		}
	}
	return doc, nil
}

// Marshal serializes the document in its storage shape.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal story document: %w", err)
	}
	return data, nil
}
