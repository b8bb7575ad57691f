package player

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/vars"
)

// HistoryEntry is one rendered line of the play transcript.
type HistoryEntry struct {
	StepID     string `json:"stepId"`
	Speaker    string `json:"speaker,omitempty"`
	Text       string `json:"text"`
	IsDialogue bool   `json:"isDialogue,omitempty"`
	IsAction   bool   `json:"isAction,omitempty"`
	Image      string `json:"image,omitempty"`
}

// Options control how a session starts.
type Options struct {
	// KeepHistory retains the transcript across scene transitions.
	KeepHistory bool
	// Vars seeds the variable store.
	Vars map[string]vars.Value
}

// Session is the state of one play-through. The document it walks is only
// read; the session owns its variables and history.
type Session struct {
	ID            uuid.UUID      `json:"id"`
	StoryID       string         `json:"storyId,omitempty"`
	SceneName     string         `json:"sceneName"`
	CurrentStepID string         `json:"currentStepId"`
	Vars          vars.Store     `json:"vars"`
	History       []HistoryEntry `json:"history"`
	Ended         bool           `json:"ended"`
	KeepHistory   bool           `json:"keepHistory,omitempty"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// Start begins play at the starting step of sceneName.
func Start(doc story.Document, sceneName string, opts Options) (*Session, error) {
	sc, ok := doc.Scene(sceneName)
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", sceneName, ErrSceneNotFound)
	}
	if sc.StartingStep == "" {
		return nil, fmt.Errorf("scene %q: %w", sceneName, ErrNoEntryPoint)
	}
	if !sc.HasStep(sc.StartingStep) {
		return nil, fmt.Errorf("starting step %q in scene %q: %w", sc.StartingStep, sceneName, ErrStepNotFound)
	}

	store := vars.NewStore()
	store.SetAll(opts.Vars)
	return &Session{
		ID:            uuid.New(),
		SceneName:     sceneName,
		CurrentStepID: sc.StartingStep,
		Vars:          store,
		History:       make([]HistoryEntry, 0),
		KeepHistory:   opts.KeepHistory,
		UpdatedAt:     time.Now(),
	}, nil
}

// View renders the current step.
func (s *Session) View(doc story.Document) (*View, error) {
	return Render(doc, s.SceneName, s.CurrentStepID, s.Vars)
}

func (s *Session) current(doc story.Document) (story.Step, error) {
	if s.Ended {
		return nil, ErrEnded
	}
	sc, ok := doc.Scene(s.SceneName)
	if !ok {
		return nil, fmt.Errorf("scene %q: %w", s.SceneName, ErrSceneNotFound)
	}
	st, ok := sc.Step(s.CurrentStepID)
	if !ok {
		return nil, fmt.Errorf("step %q in scene %q: %w", s.CurrentStepID, s.SceneName, ErrStepNotFound)
	}
	return st, nil
}

// Advance handles the continue signal. Dialogue, description and image steps
// are recorded and play moves to their effective next, ending at a dead end.
// A scene transition moves to the starting step of its target scene.
func (s *Session) Advance(doc story.Document) error {
	st, err := s.current(doc)
	if err != nil {
		return err
	}

	var next string
	switch step := st.(type) {
	case *story.ChoiceStep:
		return ErrChoiceRequired
	case *story.SceneTransitionStep:
		return s.enterScene(doc, step.NextScene)
	case *story.DialogueStep:
		s.record(HistoryEntry{Speaker: step.Speaker, Text: step.Text, IsDialogue: true})
		next = step.Next
	case *story.DescriptionStep:
		s.record(HistoryEntry{Text: ResolveText(step, s.Vars)})
		next = EffectiveNext(step, s.Vars)
	case *story.ImageStep:
		s.record(HistoryEntry{Text: step.Image.Caption, Image: step.Image.Path})
		next = step.Next
	}

	s.moveTo(next)
	return nil
}

// Choose takes choice i of the current choice step: its variable settings
// are applied, it is recorded, then play moves to its target.
func (s *Session) Choose(doc story.Document, i int) error {
	st, err := s.current(doc)
	if err != nil {
		return err
	}
	step, ok := st.(*story.ChoiceStep)
	if !ok {
		return fmt.Errorf("step %q is %s: %w", s.CurrentStepID, st.Type(), ErrNotChoiceStep)
	}
	if i < 0 || i >= len(step.Choices) {
		return fmt.Errorf("choice %d of %d: %w", i, len(step.Choices), ErrChoiceOutOfRange)
	}
	c := step.Choices[i]

	if s.Vars == nil {
		s.Vars = vars.NewStore()
	}
	for _, set := range c.SetVariables {
		if set.VariableName != "" {
			s.Vars.Set(set.VariableName, set.Value)
		}
	}

	text := c.HistoryText
	if text == "" {
		text = c.Text
	}
	s.record(HistoryEntry{Text: text, IsDialogue: c.HistoryIsDialogue, IsAction: !c.HistoryIsDialogue})

	s.moveTo(c.Next)
	return nil
}

func (s *Session) enterScene(doc story.Document, name string) error {
	sc, ok := doc.Scene(name)
	if !ok {
		return fmt.Errorf("scene %q: %w", name, ErrSceneNotFound)
	}
	if sc.StartingStep == "" {
		return fmt.Errorf("scene %q: %w", name, ErrNoEntryPoint)
	}
	if !sc.HasStep(sc.StartingStep) {
		return fmt.Errorf("starting step %q in scene %q: %w", sc.StartingStep, name, ErrStepNotFound)
	}
	s.SceneName = name
	s.CurrentStepID = sc.StartingStep
	if !s.KeepHistory {
		s.History = make([]HistoryEntry, 0)
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (s *Session) record(entry HistoryEntry) {
	entry.StepID = s.CurrentStepID
	s.History = append(s.History, entry)
}

func (s *Session) moveTo(next string) {
	if next == "" {
		s.Ended = true
	} else {
		s.CurrentStepID = next
	}
	s.UpdatedAt = time.Now()
}
