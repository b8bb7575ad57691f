package player

import (
	"errors"
	"testing"

	"github.com/jwebster45206/story-graph/pkg/conditionals"
	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/jwebster45206/story-graph/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cond(name string, op conditionals.Operator, v vars.Value) conditionals.Condition {
	return conditionals.Condition{VariableName: name, Operator: op, Value: v}
}

// tavernDocument: door -> barkeep -> offer{drink, leave}; drink -> gate
// (transition to street); leave ends. street has a single dialogue.
func tavernDocument() story.Document {
	return story.Document{
		"tavern": &story.Scene{
			StartingStep: "door",
			Steps: map[string]story.Step{
				"door": &story.DescriptionStep{
					Text: "The tavern is {{mood}}.",
					Next: "barkeep",
					InsertionPoints: []story.TextInsertionPoint{{
						ID: "mood",
						Variants: []story.TextVariant{
							{Condition: cond("drunk", conditionals.OpEqual, vars.Bool(true)), Text: "spinning"},
							{Condition: cond("drunk", conditionals.OpEqual, vars.Bool(false)), Text: "quiet"},
						},
					}},
				},
				"barkeep": &story.DialogueStep{Speaker: "Barkeep", Text: "What'll it be?", Next: "offer"},
				"offer": &story.ChoiceStep{Choices: []story.Choice{
					{
						Text:         "Ale, please.",
						HistoryText:  "You order an ale.",
						Next:         "gate",
						SetVariables: []story.VariableSetting{{VariableName: "drunk", Value: vars.Bool(true)}},
					},
					{Text: "Nothing.", IsDialogue: true, HistoryIsDialogue: true},
				}},
				"gate": &story.SceneTransitionStep{Text: "You stumble outside.", NextScene: "street"},
			},
		},
		"street": &story.Scene{
			StartingStep: "guard",
			Steps: map[string]story.Step{
				"guard": &story.DialogueStep{Speaker: "Guard", Text: "Move along."},
			},
		},
	}
}

func TestEffectiveNext_BranchOverridesNext(t *testing.T) {
	step := &story.DescriptionStep{
		Next: "fallback",
		ConditionalBranches: []story.ConditionalBranch{
			{Condition: cond("trust", conditionals.OpGreaterEqual, vars.Number(2)), Next: "branchA"},
			{Condition: cond("trust", conditionals.OpLess, vars.Number(2)), Next: "branchB"},
		},
	}

	tests := []struct {
		name  string
		store vars.Store
		want  string
	}{
		{"low trust", vars.Store{"trust": vars.Number(1)}, "branchB"},
		{"high trust", vars.Store{"trust": vars.Number(5)}, "branchA"},
		{"undefined trust falls back", vars.Store{}, "fallback"},
		{"non-numeric trust falls back", vars.Store{"trust": vars.String("lots")}, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EffectiveNext(step, tt.store))
		})
	}
}

func TestResolveText(t *testing.T) {
	step := &story.DescriptionStep{
		Text: "\"{{secret}}\" she says. {{missing}}",
		InsertionPoints: []story.TextInsertionPoint{{
			ID: "secret",
			Variants: []story.TextVariant{
				{Condition: cond("knowsSecret", conditionals.OpEqual, vars.Bool(true)), Text: "I know."},
				{Condition: conditionals.Condition{}, Text: ""},
			},
		}},
	}

	assert.Equal(t, "\"\" she says. {{missing}}", ResolveText(step, vars.Store{}),
		"an undefined variable renders the slot empty; unknown placeholders are left alone")
	assert.Equal(t, "\"I know.\" she says. {{missing}}",
		ResolveText(step, vars.Store{"knowsSecret": vars.Bool(true)}))
}

func TestResolveText_FirstVariantWins(t *testing.T) {
	step := &story.DescriptionStep{
		Text: "{{x}}",
		InsertionPoints: []story.TextInsertionPoint{{
			ID: "x",
			Variants: []story.TextVariant{
				{Condition: cond("n", conditionals.OpGreater, vars.Number(0)), Text: "first"},
				{Condition: cond("n", conditionals.OpGreater, vars.Number(1)), Text: "second"},
			},
		}},
	}
	assert.Equal(t, "first", ResolveText(step, vars.Store{"n": vars.Number(5)}))
}

func TestRender(t *testing.T) {
	doc := tavernDocument()
	before, err := doc.Marshal()
	require.NoError(t, err)

	t.Run("description", func(t *testing.T) {
		v, err := Render(doc, "tavern", "door", vars.Store{"drunk": vars.Bool(false)})
		require.NoError(t, err)
		assert.Equal(t, story.StepDescription, v.Kind)
		assert.Equal(t, "The tavern is quiet.", v.Text)
		assert.Equal(t, "barkeep", v.Next)
		assert.Equal(t, []string{"barkeep"}, v.Transitions)
		assert.False(t, v.Terminal)
	})

	t.Run("choice shows every option", func(t *testing.T) {
		v, err := Render(doc, "tavern", "offer", nil)
		require.NoError(t, err)
		require.Len(t, v.Choices, 2)
		assert.Equal(t, ChoiceView{Index: 1, Text: "Nothing.", IsDialogue: true}, v.Choices[1])
		assert.Equal(t, []string{"gate"}, v.Transitions)
		assert.False(t, v.Terminal)
	})

	t.Run("scene transition", func(t *testing.T) {
		v, err := Render(doc, "tavern", "gate", nil)
		require.NoError(t, err)
		assert.Equal(t, "street", v.NextScene)
		assert.Empty(t, v.Transitions)
		assert.False(t, v.Terminal)
	})

	t.Run("dead end", func(t *testing.T) {
		v, err := Render(doc, "street", "guard", nil)
		require.NoError(t, err)
		assert.Equal(t, "Guard", v.Speaker)
		assert.True(t, v.Terminal)
	})

	t.Run("missing ids", func(t *testing.T) {
		_, err := Render(doc, "cellar", "door", nil)
		assert.True(t, errors.Is(err, ErrSceneNotFound))
		_, err = Render(doc, "tavern", "cellar", nil)
		assert.True(t, errors.Is(err, ErrStepNotFound))
	})

	after, err := doc.Marshal()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after), "rendering never touches the document")
}

func TestSession_PlayThrough(t *testing.T) {
	doc := tavernDocument()
	s, err := Start(doc, "tavern", Options{Vars: map[string]vars.Value{"drunk": vars.Bool(false)}})
	require.NoError(t, err)
	assert.Equal(t, "door", s.CurrentStepID)

	require.NoError(t, s.Advance(doc))
	assert.Equal(t, "barkeep", s.CurrentStepID)
	assert.Equal(t, "The tavern is quiet.", s.History[0].Text)

	require.NoError(t, s.Advance(doc))
	assert.Equal(t, "offer", s.CurrentStepID)
	assert.Equal(t, HistoryEntry{StepID: "barkeep", Speaker: "Barkeep", Text: "What'll it be?", IsDialogue: true}, s.History[1])

	assert.True(t, errors.Is(s.Advance(doc), ErrChoiceRequired))
	assert.True(t, errors.Is(s.Choose(doc, 2), ErrChoiceOutOfRange))
	assert.True(t, errors.Is(s.Choose(doc, -1), ErrChoiceOutOfRange))

	require.NoError(t, s.Choose(doc, 0))
	assert.Equal(t, "gate", s.CurrentStepID)
	v, _ := s.Vars.Get("drunk")
	assert.True(t, vars.Equal(vars.Bool(true), v))
	assert.Equal(t, HistoryEntry{StepID: "offer", Text: "You order an ale.", IsAction: true}, s.History[2])

	require.NoError(t, s.Advance(doc))
	assert.Equal(t, "street", s.SceneName)
	assert.Equal(t, "guard", s.CurrentStepID)
	assert.Empty(t, s.History, "history is cleared on scene change")

	require.NoError(t, s.Advance(doc))
	assert.True(t, s.Ended)
	assert.Equal(t, "guard", s.CurrentStepID)
	assert.True(t, errors.Is(s.Advance(doc), ErrEnded))
	assert.True(t, errors.Is(s.Choose(doc, 0), ErrEnded))
}

func TestSession_KeepHistory(t *testing.T) {
	doc := tavernDocument()
	s, err := Start(doc, "tavern", Options{KeepHistory: true})
	require.NoError(t, err)
	s.CurrentStepID = "gate"
	s.History = append(s.History, HistoryEntry{Text: "earlier"})

	require.NoError(t, s.Advance(doc))
	assert.Equal(t, "street", s.SceneName)
	assert.Len(t, s.History, 1)
}

func TestSession_ChoiceWithoutTargetEnds(t *testing.T) {
	doc := tavernDocument()
	s, err := Start(doc, "tavern", Options{})
	require.NoError(t, err)
	s.CurrentStepID = "offer"

	require.NoError(t, s.Choose(doc, 1))
	assert.True(t, s.Ended)
	assert.True(t, s.History[0].IsDialogue)
	assert.False(t, s.History[0].IsAction)
}

func TestSession_Errors(t *testing.T) {
	doc := tavernDocument()

	_, err := Start(doc, "cellar", Options{})
	assert.True(t, errors.Is(err, ErrSceneNotFound))

	doc["empty"] = story.NewScene()
	_, err = Start(doc, "empty", Options{})
	assert.True(t, errors.Is(err, ErrNoEntryPoint))

	s, err := Start(doc, "tavern", Options{})
	require.NoError(t, err)
	assert.True(t, errors.Is(s.Choose(doc, 0), ErrNotChoiceStep))

	doc["tavern"].Steps["gate"].(*story.SceneTransitionStep).NextScene = "nowhere"
	s.CurrentStepID = "gate"
	assert.True(t, errors.Is(s.Advance(doc), ErrSceneNotFound))
	assert.Equal(t, "tavern", s.SceneName, "a failed transition leaves the session unchanged")
	assert.Equal(t, "gate", s.CurrentStepID)
}

func TestSession_TransitionToDanglingStartingStep(t *testing.T) {
	doc := tavernDocument()
	doc["street"].StartingStep = "ghost"

	s, err := Start(doc, "tavern", Options{})
	require.NoError(t, err)
	s.CurrentStepID = "gate"
	s.History = append(s.History, HistoryEntry{Text: "earlier"})

	err = s.Advance(doc)
	assert.True(t, errors.Is(err, ErrStepNotFound))
	assert.Equal(t, "tavern", s.SceneName, "the scene switch must not be committed")
	assert.Equal(t, "gate", s.CurrentStepID)
	assert.Len(t, s.History, 1, "history survives a failed transition")
}

func TestSession_ImageStep(t *testing.T) {
	doc := story.Document{"main": &story.Scene{
		StartingStep: "pic",
		Steps: map[string]story.Step{
			"pic": &story.ImageStep{Image: story.SceneImage{Path: "images/a.png", Caption: "A map"}},
		},
	}}
	s, err := Start(doc, "main", Options{})
	require.NoError(t, err)

	v, err := s.View(doc)
	require.NoError(t, err)
	assert.Equal(t, "images/a.png", v.Image.Path)
	assert.True(t, v.Terminal)

	require.NoError(t, s.Advance(doc))
	assert.True(t, s.Ended)
	assert.Equal(t, HistoryEntry{StepID: "pic", Text: "A map", Image: "images/a.png"}, s.History[0])
}
