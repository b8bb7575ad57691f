package runner

import (
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/story-graph/pkg/vars"
)

// Step actions
const (
	ActionAdvance = "advance"
	ActionChoose  = "choose"
	// ActionRestart starts a fresh session with the suite's seed variables.
	ActionRestart = "restart"
)

// TestSuite defines a complete play-through scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name        string                `json:"name"`
	StoryID     string                `json:"story_id,omitempty"`     // Used for regular tests
	StoryFile   string                `json:"story_file,omitempty"`   // Uploaded to StoryID before play, relative to the cases dir
	Scene       string                `json:"scene,omitempty"`        // Defaults to the API's default scene
	KeepHistory bool                  `json:"keep_history,omitempty"` // Keep the transcript across scenes
	SeedVars    map[string]vars.Value `json:"seed_vars,omitempty"`
	Steps       []TestStep            `json:"steps,omitempty"` // Used for regular tests
	Cases       []string              `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single play action and its expected outcome
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Choice       int          `json:"choice,omitempty"` // Zero-based choice index for "choose"
	ExpectStatus int          `json:"expect_status,omitempty"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	SceneName   *string           `json:"scene_name,omitempty"`
	StepID      *string           `json:"step_id,omitempty"`
	Kind        *string           `json:"kind,omitempty"`
	IsEnded     *bool             `json:"is_ended,omitempty"`
	Vars        map[string]string `json:"vars,omitempty"`
	ChoiceCount *int              `json:"choice_count,omitempty"`
	HistoryLen  *int              `json:"history_len,omitempty"`

	// Rendered text of the current step
	TextContains    []string `json:"text_contains,omitempty"`
	TextNotContains []string `json:"text_not_contains,omitempty"`
	TextRegex       string   `json:"text_regex,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
	IsReset      bool // True for restart steps (should not count toward pass/fail metrics)

	// Where the session stood after the step; empty when the step was rejected
	SceneName string
	StepID    string
	Kind      string
	Ended     bool
}

// Position renders the scene/step the step left the session at.
func (r TestResult) Position() string {
	switch {
	case r.SceneName == "":
		return "-"
	case r.Ended:
		return r.SceneName + "/" + r.StepID + " (ended)"
	case r.Kind != "":
		return r.SceneName + "/" + r.StepID + " (" + r.Kind + ")"
	default:
		return r.SceneName + "/" + r.StepID
	}
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the last play session used for this test
	Final    *PlayResponse
}
