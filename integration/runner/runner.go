package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes play-through tests against a running story-graph API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	StoryOverride     string // If set, plays this story id for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file. A relative story_file is
// resolved against the suite file's directory.
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	if suite.StoryFile != "" && !filepath.IsAbs(suite.StoryFile) {
		suite.StoryFile = filepath.Join(filepath.Dir(filename), suite.StoryFile)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	if r.StoryOverride != "" {
		suite.StoryID = r.StoryOverride
		suite.StoryFile = ""
	}

	if suite.StoryFile != "" {
		if err := PutStory(ctx, r.Client, r.BaseURL, suite.StoryID, suite.StoryFile); err != nil {
			result.Error = fmt.Errorf("failed to upload story: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
	}

	play, err := StartPlay(ctx, r.Client, r.BaseURL, suite)
	if err != nil {
		result.Error = fmt.Errorf("failed to start play: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = play.Session.ID
	result.Final = play

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult, next := r.executeStep(ctx, suite, play, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)
		if next != nil {
			play = next
			result.Session = play.Session.ID
			result.Final = play
		}

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if err := DeletePlay(ctx, r.Client, r.BaseURL, result.Session); err != nil {
		r.Logger("    failed to clean up session %s: %v", result.Session, err)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// executeStep performs one action. It returns the new play state when the
// action moved the session.
func (r *Runner) executeStep(ctx context.Context, suite TestSuite, current *PlayResponse, step TestStep) (TestResult, *PlayResponse) {
	start := time.Now()
	result := TestResult{
		StepName: step.Name,
	}

	var (
		next *PlayResponse
		err  error
	)
	switch step.Action {
	case ActionRestart:
		_ = DeletePlay(ctx, r.Client, r.BaseURL, current.Session.ID)
		next, err = StartPlay(ctx, r.Client, r.BaseURL, suite)
		result.IsReset = true
	case ActionAdvance, ActionChoose:
		next, err = PostPlayAction(ctx, r.Client, r.BaseURL, current.Session.ID, step)
	default:
		err = fmt.Errorf("unknown action %q", step.Action)
	}

	if step.ExpectStatus != 0 && step.ExpectStatus != http.StatusOK {
		var statusErr *StatusError
		switch {
		case err == nil:
			result.Error = fmt.Errorf("expected status %d, got success", step.ExpectStatus)
		case !errors.As(err, &statusErr):
			result.Error = err
		case statusErr.Status != step.ExpectStatus:
			result.Error = fmt.Errorf("expected status %d, got %d: %s", step.ExpectStatus, statusErr.Status, statusErr.Body)
		default:
			result.Success = true
		}
		result.Duration = time.Since(start)
		return result, nil
	}

	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, nil
	}

	result.SceneName = next.Session.SceneName
	result.StepID = next.Session.CurrentStepID
	result.Ended = next.Session.Ended
	if next.View != nil {
		result.Kind = string(next.View.Kind)
	}
	result.ResponseText = responseText(next)
	if err := checkExpectations(step.Expectations, next, result.ResponseText); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result, next
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, next
}

// responseText is the step text plus any choice labels, one per line.
func responseText(pr *PlayResponse) string {
	if pr.View == nil {
		return ""
	}
	lines := []string{pr.View.Text}
	for _, c := range pr.View.Choices {
		lines = append(lines, c.Text)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// checkExpectations validates the test expectations against the play state
func checkExpectations(exp Expectations, pr *PlayResponse, responseText string) error {
	s := pr.Session

	if exp.SceneName != nil && s.SceneName != *exp.SceneName {
		return fmt.Errorf("expected scene %s, got %s", *exp.SceneName, s.SceneName)
	}

	if exp.StepID != nil && s.CurrentStepID != *exp.StepID {
		return fmt.Errorf("expected step %s, got %s", *exp.StepID, s.CurrentStepID)
	}

	if exp.IsEnded != nil && s.Ended != *exp.IsEnded {
		return fmt.Errorf("expected is_ended to be %t, got %t", *exp.IsEnded, s.Ended)
	}

	if exp.Kind != nil {
		if pr.View == nil {
			return fmt.Errorf("expected a %s step, but there is no current step", *exp.Kind)
		}
		if string(pr.View.Kind) != *exp.Kind {
			return fmt.Errorf("expected kind %s, got %s", *exp.Kind, pr.View.Kind)
		}
	}

	if exp.ChoiceCount != nil {
		got := 0
		if pr.View != nil {
			got = len(pr.View.Choices)
		}
		if got != *exp.ChoiceCount {
			return fmt.Errorf("expected %d choices, got %d", *exp.ChoiceCount, got)
		}
	}

	if exp.HistoryLen != nil && len(s.History) != *exp.HistoryLen {
		return fmt.Errorf("expected history length %d, got %d", *exp.HistoryLen, len(s.History))
	}

	for key, expectedValue := range exp.Vars {
		actual, exists := s.Vars.Get(key)
		if !exists {
			return fmt.Errorf("expected variable %s to be set, but it doesn't exist", key)
		}
		if actual.String() != expectedValue {
			return fmt.Errorf("expected variable %s to be %s, got %s", key, expectedValue, actual)
		}
	}

	lowerResponse := strings.ToLower(responseText)
	for _, expectedText := range exp.TextContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected text to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.TextNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected text to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.TextRegex != "" {
		matched, err := regexp.MatchString(exp.TextRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("text didn't match regex pattern: %s", exp.TextRegex)
		}
	}

	return nil
}
