//go:build integration
// +build integration

package integration

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/story-graph/integration/runner"
)

var caseFlag = flag.String("case", "", "Comma-separated case names to run (from integration/cases/); all cases when empty")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var storyFlag = flag.String("story", "", "Play this stored story id for all test cases instead of uploading story files")

// TestPlayThroughs runs every case file against a live API, one subtest per
// suite, and logs where each step left the play session.
func TestPlayThroughs(t *testing.T) {
	mode := runner.ErrorHandlingMode(*errFlag)
	if mode != runner.ErrorHandlingExit && mode != runner.ErrorHandlingContinue {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}

	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	r := runner.NewRunner(baseURL)
	r.Timeout = time.Duration(getIntEnv("TEST_TIMEOUT_SECONDS", 30)) * time.Second
	r.ErrorHandlingMode = mode
	r.StoryOverride = *storyFlag

	files, err := caseFiles("cases", *caseFlag)
	if err != nil {
		t.Fatalf("Failed to find test cases: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No test cases found")
	}

	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Fatalf("Failed to load %s: %v", file, err)
		}
		jobs = append(jobs, expanded...)
	}
	t.Logf("Running %d play-through(s) against %s", len(jobs), baseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	for _, job := range jobs {
		job := job
		t.Run(job.Name, func(t *testing.T) {
			result, err := r.RunSuite(ctx, job.Suite)
			t.Logf("story %s, session %s, %v", storyID(job.Suite, r.StoryOverride), result.Session, result.Duration)

			for _, step := range result.Results {
				switch {
				case step.IsReset:
					t.Logf("   ↻ %s -> %s", step.StepName, step.Position())
				case step.Success:
					t.Logf("   ✓ %s -> %s", step.StepName, step.Position())
				default:
					t.Errorf("   ✗ %s: %v", step.StepName, step.Error)
				}
			}

			if final := result.Final; final != nil && final.Session != nil {
				outcome := "in progress"
				if final.Session.Ended {
					outcome = "ended"
				}
				t.Logf("final: %s/%s, %s, %d var(s), %d history entr(ies)",
					final.Session.SceneName, final.Session.CurrentStepID, outcome,
					len(final.Session.Vars), len(final.Session.History))
			}

			if err != nil {
				t.Fatalf("play-through failed: %v", err)
			}
		})
	}
}

func storyID(suite runner.TestSuite, override string) string {
	if override != "" {
		return override
	}
	return suite.StoryID
}

// caseFiles lists the JSON case files in dir, or just the named ones.
func caseFiles(dir, names string) ([]string, error) {
	if names == "" {
		return filepath.Glob(filepath.Join(dir, "*.json"))
	}
	var files []string
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

func getIntEnv(name string, defaultValue int) int {
	val, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return defaultValue
	}
	return val
}
