package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jwebster45206/story-graph/pkg/story"
	"github.com/spf13/cobra"
)

var validateStrict bool

var validateCmd = &cobra.Command{
	Use:   "validate <story>...",
	Short: "Check story files for broken references",
	Long: "validate parses each story file and reports steps whose references do not resolve. " +
		"With --strict, reference problems fail the command; otherwise only parse errors do.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, filename := range args {
			v := &StoryValidator{}
			err := v.validateFile(filename)
			if err == nil && validateStrict && len(v.problems) > 0 {
				err = fmt.Errorf("%d problem(s) in %s", len(v.problems), filename)
			}
			for _, p := range v.problems {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", p)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Validation failed: %v\n", err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid!\n", filename)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d story file(s) failed validation", failed, len(args))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "Treat reference problems as failures")
}

var storyIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

type StoryValidator struct {
	errors   []string
	problems []story.Problem
}

func (v *StoryValidator) validateFile(filename string) error {
	v.errors = nil
	v.problems = nil

	if id := storyIDFromFilename(filename); !storyIDPattern.MatchString(id) {
		return fmt.Errorf("story filename '%s' must be letters, digits, '-' or '_' so it can be used as a story id", id)
	}

	doc, err := loadDocument(filename)
	if err != nil {
		return err
	}

	v.validateDocument(doc)
	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}

	v.problems = story.Validate(doc)
	return nil
}

// validateDocument checks naming rules the graph validator leaves to authors.
func (v *StoryValidator) validateDocument(doc story.Document) {
	if len(doc) == 0 {
		v.errors = append(v.errors, "document has no scenes")
		return
	}
	for _, name := range doc.SceneNames() {
		if strings.TrimSpace(name) == "" {
			v.errors = append(v.errors, "scene name cannot be blank")
		}
		for _, id := range doc[name].StepIDs() {
			if strings.TrimSpace(id) == "" {
				v.errors = append(v.errors, fmt.Sprintf("scene %q has a step with a blank id", name))
			}
		}
	}
}
