package main

import (
	"fmt"
	"os"

	"github.com/jwebster45206/story-graph/pkg/editor"
	"github.com/spf13/cobra"
)

var (
	layoutScene  string
	layoutForce  bool
	layoutOutput string
)

var layoutCmd = &cobra.Command{
	Use:   "layout <story>",
	Short: "Assign canvas positions to story nodes",
	Long: "layout places nodes without a position in breadth-first columns from each scene's " +
		"starting step and writes the document as JSON.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadDocument(args[0])
		if err != nil {
			return err
		}

		scenes := doc.SceneNames()
		if layoutScene != "" {
			scenes = []string{layoutScene}
		}
		for _, name := range scenes {
			ed, err := editor.New(doc, name)
			if err != nil {
				return err
			}
			placed := ed.Layout(layoutForce)
			fmt.Fprintf(cmd.ErrOrStderr(), "scene %q: placed %d node(s)\n", name, placed)
		}

		data, err := doc.Marshal()
		if err != nil {
			return err
		}
		if layoutOutput == "" || layoutOutput == "-" {
			_, err = cmd.OutOrStdout().Write(append(data, '\n'))
			return err
		}
		if err := os.WriteFile(layoutOutput, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", layoutOutput, err)
		}
		return nil
	},
}

func init() {
	layoutCmd.Flags().StringVar(&layoutScene, "scene", "", "Only lay out this scene")
	layoutCmd.Flags().BoolVar(&layoutForce, "force", false, "Discard existing positions")
	layoutCmd.Flags().StringVarP(&layoutOutput, "output", "o", "", "Write to this file instead of STDOUT")
}
