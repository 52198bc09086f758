package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/scenebridge/internal/format"
)

var buildCmd = &cobra.Command{
	Use:   "build <scene.json> <output.scc>",
	Short: "Build a scene cache from a JSON scene description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, output := args[0], args[1]
		if _, ok := format.Lookup(output); !ok {
			return fmt.Errorf("%s: %w", output, format.ErrUnsupportedExtension)
		}
		raw, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("read scene description: %w", err)
		}

		start := time.Now()
		fmt.Fprintf(cmd.OutOrStdout(), "Building %s from %s...\n", output, source)
		n, err := buildScene(raw, output)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d locations in %v.\n", n, time.Since(start))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}
