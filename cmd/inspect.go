package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/agentic-research/scenebridge/internal/inspect"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

var (
	inspectPath   string
	inspectSelect string
	samplesTime   float64
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.scc>",
	Short: "Dump the specs and fields of a scene cache as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, done, err := openBridge(args[0])
		if err != nil {
			return err
		}
		defer done()

		var out any = inspect.Dump(d, sdf.Path(inspectPath))
		if inspectSelect != "" {
			selected, err := inspect.Select(out, inspectSelect)
			if err != nil {
				return err
			}
			out = selected
		}
		printJSON(cmd, out)
		return nil
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <file.scc> <path> <frame>",
	Short: "Read the value of a property at a frame",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		frame, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid frame %q: %w", args[2], err)
		}
		d, done, err := openBridge(args[0])
		if err != nil {
			return err
		}
		defer done()

		path := sdf.Path(args[1])
		if !d.HasSpec(path) {
			return fmt.Errorf("%s: %w", path, sdf.ErrSpecNotFound)
		}
		v, ok := d.QueryTimeSample(path, frame)
		if !ok {
			return fmt.Errorf("no value for %s at frame %g", path, frame)
		}
		printJSON(cmd, inspect.Value(v))
		return nil
	},
}

var samplesCmd = &cobra.Command{
	Use:   "samples <file.scc> [path]",
	Short: "List time samples of a property, or of the whole layer",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, done, err := openBridge(args[0])
		if err != nil {
			return err
		}
		defer done()

		hasTime := cmd.Flags().Changed("time")
		out := map[string]any{}
		var (
			lower, upper float64
			ok           bool
		)
		if len(args) == 1 {
			out["times"] = inspect.Value(d.ListAllTimeSamples())
			if hasTime {
				lower, upper, ok = d.GetBracketingTimeSamples(samplesTime)
			}
		} else {
			path := sdf.Path(args[1])
			if !d.HasSpec(path) {
				return fmt.Errorf("%s: %w", path, sdf.ErrSpecNotFound)
			}
			out["path"] = string(path)
			out["times"] = inspect.Value(d.ListTimeSamplesForPath(path))
			if hasTime {
				lower, upper, ok = d.GetBracketingTimeSamplesForPath(path, samplesTime)
			}
		}
		if ok {
			out["lower"], out["upper"] = lower, upper
		}
		printJSON(cmd, out)
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectPath, "path", "p", "", "Only dump specs under this path")
	inspectCmd.Flags().StringVarP(&inspectSelect, "select", "s", "", "JSONPath expression applied to the dump")
	samplesCmd.Flags().Float64VarP(&samplesTime, "time", "t", 0, "Also report the samples bracketing this frame")

	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(samplesCmd)
}
