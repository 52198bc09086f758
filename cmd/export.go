package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentic-research/scenebridge/internal/format"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

var (
	firstFrame   float64
	lastFrame    float64
	perFrame     bool
	currentFrame float64
)

var exportCmd = &cobra.Command{
	Use:   "export <in.scc> <out.scc>",
	Short: "Write a scene cache back out through the layer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, out := args[0], args[1]
		if _, ok := format.Lookup(out); !ok {
			return fmt.Errorf("%s: %w", out, format.ErrUnsupportedExtension)
		}
		if !cmd.Flags().Changed("per-frame") {
			perFrame = cfg.Export.PerFrameWrite
		}

		f := newFormat(nil, nil)
		defer func() {
			if err := f.Close(); err != nil {
				log.Warn().Err(err).Str("output", out).Msg("close writers")
			}
		}()
		d, err := f.Open(in, nil)
		if err != nil {
			return err
		}
		defer func() { _ = d.Close() }()

		base := format.Arguments{}
		if cmd.Flags().Changed("first-frame") != cmd.Flags().Changed("last-frame") {
			return fmt.Errorf("--first-frame and --last-frame go together")
		}
		if cmd.Flags().Changed("first-frame") {
			base[format.ArgFirstFrame] = formatFrame(firstFrame)
			base[format.ArgLastFrame] = formatFrame(lastFrame)
		}

		start := time.Now()
		switch {
		case perFrame && cmd.Flags().Changed("current-frame"):
			err = f.Export(cmd.Context(), d, out, perFrameArgs(base, currentFrame))
		case perFrame:
			err = exportEachFrame(cmd, f, d, out, base)
		default:
			err = f.Export(cmd.Context(), d, out, base)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s in %v.\n", in, out, time.Since(start))
		return nil
	},
}

// exportEachFrame drives the per-frame write path over every frame of the
// layer, in order, so the shared writer completes on the last one.
func exportEachFrame(cmd *cobra.Command, f *format.SceneCache, data sdf.AbstractData, out string, base format.Arguments) error {
	frames := data.ListAllTimeSamples()
	if first, ok := base[format.ArgFirstFrame]; ok {
		lo, _ := strconv.ParseFloat(first, 64)
		hi, _ := strconv.ParseFloat(base[format.ArgLastFrame], 64)
		kept := frames[:0:0]
		for _, fr := range frames {
			if fr >= lo && fr <= hi {
				kept = append(kept, fr)
			}
		}
		frames = kept
	}
	if len(frames) == 0 {
		frames = []float64{0}
	}
	last := formatFrame(frames[len(frames)-1])
	for _, fr := range frames {
		args := perFrameArgs(base, fr)
		args[format.ArgLastFrame] = last
		if err := f.Export(cmd.Context(), data, out, args); err != nil {
			return fmt.Errorf("frame %g: %w", fr, err)
		}
	}
	return nil
}

func perFrameArgs(base format.Arguments, frame float64) format.Arguments {
	args := format.Arguments{}
	for k, v := range base {
		args[k] = v
	}
	args[format.ArgPerFrameWrite] = "1"
	args[format.ArgCurrentFrame] = formatFrame(frame)
	return args
}

func formatFrame(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func init() {
	exportCmd.Flags().Float64Var(&firstFrame, "first-frame", 0, "First frame to export")
	exportCmd.Flags().Float64Var(&lastFrame, "last-frame", 0, "Last frame to export")
	exportCmd.Flags().BoolVar(&perFrame, "per-frame", false, "Write one frame per call through a shared writer")
	exportCmd.Flags().Float64Var(&currentFrame, "current-frame", 0, "Frame written by a single per-frame call")

	rootCmd.AddCommand(exportCmd)
}
