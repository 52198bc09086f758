package cmd

import (
	"fmt"
	"os"

	"github.com/ohler55/ojg/oj"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentic-research/scenebridge/internal/bridge"
	"github.com/agentic-research/scenebridge/internal/config"
	"github.com/agentic-research/scenebridge/internal/format"
	"github.com/agentic-research/scenebridge/internal/logger"
	"github.com/agentic-research/scenebridge/internal/metrics"
	"github.com/agentic-research/scenebridge/internal/scenecache"
)

var (
	configPath string
	logLevel   string
	logPretty  bool

	cfg = config.Default()
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ~/.scenebridge/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&logPretty, "pretty", false, "Human readable console logs")
}

var rootCmd = &cobra.Command{
	Use:           "scenebridge",
	Short:         "Scenebridge: scene cache files as lazily populated layers",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return fmt.Errorf("failed to get home dir: %w", err)
			}
		}
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		if cmd.Flags().Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("pretty") {
			cfg.Log.Pretty = logPretty
		}
		logger.Init(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
		log.Debug().Str("config", path).Msg("configuration loaded")
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newFormat returns the scene cache format configured from cfg. reg may be
// nil for commands that expose no metrics.
func newFormat(reg prometheus.Registerer, registry *scenecache.Registry) *format.SceneCache {
	l := logger.Component("cmd")
	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}
	flags := cfg.Bridge
	return format.New(format.Options{
		Logger:   &l,
		Registry: registry,
		Metrics:  m,
		Flags:    &flags,
	})
}

// openBridge opens file through the format registered for its extension.
func openBridge(file string) (*bridge.Data, func(), error) {
	if _, ok := format.Lookup(file); !ok {
		return nil, nil, fmt.Errorf("%s: %w", file, format.ErrUnsupportedExtension)
	}
	f := newFormat(nil, nil)
	d, err := f.Open(file, nil)
	if err != nil {
		return nil, nil, err
	}
	return d, func() {
		if err := d.Close(); err != nil {
			log.Warn().Err(err).Str("file", file).Msg("close bridge")
		}
	}, nil
}

func printJSON(cmd *cobra.Command, v any) {
	fmt.Fprintln(cmd.OutOrStdout(), oj.JSON(v, &oj.Options{Indent: 2, Sort: true}))
}
