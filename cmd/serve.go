package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/scenebridge/internal/bridge"
	"github.com/agentic-research/scenebridge/internal/control"
	"github.com/agentic-research/scenebridge/internal/inspect"
	"github.com/agentic-research/scenebridge/internal/logger"
	"github.com/agentic-research/scenebridge/internal/scenecache"
)

var (
	serveAddr    string
	serveWatch   bool
	serveControl string
)

var serveCmd = &cobra.Command{
	Use:   "serve <file.scc>",
	Short: "Serve an HTTP inspector over a scene cache, following rewrites",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file := args[0]
		if !cmd.Flags().Changed("addr") {
			serveAddr = cfg.Serve.Addr
		}
		if !cmd.Flags().Changed("watch") {
			serveWatch = cfg.Serve.Watch
		}
		llog := logger.Component("serve")

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		f := newFormat(reg, nil)
		defer func() { _ = f.Close() }()

		// Each open gets its own registry so a reload never shares the
		// reader of the bridge it replaces.
		open := func(name string) (*bridge.Data, error) {
			return f.OpenWith(name, nil, scenecache.NewRegistry())
		}
		d, err := open(file)
		if err != nil {
			return err
		}
		layer := inspect.NewHotSwapLayer(d)
		defer func() { _ = layer.Close() }()

		reloaded := func(int) {}
		if serveControl != "" {
			ctl, err := control.OpenOrCreate(serveControl)
			if err != nil {
				return err
			}
			defer func() { _ = ctl.Close() }()
			reloaded = func(gen int) {
				fps := 0.0
				_ = layer.View(func(cur *bridge.Data) error {
					fps = cur.FPS()
					return nil
				})
				if err := ctl.Publish(file, fps, uint64(gen)); err != nil {
					llog.Warn().Err(err).Str("control", serveControl).Msg("publish layer")
				}
			}
			reloaded(layer.Generation())
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           inspect.NewServer(layer, llog, reg).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			llog.Info().Str("addr", serveAddr).Str("file", file).Msg("serving")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if serveWatch {
			w := &inspect.Watcher{File: file, Layer: layer, Open: open, Log: llog, Reloaded: reloaded}
			g.Go(func() error { return w.Run(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:7420", "Listen address")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reopen the layer when the file is rewritten")
	serveCmd.Flags().StringVar(&serveControl, "control", "", "Publish the served generation to this memory-mapped file")

	rootCmd.AddCommand(serveCmd)
}
