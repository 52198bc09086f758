package inspect

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/agentic-research/scenebridge/internal/bridge"
)

// Opener opens a fresh bridge over a file. It must not hand back a reader
// shared with the bridge being replaced, or the reload sees the old file.
type Opener func(file string) (*bridge.Data, error)

// Watcher reopens a layer whenever its file is rewritten.
type Watcher struct {
	File     string
	Layer    *HotSwapLayer
	Open     Opener
	Log      zerolog.Logger
	Debounce time.Duration
	// Reloaded, when set, is called after each swap.
	Reloaded func(generation int)
}

// Run watches until ctx ends. Writers replace cache files by renaming onto
// them, so the parent directory is watched rather than the file.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	target, err := filepath.Abs(w.File)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				timer.Reset(debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Log.Warn().Err(err).Str("file", target).Msg("watch error")
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	next, err := w.Open(w.File)
	if err != nil {
		w.Log.Warn().Err(err).Str("file", w.File).Msg("reload failed; keeping current layer")
		return
	}
	if err := w.Layer.Swap(next); err != nil {
		w.Log.Warn().Err(err).Msg("close replaced layer")
	}
	gen := w.Layer.Generation()
	w.Log.Info().Str("file", w.File).Int("generation", gen).Msg("layer reloaded")
	if w.Reloaded != nil {
		w.Reloaded(gen)
	}
}
