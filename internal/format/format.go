// Package format registers scene cache files as a layer file format.
//
// A host that opens documents by extension looks the format up with Lookup
// and calls Read; the returned data is a lazily resolved bridge over the
// cache. WriteToFile goes the other way and exports layer data into a new
// cache.
package format

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/agentic-research/scenebridge/internal/bridge"
	"github.com/agentic-research/scenebridge/internal/config"
	"github.com/agentic-research/scenebridge/internal/metrics"
	"github.com/agentic-research/scenebridge/internal/scenecache"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// Extensions handled by the scene cache format.
const (
	ExtensionSceneCache       = "scc"
	ExtensionLinkedSceneCache = "lscc"
)

// ErrUnsupportedExtension is returned for files no registered format reads.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// Arguments are the string arguments a document is opened or written with.
type Arguments map[string]string

// FileFormat is a document format selected by file extension.
type FileFormat interface {
	Extensions() []string
	CanRead(path string) bool
	Read(path string, args Arguments) (sdf.AbstractData, error)
	WriteToFile(data sdf.AbstractData, path string, args Arguments) error
}

var (
	registryMu sync.RWMutex
	formats    = map[string]FileFormat{}
)

func init() {
	Register(New(Options{}))
}

// Register makes f the format for each of its extensions, replacing any
// earlier registration.
func Register(f FileFormat) {
	registryMu.Lock()
	defer registryMu.Unlock()
	for _, ext := range f.Extensions() {
		formats[ext] = f
	}
}

// Lookup returns the format registered for the extension of path.
func Lookup(path string) (FileFormat, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := formats[extension(path)]
	return f, ok
}

// RegisteredExtensions lists every registered extension in order.
func RegisteredExtensions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(formats))
	for ext := range formats {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Open reads path with the format registered for its extension.
func Open(path string, args Arguments) (sdf.AbstractData, error) {
	f, ok := Lookup(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedExtension)
	}
	return f.Read(path, args)
}

func extension(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// Options configures a SceneCache format. The zero value uses the global
// logger, the process registry and the environment flags.
type Options struct {
	Logger   *zerolog.Logger
	Registry *scenecache.Registry
	Metrics  *metrics.Metrics
	Flags    *config.BridgeConfig
	// Parallelism bounds how many linked scenes an export opens at once.
	Parallelism int
}

// SceneCache is the file format of scene cache files.
type SceneCache struct {
	opts    Options
	log     zerolog.Logger
	writers *sharedWriters
}

var _ FileFormat = (*SceneCache)(nil)

// New returns a scene cache format.
func New(opts Options) *SceneCache {
	if opts.Registry == nil {
		opts.Registry = scenecache.DefaultRegistry()
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	return &SceneCache{
		opts:    opts,
		log:     base.With().Str("component", "format").Logger(),
		writers: newSharedWriters(),
	}
}

func (f *SceneCache) Extensions() []string {
	return []string{ExtensionSceneCache, ExtensionLinkedSceneCache}
}

// CanRead matches the extension exactly.
func (f *SceneCache) CanRead(path string) bool {
	switch extension(path) {
	case ExtensionSceneCache, ExtensionLinkedSceneCache:
		return true
	}
	return false
}

// Read opens a bridge over path. The caller closes the returned data.
func (f *SceneCache) Read(path string, args Arguments) (sdf.AbstractData, error) {
	d, err := f.Open(path, args)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Open is Read returning the concrete bridge.
func (f *SceneCache) Open(path string, args Arguments) (*bridge.Data, error) {
	return f.OpenWith(path, args, f.opts.Registry)
}

// OpenWith opens path through reg instead of the format's registry. A
// private registry gives a reader of its own, even when another bridge
// holds the same file.
func (f *SceneCache) OpenWith(path string, args Arguments, reg *scenecache.Registry) (*bridge.Data, error) {
	if !f.CanRead(path) {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedExtension)
	}
	return bridge.Open(path, bridge.Options{
		Logger:    &f.log,
		Registry:  reg,
		Metrics:   f.opts.Metrics,
		Flags:     f.opts.Flags,
		Arguments: args,
	})
}

// Close flushes every writer still held open by per-frame exports.
func (f *SceneCache) Close() error {
	return f.writers.closeAll()
}
