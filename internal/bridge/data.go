// Package bridge exposes a scene cache file as lazily populated layer data.
//
// Opening a bridge walks the cache hierarchy once and records one spec per
// location and property. Time-varying properties carry placeholder samples
// only; their values are read from the cache whenever QueryTimeSample is
// called, so nothing computed is ever held in the spec table.
package bridge

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/agentic-research/scenebridge/internal/config"
	"github.com/agentic-research/scenebridge/internal/metrics"
	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/scenecache"
	"github.com/agentic-research/scenebridge/internal/sdf"
	"github.com/agentic-research/scenebridge/internal/timecode"
)

// Source is the cache a bridge reads: a root location plus file metadata.
type Source interface {
	Root() scene.SampledReader
	scene.Header
}

// Options configures a bridge. The zero value uses the global logger, the
// process registry and the environment flags.
type Options struct {
	Logger   *zerolog.Logger
	Registry *scenecache.Registry
	Metrics  *metrics.Metrics
	// Flags overrides the environment flags read at open.
	Flags *config.BridgeConfig
	// Arguments are the file format arguments the layer was opened with.
	Arguments map[string]string
}

type spec struct {
	specType sdf.SpecType
	fields   *orderedmap.OrderedMap[string, any]
}

func newSpec(specType sdf.SpecType) *spec {
	return &spec{specType: specType, fields: orderedmap.New[string, any]()}
}

func (s *spec) set(key string, value any) {
	s.fields.Set(key, value)
}

var _ sdf.AbstractData = (*Data)(nil)

// Data is the spec table of one scene cache file. It implements
// sdf.AbstractData. Reads may run concurrently; Set and Erase calls must
// not overlap with anything else.
type Data struct {
	id       uuid.UUID
	fileName string
	args     map[string]string
	flags    config.BridgeConfig
	log      zerolog.Logger
	metrics  *metrics.Metrics
	registry *scenecache.Registry

	source  Source
	release func() error
	tc      timecode.Mapper

	specs       map[sdf.Path]*spec
	collections *collectionIndex

	closeOnce sync.Once
	closeErr  error
}

// Open opens fileName through the registry and walks it into a new spec table.
// No bridge is returned when the file cannot be opened or walked.
func Open(fileName string, opts Options) (*Data, error) {
	reg := opts.Registry
	if reg == nil {
		reg = scenecache.DefaultRegistry()
	}
	r, err := reg.Open(fileName)
	if err != nil {
		return nil, fmt.Errorf("open bridge: %w", err)
	}
	opts.Registry = reg
	d, err := New(fileName, r, opts)
	if err != nil {
		_ = reg.Release(fileName)
		return nil, err
	}
	d.release = func() error { return reg.Release(fileName) }
	opts.Metrics.OpenFiles(reg.Len())
	return d, nil
}

// New walks an already open source. The caller keeps ownership of src.
func New(fileName string, src Source, opts Options) (*Data, error) {
	d := &Data{
		id:       uuid.New(),
		fileName: fileName,
		args:     opts.Arguments,
		metrics:  opts.Metrics,
		registry: opts.Registry,
		source:   src,
	}
	if d.registry == nil {
		d.registry = scenecache.DefaultRegistry()
	}
	if opts.Flags != nil {
		d.flags = *opts.Flags
	} else {
		d.flags = config.BridgeFromEnv()
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	d.log = base.With().
		Str("component", "bridge").
		Str("bridge", d.id.String()).
		Str("file", fileName).
		Logger()

	start := time.Now()
	if err := d.load(); err != nil {
		return nil, fmt.Errorf("walk %s: %w", fileName, err)
	}
	d.log.Debug().
		Int("specs", len(d.specs)).
		Dur("elapsed", time.Since(start)).
		Msg("scene cache walked")
	d.metrics.BridgeOpened(len(d.specs))
	return d, nil
}

// ID identifies the bridge in logs and the inspector.
func (d *Data) ID() uuid.UUID { return d.id }

// FileName returns the scene cache the bridge was opened on.
func (d *Data) FileName() string { return d.fileName }

// Arguments returns the file format arguments given at open.
func (d *Data) Arguments() map[string]string { return d.args }

// FPS is the frame rate time codes are expressed in.
func (d *Data) FPS() float64 { return d.tc.FPS() }

// Close drops the spec table and releases the source file. With async
// destroy the old table is dismantled on a background goroutine.
func (d *Data) Close() error {
	d.closeOnce.Do(func() {
		old := d.specs
		d.specs = make(map[sdf.Path]*spec)
		if d.flags.AsyncDestroy {
			go func() { clear(old) }()
		} else {
			clear(old)
		}
		if d.release != nil {
			d.closeErr = d.release()
			d.metrics.OpenFiles(d.registry.Len())
		}
	})
	return d.closeErr
}

func (d *Data) StreamsData() bool { return true }

func (d *Data) HasSpec(path sdf.Path) bool {
	_, ok := d.specs[path]
	return ok
}

func (d *Data) GetSpecType(path sdf.Path) sdf.SpecType {
	if s, ok := d.specs[path]; ok {
		return s.specType
	}
	return sdf.SpecTypeUnknown
}

// CreateSpec adds an empty spec, or retypes an existing one keeping its fields.
func (d *Data) CreateSpec(path sdf.Path, specType sdf.SpecType) error {
	if specType == sdf.SpecTypeUnknown {
		return fmt.Errorf("create %s: %w", path, sdf.ErrInvalidSpecType)
	}
	if s, ok := d.specs[path]; ok {
		s.specType = specType
		return nil
	}
	d.specs[path] = newSpec(specType)
	return nil
}

func (d *Data) EraseSpec(path sdf.Path) error {
	if _, ok := d.specs[path]; !ok {
		return fmt.Errorf("erase %s: %w", path, sdf.ErrSpecNotFound)
	}
	delete(d.specs, path)
	return nil
}

func (d *Data) MoveSpec(oldPath, newPath sdf.Path) error {
	s, ok := d.specs[oldPath]
	if !ok {
		return fmt.Errorf("move %s: %w", oldPath, sdf.ErrSpecNotFound)
	}
	if _, exists := d.specs[newPath]; exists {
		return fmt.Errorf("move %s to %s: %w", oldPath, newPath, sdf.ErrSpecExists)
	}
	delete(d.specs, oldPath)
	d.specs[newPath] = s
	return nil
}

// VisitSpecs visits specs in path order.
func (d *Data) VisitSpecs(fn func(path sdf.Path) bool) {
	paths := make([]sdf.Path, 0, len(d.specs))
	for p := range d.specs {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })
	for _, p := range paths {
		if !fn(p) {
			return
		}
	}
}

func (d *Data) Has(path sdf.Path, field string) (any, bool) {
	s, ok := d.specs[path]
	if !ok {
		return nil, false
	}
	return s.fields.Get(field)
}

// HasSpecAndField reports the spec type whenever the spec exists, even if
// the field does not.
func (d *Data) HasSpecAndField(path sdf.Path, field string) (any, sdf.SpecType, bool) {
	s, ok := d.specs[path]
	if !ok {
		return nil, sdf.SpecTypeUnknown, false
	}
	v, ok := s.fields.Get(field)
	return v, s.specType, ok
}

func (d *Data) Get(path sdf.Path, field string) any {
	v, _ := d.Has(path, field)
	return v
}

func (d *Data) Set(path sdf.Path, field string, value any) error {
	if value == nil {
		d.Erase(path, field)
		return nil
	}
	s, ok := d.specs[path]
	if !ok {
		return fmt.Errorf("set %s on %s: %w", field, path, sdf.ErrSpecNotFound)
	}
	s.set(field, value)
	return nil
}

func (d *Data) Erase(path sdf.Path, field string) {
	if s, ok := d.specs[path]; ok {
		s.fields.Delete(field)
	}
}

// List returns field names in insertion order.
func (d *Data) List(path sdf.Path) []string {
	s, ok := d.specs[path]
	if !ok {
		return nil
	}
	out := make([]string, 0, s.fields.Len())
	for pair := s.fields.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// samples returns the time sample map of path, or nil.
func (d *Data) samples(path sdf.Path) *sdf.TimeSampleMap {
	v, ok := d.Has(path, sdf.FieldTimeSamples)
	if !ok {
		return nil
	}
	m, _ := v.(*sdf.TimeSampleMap)
	return m
}

// ListAllTimeSamples returns the sorted union of every path's sample times.
func (d *Data) ListAllTimeSamples() []float64 {
	seen := make(map[float64]struct{})
	for _, s := range d.specs {
		v, ok := s.fields.Get(sdf.FieldTimeSamples)
		if !ok {
			continue
		}
		m, ok := v.(*sdf.TimeSampleMap)
		if !ok {
			continue
		}
		for _, t := range m.Times() {
			seen[t] = struct{}{}
		}
	}
	out := make([]float64, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

func (d *Data) ListTimeSamplesForPath(path sdf.Path) []float64 {
	return d.samples(path).Times()
}

func (d *Data) GetBracketingTimeSamples(t float64) (lower, upper float64, ok bool) {
	return sdf.BracketingTimeSamples(d.ListAllTimeSamples(), t)
}

func (d *Data) GetNumTimeSamplesForPath(path sdf.Path) int {
	return d.samples(path).Len()
}

func (d *Data) GetBracketingTimeSamplesForPath(path sdf.Path, t float64) (lower, upper float64, ok bool) {
	m := d.samples(path)
	if m == nil {
		return 0, 0, false
	}
	return m.Bracket(t)
}

// QueryTimeSample answers only at a time held by the path's sample map. The
// value is read from the cache; a literal stored by SetTimeSample answers
// when the property is not one the resolver knows. Placeholders alone are
// not values: interpolation between samples is left to the caller.
func (d *Data) QueryTimeSample(path sdf.Path, t float64) (any, bool) {
	kind := classify(path.Name()).kind.String()
	ts, ok := d.samples(path).FindNear(t)
	if !ok {
		d.metrics.Query(kind, metrics.OutcomeMiss, 0)
		return nil, false
	}

	start := time.Now()
	if v, ok := d.resolve(path, ts.Time); ok {
		d.metrics.Query(kind, metrics.OutcomeResolved, time.Since(start))
		return v, true
	}
	if r, ok := ts.Sample.(sdf.Resolved); ok {
		d.metrics.Query(kind, metrics.OutcomeLiteral, 0)
		return r.Value, true
	}
	d.metrics.Query(kind, metrics.OutcomeMiss, 0)
	return nil, false
}

// SetTimeSample stores a literal at t. A nil value erases the sample; an
// sdf.Sample is stored as is.
func (d *Data) SetTimeSample(path sdf.Path, t float64, value any) error {
	if value == nil {
		d.EraseTimeSample(path, t)
		return nil
	}
	s, ok := d.specs[path]
	if !ok {
		return fmt.Errorf("set time sample on %s: %w", path, sdf.ErrSpecNotFound)
	}
	m := d.samples(path)
	if m == nil {
		m = &sdf.TimeSampleMap{}
		s.set(sdf.FieldTimeSamples, m)
	}
	sample, isSample := value.(sdf.Sample)
	if !isSample {
		sample = sdf.Resolved{Value: value}
	}
	m.Set(t, sample)
	return nil
}

// EraseTimeSample removes the sample at t; the last one takes the field with it.
func (d *Data) EraseTimeSample(path sdf.Path, t float64) {
	m := d.samples(path)
	if m == nil {
		return
	}
	m.Erase(t)
	if m.Len() == 0 {
		d.Erase(path, sdf.FieldTimeSamples)
	}
}
