package format

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/scenecache"
	"github.com/agentic-research/scenebridge/internal/sdf"
	"github.com/agentic-research/scenebridge/internal/timecode"
)

// Write arguments.
const (
	ArgPerFrameWrite = "perFrameWrite"
	ArgCurrentFrame  = "currentFrame"
	ArgFirstFrame    = "firstFrame"
	ArgLastFrame     = "lastFrame"
)

// frameSelection is the set of frames one WriteToFile call exports.
type frameSelection struct {
	frames []float64
	// close says the shared writer is complete after this call.
	close bool
}

func parseFrame(args Arguments, key string) (float64, bool, error) {
	raw, ok := args[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, true, fmt.Errorf("argument %s=%q: %w", key, raw, err)
	}
	return v, true, nil
}

// selectFrames applies the write arguments to the layer's frames.
// A per-frame write exports only currentFrame and completes the file when
// it is the last frame. Otherwise frames are clamped to [firstFrame,
// lastFrame] when both are given and the file is complete at once.
func selectFrames(all []float64, args Arguments) (frameSelection, error) {
	perFrame, hasPerFrame := args[ArgPerFrameWrite]
	current, hasCurrent, err := parseFrame(args, ArgCurrentFrame)
	if err != nil {
		return frameSelection{}, err
	}
	first, hasFirst, err := parseFrame(args, ArgFirstFrame)
	if err != nil {
		return frameSelection{}, err
	}
	last, hasLast, err := parseFrame(args, ArgLastFrame)
	if err != nil {
		return frameSelection{}, err
	}

	var sel frameSelection
	switch {
	case perFrame == "1":
		if !hasCurrent {
			return sel, fmt.Errorf("per-frame write needs %s", ArgCurrentFrame)
		}
		sel.frames = []float64{current}
		sel.close = hasLast && current == last
	case hasFirst && hasLast:
		for _, f := range all {
			if f >= first && f <= last {
				sel.frames = append(sel.frames, f)
			}
		}
	default:
		sel.frames = append([]float64(nil), all...)
	}
	if !hasPerFrame || perFrame == "0" {
		sel.close = true
	}
	return sel, nil
}

// framePair is an output frame and the source time read for it.
type framePair struct {
	frame  float64
	source float64
}

// heldTime returns the last time at or before t, else the first time.
func heldTime(times []float64, t float64) float64 {
	pick := times[0]
	for _, st := range times {
		if st <= t+sdf.TimeTolerance {
			pick = st
		}
	}
	return pick
}

// pairFrames matches frames against the sample times of a property. Frames
// landing on a sample read it. When none does and hold is set, the value held
// at the first frame is written there instead. No times means nothing to
// write.
func pairFrames(times, frames []float64, hold bool) []framePair {
	if len(times) == 0 || len(frames) == 0 {
		return nil
	}
	var out []framePair
	for _, f := range frames {
		i := sort.SearchFloat64s(times, f-sdf.TimeTolerance)
		if i < len(times) && math.Abs(times[i]-f) <= sdf.TimeTolerance {
			out = append(out, framePair{frame: f, source: times[i]})
		}
	}
	if len(out) == 0 && hold {
		out = append(out, framePair{frame: frames[0], source: heldTime(times, frames[0])})
	}
	return out
}

type exporter struct {
	f      *SceneCache
	out    *sharedWriter
	data   sdf.AbstractData
	log    zerolog.Logger
	tc     timecode.Mapper
	frames []float64
	// baseDir resolves relative reference asset paths.
	baseDir string

	tags map[sdf.Path][]string

	mu     sync.Mutex
	linked map[string]*scenecache.Reader
}

// WriteToFile exports data into the cache at path. See Export.
func (f *SceneCache) WriteToFile(data sdf.AbstractData, path string, args Arguments) error {
	return f.Export(context.Background(), data, path, args)
}

// Export walks the prims of data and writes them as locations of the cache
// at path. Writers are shared per path, so a sequence of per-frame exports
// builds one file.
func (f *SceneCache) Export(ctx context.Context, data sdf.AbstractData, path string, args Arguments) (err error) {
	sel, err := selectFrames(data.ListAllTimeSamples(), args)
	if err != nil {
		return err
	}
	frames := sel.frames
	// Static export writes a single sample.
	if len(frames) == 0 {
		frames = []float64{0}
	}

	fps := timecode.DefaultFPS
	if v, ok := data.Has(sdf.AbsoluteRootPath, sdf.FieldTimeCodesPerSecond); ok {
		if x, ok := v.(float64); ok && x > 0 {
			fps = x
		}
	}

	w, err := f.writers.get(path, fps)
	if err != nil {
		return err
	}
	if sel.close {
		defer func() {
			if cerr := f.writers.close(path); err == nil {
				err = cerr
			}
		}()
	}

	e := &exporter{
		f:      f,
		out:    w,
		data:   data,
		log:    f.log.With().Str("output", path).Logger(),
		tc:     timecode.New(fps),
		frames: frames,
		tags:   map[sdf.Path][]string{},
		linked: map[string]*scenecache.Reader{},
	}
	if named, ok := data.(interface{ FileName() string }); ok {
		e.baseDir = filepath.Dir(named.FileName())
	}

	e.collectTags()
	if err := e.openLinks(ctx); err != nil {
		return err
	}
	defer e.releaseLinks()

	for _, name := range e.tokens(sdf.AbsoluteRootPath, sdf.FieldPrimChildren) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.writeLocation(sdf.AbsoluteRootPath.AppendChild(string(name)), w.Root()); err != nil {
			return err
		}
	}
	f.opts.Metrics.FramesExported(len(frames))
	e.log.Debug().Int("frames", len(frames)).Bool("complete", sel.close).Msg("exported layer")
	return nil
}

// pairs pairs the exported frames with the sample times of the channel at
// key. A held value is written only while the output has no sample of the
// channel yet, so a sequence of per-frame exports writes what a single
// export would.
func (e *exporter) pairs(key sdf.Path, times []float64) []framePair {
	out := pairFrames(times, e.frames, !e.out.wrote(key))
	if len(out) > 0 {
		e.out.mark(key)
	}
	return out
}

func (e *exporter) tokens(path sdf.Path, field string) []sdf.Token {
	v, _ := e.data.Get(path, field).([]sdf.Token)
	return v
}

// value reads prop at t, holding the nearest earlier sample. Properties
// without samples answer with their default.
func (e *exporter) value(prop sdf.Path, t float64) (any, bool) {
	times := e.data.ListTimeSamplesForPath(prop)
	if len(times) == 0 {
		return e.data.Has(prop, sdf.FieldDefault)
	}
	return e.data.QueryTimeSample(prop, heldTime(times, t))
}

func (e *exporter) time(frame float64) float64 {
	return e.tc.FrameToTime(frame)
}

// collectTags turns the collections of top-level prims back into tags on
// their member prims.
func (e *exporter) collectTags() {
	for _, child := range e.tokens(sdf.AbsoluteRootPath, sdf.FieldPrimChildren) {
		prim := sdf.AbsoluteRootPath.AppendChild(string(child))
		for _, prop := range e.tokens(prim, sdf.FieldPropertyChildren) {
			rest, ok := strings.CutPrefix(string(prop), sdf.CollectionPrefix)
			if !ok {
				continue
			}
			name, ok := strings.CutSuffix(rest, ":"+sdf.CollectionIncludes)
			if !ok {
				continue
			}
			targets, ok := e.data.Get(prim.AppendProperty(string(prop)), sdf.FieldTargetPaths).(sdf.ListOp[sdf.Path])
			if !ok {
				continue
			}
			tag := sdf.UnescapeName(name)
			for _, target := range targets.Items() {
				e.tags[target] = append(e.tags[target], tag)
			}
		}
	}
}

// references returns the references authored on path.
func (e *exporter) references(path sdf.Path) []sdf.Reference {
	op, ok := e.data.Get(path, sdf.FieldReferences).(sdf.ListOp[sdf.Reference])
	if !ok {
		return nil
	}
	return op.Items()
}

func (e *exporter) resolveAsset(asset string) string {
	if filepath.IsAbs(asset) || e.baseDir == "" {
		return asset
	}
	return filepath.Join(e.baseDir, asset)
}

// openLinks opens every referenced cache up front, in parallel. Files that
// cannot be opened are left out and reported when their location is written.
func (e *exporter) openLinks(ctx context.Context) error {
	files := map[string]struct{}{}
	e.data.VisitSpecs(func(path sdf.Path) bool {
		if path.IsPropertyPath() {
			return true
		}
		for _, ref := range e.references(path) {
			file := e.resolveAsset(ref.AssetPath)
			if e.f.CanRead(file) {
				files[file] = struct{}{}
			}
		}
		return true
	})
	if len(files) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.f.opts.Parallelism)
	for file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := e.f.opts.Registry.Open(file)
			if err != nil {
				e.log.Warn().Err(err).Str("link", file).Msg("unable to open linked scene")
				return nil
			}
			e.mu.Lock()
			e.linked[file] = r
			e.mu.Unlock()
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		e.releaseLinks()
	}
	return err
}

func (e *exporter) releaseLinks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for file := range e.linked {
		if err := e.f.opts.Registry.Release(file); err != nil {
			e.log.Warn().Err(err).Str("link", file).Msg("release linked scene")
		}
	}
	clear(e.linked)
}

func (e *exporter) writeLocation(path sdf.Path, parent scene.Writer) error {
	out, err := parent.Child(sdf.UnescapeName(path.Name()))
	if err != nil {
		return err
	}
	llog := e.log.With().Str("location", path.String()).Logger()

	if err := e.writeTransform(path, out); err != nil {
		return err
	}

	// A linked location ends here: its contents live in the linked file.
	if refs := e.references(path); len(refs) > 0 {
		if len(refs) > 1 {
			llog.Warn().Int("references", len(refs)).Msg("unsupported multiple reference; writing only the first")
		}
		return e.writeLink(path, out, refs[0], llog)
	}

	if tags := e.tags[path]; len(tags) > 0 {
		if err := out.WriteTags(tags); err != nil {
			return err
		}
	}
	if err := e.writeVisibility(path, out); err != nil {
		return err
	}
	if err := e.writeBound(path, out); err != nil {
		return err
	}
	if err := e.writeObject(path, out, llog); err != nil {
		return err
	}

	for _, child := range e.tokens(path, sdf.FieldPrimChildren) {
		if err := e.writeLocation(path.AppendChild(string(child)), out); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) writeTransform(path sdf.Path, out scene.Writer) error {
	prop := path.AppendProperty(sdf.PropXformTransform)
	for _, p := range e.pairs(prop, e.data.ListTimeSamplesForPath(prop)) {
		v, ok := e.data.QueryTimeSample(prop, p.source)
		if !ok {
			continue
		}
		m, ok := v.(sdf.Matrix4d)
		if !ok {
			continue
		}
		if err := out.WriteTransform(scene.M44d(m), e.time(p.frame)); err != nil {
			return err
		}
	}
	return nil
}

// writeVisibility writes the visibility of every exported sample, so the
// attribute keeps its sample times on re-open.
func (e *exporter) writeVisibility(path sdf.Path, out scene.Writer) error {
	prop := path.AppendProperty(sdf.PropVisibility)
	for _, p := range e.pairs(prop, e.data.ListTimeSamplesForPath(prop)) {
		v, ok := e.data.QueryTimeSample(prop, p.source)
		if !ok {
			continue
		}
		token, _ := v.(sdf.Token)
		visible := scene.BoolData(token != sdf.TokenInvisible)
		if err := out.WriteAttribute(scene.VisibilityAttribute, visible, e.time(p.frame)); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) writeBound(path sdf.Path, out scene.Writer) error {
	prop := path.AppendProperty(sdf.PropExtent)
	for _, p := range e.pairs(prop, e.data.ListTimeSamplesForPath(prop)) {
		v, ok := e.data.QueryTimeSample(prop, p.source)
		if !ok {
			continue
		}
		extent, ok := v.([]sdf.Vec3f)
		if !ok || len(extent) != 2 {
			continue
		}
		b := scene.Box3d{
			Min: scene.V3d{float64(extent[0][0]), float64(extent[0][1]), float64(extent[0][2])},
			Max: scene.V3d{float64(extent[1][0]), float64(extent[1][1]), float64(extent[1][2])},
		}
		if err := out.WriteBound(b, e.time(p.frame)); err != nil {
			return err
		}
	}
	return nil
}

// writeLink writes a reference back as link data. Value clips become one
// link sample per clip time pair.
func (e *exporter) writeLink(path sdf.Path, out scene.Writer, ref sdf.Reference, llog zerolog.Logger) error {
	file := e.resolveAsset(ref.AssetPath)
	if !e.f.CanRead(file) {
		llog.Warn().Str("asset", ref.AssetPath).Msg("unsupported file extension for reference")
		return nil
	}
	e.mu.Lock()
	linked, ok := e.linked[file]
	e.mu.Unlock()
	if !ok {
		llog.Warn().Str("asset", ref.AssetPath).Msg("linked scene is not available")
		return nil
	}

	root := make(scene.Path, 0, ref.PrimPath.ElementCount())
	for _, name := range ref.PrimPath.Elements() {
		root = append(root, sdf.UnescapeName(name))
	}
	if _, ok := linked.Root().Scene(root); !ok {
		llog.Warn().Str("asset", ref.AssetPath).Str("root", ref.PrimPath.String()).Msg("linked location does not exist")
		return nil
	}

	if times, ok := e.clipTimes(path); ok {
		for _, t := range times {
			if err := out.WriteLinkAt(file, root, e.time(t[1]), e.time(t[0])); err != nil {
				return err
			}
		}
		return nil
	}
	return out.WriteLink(file, root)
}

func (e *exporter) clipTimes(path sdf.Path) ([]sdf.Vec2d, bool) {
	clips, ok := e.data.Get(path, sdf.FieldClips).(sdf.Dictionary)
	if !ok {
		return nil, false
	}
	set, ok := clips[sdf.ClipSetDefault].(sdf.Dictionary)
	if !ok {
		return nil, false
	}
	times, ok := set[sdf.ClipKeyTimes].([]sdf.Vec2d)
	return times, ok && len(times) > 0
}
