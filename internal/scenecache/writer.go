package scenecache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/agentic-research/scenebridge/internal/scene"
	_ "modernc.org/sqlite"
)

// Writer buffers a new cache in memory and writes it to disk on Close.
// The target file is locked for the writer's lifetime.
type Writer struct {
	mu       sync.Mutex
	fileName string
	header   map[string]string
	root     *writeLocation
	lock     *fileLock
	closed   bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithFrameRate records fps under the header key of the producing application
// ("maya" or "houdini").
func WithFrameRate(app string, fps float64) WriterOption {
	return func(w *Writer) {
		key := HeaderMayaFrameRate
		if app == "houdini" {
			key = HeaderHoudiniFrameRate
		}
		w.header[key] = strconv.FormatFloat(fps, 'g', -1, 32)
	}
}

// WithHeader stores an arbitrary header entry.
func WithHeader(key, value string) WriterOption {
	return func(w *Writer) { w.header[key] = value }
}

// Create starts a new cache at fileName. Nothing is written until Close.
func Create(fileName string, opts ...WriterOption) (*Writer, error) {
	lock, err := lockFile(fileName)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		fileName: fileName,
		header:   map[string]string{HeaderVersion: FormatVersion},
		lock:     lock,
	}
	w.root = newWriteLocation(w, nil, "")
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// FileName returns the target path.
func (w *Writer) FileName() string { return w.fileName }

// Root returns the root location.
func (w *Writer) Root() scene.Writer { return w.root }

type writeLocation struct {
	w        *Writer
	parent   *writeLocation
	name     string
	path     scene.Path
	children []*writeLocation
	byName   map[string]*writeLocation

	transforms map[float64]scene.M44d
	bounds     map[float64]scene.Box3d
	objects    map[float64]scene.Object
	attributes map[string]map[float64]scene.Data
	tags       map[string]struct{}
}

func newWriteLocation(w *Writer, parent *writeLocation, name string) *writeLocation {
	path := scene.RootPath
	if parent != nil {
		path = parent.path.Child(name)
	}
	return &writeLocation{
		w:          w,
		parent:     parent,
		name:       name,
		path:       path,
		byName:     map[string]*writeLocation{},
		transforms: map[float64]scene.M44d{},
		bounds:     map[float64]scene.Box3d{},
		objects:    map[float64]scene.Object{},
		attributes: map[string]map[float64]scene.Data{},
		tags:       map[string]struct{}{},
	}
}

func (l *writeLocation) Name() string     { return l.name }
func (l *writeLocation) Path() scene.Path { return l.path }

func (l *writeLocation) guard() error {
	if l.w.closed {
		return ErrClosed
	}
	return nil
}

func (l *writeLocation) Child(name string) (scene.Writer, error) {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if err := l.guard(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("empty child name under %s", l.path)
	}
	if c, ok := l.byName[name]; ok {
		return c, nil
	}
	c := newWriteLocation(l.w, l, name)
	l.children = append(l.children, c)
	l.byName[name] = c
	return c, nil
}

func (l *writeLocation) WriteTransform(m scene.M44d, t float64) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if err := l.guard(); err != nil {
		return err
	}
	if l.parent == nil {
		return fmt.Errorf("cannot write transform at the root")
	}
	l.transforms[t] = m
	return nil
}

func (l *writeLocation) WriteBound(b scene.Box3d, t float64) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if err := l.guard(); err != nil {
		return err
	}
	if b.IsEmpty() {
		return nil
	}
	l.bounds[t] = b
	return nil
}

func (l *writeLocation) WriteObject(o scene.Object, t float64) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if err := l.guard(); err != nil {
		return err
	}
	if l.parent == nil {
		return fmt.Errorf("cannot write object at the root")
	}
	if o == nil {
		return fmt.Errorf("nil object at %s", l.path)
	}
	for _, prev := range l.objects {
		if prev.TypeName() != o.TypeName() {
			return fmt.Errorf("object type %s at %s conflicts with %s", o.TypeName(), l.path, prev.TypeName())
		}
		break
	}
	l.objects[t] = o
	l.tags[scene.ObjectTypeTag(o.TypeName())] = struct{}{}
	return nil
}

func (l *writeLocation) WriteAttribute(name string, d scene.Data, t float64) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if err := l.guard(); err != nil {
		return err
	}
	if d == nil {
		return fmt.Errorf("nil attribute %s at %s", name, l.path)
	}
	samples, ok := l.attributes[name]
	if !ok {
		samples = map[float64]scene.Data{}
		l.attributes[name] = samples
	}
	samples[t] = d
	return nil
}

func (l *writeLocation) WriteTags(tags []string) error {
	l.w.mu.Lock()
	defer l.w.mu.Unlock()
	if err := l.guard(); err != nil {
		return err
	}
	for _, tag := range tags {
		if tag != "" {
			l.tags[tag] = struct{}{}
		}
	}
	return nil
}

func (l *writeLocation) WriteLink(fileName string, root scene.Path) error {
	if err := l.WriteAttribute(scene.LinkFileNameAttribute, scene.StringData(fileName), 0); err != nil {
		return err
	}
	return l.WriteAttribute(scene.LinkRootAttribute, scene.InternedStringVectorData(append([]string{}, root...)), 0)
}

func (l *writeLocation) WriteLinkAt(fileName string, root scene.Path, linkTime, t float64) error {
	if err := l.WriteAttribute(scene.LinkFileNameAttribute, scene.StringData(fileName), t); err != nil {
		return err
	}
	if err := l.WriteAttribute(scene.LinkRootAttribute, scene.InternedStringVectorData(append([]string{}, root...)), t); err != nil {
		return err
	}
	return l.WriteAttribute(scene.LinkTimeAttribute, scene.DoubleData(linkTime), t)
}

func sortedTimes[V any](m map[float64]V) []float64 {
	out := make([]float64, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Float64s(out)
	return out
}

// heldAt returns the sample at or before t, else the first one.
func heldAt[V any](m map[float64]V, t float64) (V, bool) {
	var zero V
	times := sortedTimes(m)
	if len(times) == 0 {
		return zero, false
	}
	pick := times[0]
	for _, st := range times {
		if st <= t+timeEpsilon {
			pick = st
		}
	}
	return m[pick], true
}

// computeBounds fills in bounds for locations that had none written, from
// their object and their children's transformed bounds.
func (l *writeLocation) computeBounds() {
	for _, c := range l.children {
		c.computeBounds()
	}
	if len(l.bounds) > 0 {
		return
	}
	times := map[float64]struct{}{}
	for t, o := range l.objects {
		if p, ok := o.(scene.Primitive); ok && !scene.Bound(p).IsEmpty() {
			times[t] = struct{}{}
		}
	}
	for _, c := range l.children {
		if len(c.bounds) == 0 {
			continue
		}
		for t := range c.bounds {
			times[t] = struct{}{}
		}
		for t := range c.transforms {
			times[t] = struct{}{}
		}
	}
	for t := range times {
		b := scene.EmptyBox()
		if o, ok := heldAt(l.objects, t); ok {
			if p, ok := o.(scene.Primitive); ok {
				b = b.Union(scene.Bound(p))
			}
		}
		for _, c := range l.children {
			cb, ok := heldAt(c.bounds, t)
			if !ok {
				continue
			}
			m, ok := heldAt(c.transforms, t)
			if !ok {
				m = scene.Identity()
			}
			b = b.Union(cb.Transform(m))
		}
		if !b.IsEmpty() {
			l.bounds[t] = b
		}
	}
}

// Close computes derived bounds, writes the file and releases the lock.
// The file appears atomically under its final name.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	defer func() { _ = w.lock.unlock() }()

	w.root.computeBounds()

	tmp := w.fileName + ".tmp"
	_ = os.Remove(tmp)
	if err := w.flush(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, w.fileName); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", w.fileName, err)
	}
	return nil
}

// Discard drops everything written and releases the lock without touching
// the target file. It is a no-op after Close.
func (w *Writer) Discard() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.root = newWriteLocation(w, nil, "")
	return w.lock.unlock()
}

func (w *Writer) flush(dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA journal_mode = MEMORY"); err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	b := &batch{tx: tx, timeLists: map[string]struct{}{}}
	if err := b.prepare(); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := b.writeHeader(w.header); err != nil {
		_ = tx.Rollback()
		return err
	}
	var nextID int64
	if err := b.writeLocation(w.root, nil, 0, &nextID); err != nil {
		_ = tx.Rollback()
		return err
	}
	b.close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type batch struct {
	tx         *sql.Tx
	stmtLoc    *sql.Stmt
	stmtSample *sql.Stmt
	stmtTag    *sql.Stmt
	stmtVar    *sql.Stmt
	stmtTimes  *sql.Stmt
	timeLists  map[string]struct{}
}

func (b *batch) prepare() error {
	var err error
	if b.stmtLoc, err = b.tx.Prepare(`INSERT INTO locations (id, parent_id, name, path, ord) VALUES (?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	if b.stmtSample, err = b.tx.Prepare(`INSERT OR REPLACE INTO samples (location_id, channel, name, time, payload) VALUES (?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	if b.stmtTag, err = b.tx.Prepare(`INSERT OR IGNORE INTO tags (location_id, tag) VALUES (?, ?)`); err != nil {
		return err
	}
	if b.stmtVar, err = b.tx.Prepare(`INSERT OR REPLACE INTO variables (location_id, name, interpolation, data_type, interpretation, has_indices) VALUES (?, ?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	b.stmtTimes, err = b.tx.Prepare(`INSERT INTO sample_times (times) VALUES (?)`)
	return err
}

func (b *batch) close() {
	for _, s := range []*sql.Stmt{b.stmtLoc, b.stmtSample, b.stmtTag, b.stmtVar, b.stmtTimes} {
		if s != nil {
			_ = s.Close()
		}
	}
}

func (b *batch) writeHeader(header map[string]string) error {
	for k, v := range header {
		if _, err := b.tx.Exec(`INSERT OR REPLACE INTO header (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("write header %s: %w", k, err)
		}
	}
	return nil
}

func (b *batch) recordTimes(times []float64) error {
	if len(times) == 0 {
		return nil
	}
	raw, err := json.Marshal(times)
	if err != nil {
		return err
	}
	key := string(raw)
	if _, seen := b.timeLists[key]; seen {
		return nil
	}
	b.timeLists[key] = struct{}{}
	_, err = b.stmtTimes.Exec(key)
	return err
}

func (b *batch) writeSamples(id int64, channel, name string, times []float64, encode func(t float64) ([]byte, error)) error {
	for _, t := range times {
		payload, err := encode(t)
		if err != nil {
			return err
		}
		if _, err := b.stmtSample.Exec(id, channel, name, t, payload); err != nil {
			return fmt.Errorf("write %s sample: %w", channel, err)
		}
	}
	return b.recordTimes(times)
}

func (b *batch) writeLocation(l *writeLocation, parentID *int64, ord int, nextID *int64) error {
	id := *nextID
	*nextID++
	if _, err := b.stmtLoc.Exec(id, parentID, l.name, l.path.String(), ord); err != nil {
		return fmt.Errorf("write location %s: %w", l.path, err)
	}

	if err := b.writeSamples(id, channelTransform, "", sortedTimes(l.transforms), func(t float64) ([]byte, error) {
		return json.Marshal(l.transforms[t])
	}); err != nil {
		return err
	}
	if err := b.writeSamples(id, channelBound, "", sortedTimes(l.bounds), func(t float64) ([]byte, error) {
		return json.Marshal(l.bounds[t])
	}); err != nil {
		return err
	}
	objectTimes := sortedTimes(l.objects)
	if err := b.writeSamples(id, channelObject, "", objectTimes, func(t float64) ([]byte, error) {
		return encodeObject(l.objects[t])
	}); err != nil {
		return fmt.Errorf("location %s: %w", l.path, err)
	}
	if len(objectTimes) > 0 {
		if err := b.writeVariables(id, l.objects[objectTimes[0]]); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(l.attributes))
	for name := range l.attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		samples := l.attributes[name]
		if err := b.writeSamples(id, channelAttribute, name, sortedTimes(samples), func(t float64) ([]byte, error) {
			rec, err := encodeData(samples[t])
			if err != nil {
				return nil, err
			}
			return json.Marshal(rec)
		}); err != nil {
			return fmt.Errorf("location %s attribute %s: %w", l.path, name, err)
		}
	}

	for tag := range l.tags {
		if _, err := b.stmtTag.Exec(id, tag); err != nil {
			return fmt.Errorf("write tag %s: %w", tag, err)
		}
	}

	for i, c := range l.children {
		if err := b.writeLocation(c, &id, i, nextID); err != nil {
			return err
		}
	}
	return nil
}

func (b *batch) writeVariables(id int64, o scene.Object) error {
	p, ok := o.(scene.Primitive)
	if !ok {
		return nil
	}
	for _, name := range scene.SortedVariableNames(p) {
		pv := p.Variables()[name]
		var (
			dataType       string
			interpretation *int
		)
		if pv.Data != nil {
			dataType = pv.Data.TypeName()
			if g, ok := pv.Data.(scene.GeometricData); ok {
				v := int(g.GeometricInterpretation())
				interpretation = &v
			}
		}
		if _, err := b.stmtVar.Exec(id, name, int(pv.Interpolation), dataType, interpretation, pv.IsIndexed()); err != nil {
			return fmt.Errorf("write variable %s: %w", name, err)
		}
	}
	return nil
}
