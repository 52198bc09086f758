package scenecache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/agentic-research/scenebridge/internal/scene"
	_ "modernc.org/sqlite"
)

// timeEpsilon absorbs float noise when matching a requested time to a stored one.
const timeEpsilon = 1e-9

// locationCacheSize bounds the path -> location id index. Values are never cached.
const locationCacheSize = 4096

// Reader is an open, read-only cache file. It is safe for concurrent use.
type Reader struct {
	fileName  string
	db        *sql.DB
	ids       *lru.Cache[string, int64]
	closeOnce sync.Once
	closeErr  error
}

// Open opens the cache at fileName read-only. A missing or foreign file is an error.
func Open(fileName string) (*Reader, error) {
	if _, err := os.Stat(fileName); err != nil {
		return nil, fmt.Errorf("open scene cache: %w", err)
	}
	db, err := sql.Open("sqlite", fileName+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", fileName, err)
	}
	db.SetMaxOpenConns(4)

	var version string
	if err := db.QueryRow(`SELECT value FROM header WHERE key = ?`, HeaderVersion).Scan(&version); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s is not a scene cache: %w", fileName, err)
	}
	if version != FormatVersion {
		_ = db.Close()
		return nil, fmt.Errorf("%s: unsupported scene cache version %q", fileName, version)
	}

	ids, err := lru.New[string, int64](locationCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Reader{fileName: fileName, db: db, ids: ids}, nil
}

// FileName returns the path the reader was opened with.
func (r *Reader) FileName() string { return r.fileName }

// Close releases the database handle.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.db.Close()
	})
	return r.closeErr
}

// Root returns the root location.
func (r *Reader) Root() scene.SampledReader {
	loc, ok := r.location(scene.RootPath)
	if !ok {
		// Every file written by Writer has a root row.
		return &location{r: r, id: -1, path: scene.RootPath}
	}
	return loc
}

// FrameRate implements scene.Header.
func (r *Reader) FrameRate() (float64, bool) {
	for _, key := range []string{HeaderMayaFrameRate, HeaderHoudiniFrameRate} {
		var raw string
		if err := r.db.QueryRow(`SELECT value FROM header WHERE key = ?`, key).Scan(&raw); err != nil {
			continue
		}
		// Stored as float by the producing application.
		fps, err := strconv.ParseFloat(raw, 32)
		if err == nil && fps > 0 {
			return fps, true
		}
	}
	return 0, false
}

// SampleTimeLists implements scene.Header.
func (r *Reader) SampleTimeLists() ([][]float64, error) {
	rows, err := r.db.Query(`SELECT times FROM sample_times ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query sample times: %w", err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out [][]float64
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var times []float64
		if err := json.Unmarshal([]byte(raw), &times); err != nil {
			return nil, fmt.Errorf("decode sample times: %w", err)
		}
		out = append(out, times)
	}
	return out, rows.Err()
}

func (r *Reader) location(path scene.Path) (*location, bool) {
	key := path.String()
	if id, ok := r.ids.Get(key); ok {
		return &location{r: r, id: id, path: path}, true
	}
	var id int64
	if err := r.db.QueryRow(`SELECT id FROM locations WHERE path = ?`, key).Scan(&id); err != nil {
		return nil, false
	}
	r.ids.Add(key, id)
	return &location{r: r, id: id, path: path}, true
}

var _ scene.SampledReader = (*location)(nil)
var _ scene.Header = (*Reader)(nil)

type location struct {
	r    *Reader
	id   int64
	path scene.Path
}

func (l *location) FileName() string { return l.r.fileName }
func (l *location) Path() scene.Path { return l.path }

func (l *location) Name() string {
	if l.path.IsRoot() {
		return "/"
	}
	return l.path[len(l.path)-1]
}

func (l *location) ChildNames() ([]string, error) {
	rows, err := l.r.db.Query(`SELECT name FROM locations WHERE parent_id = ? ORDER BY ord`, l.id)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", l.path, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (l *location) Child(name string) (scene.Reader, error) {
	c, ok := l.r.location(l.path.Child(name))
	if !ok {
		return nil, fmt.Errorf("child %q of %s: %w", name, l.path, scene.ErrNotFound)
	}
	return c, nil
}

func (l *location) Scene(path scene.Path) (scene.Reader, bool) {
	loc, ok := l.r.location(path)
	if !ok {
		return nil, false
	}
	return loc, true
}

func (l *location) sampleTimes(channel, name string) []float64 {
	rows, err := l.r.db.Query(`SELECT time FROM samples WHERE location_id = ? AND channel = ? AND name = ? ORDER BY time`, l.id, channel, name)
	if err != nil {
		return nil
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var times []float64
	for rows.Next() {
		var t float64
		if err := rows.Scan(&t); err != nil {
			return nil
		}
		times = append(times, t)
	}
	return times
}

// readSample returns the payload stored at or before t, else the first one.
func (l *location) readSample(channel, name string, t float64) ([]byte, error) {
	var payload []byte
	err := l.r.db.QueryRow(
		`SELECT payload FROM samples WHERE location_id = ? AND channel = ? AND name = ? AND time <= ? ORDER BY time DESC LIMIT 1`,
		l.id, channel, name, t+timeEpsilon,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		err = l.r.db.QueryRow(
			`SELECT payload FROM samples WHERE location_id = ? AND channel = ? AND name = ? ORDER BY time LIMIT 1`,
			l.id, channel, name,
		).Scan(&payload)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s at %s: %w", channel, name, l.path, scene.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", channel, l.path, err)
	}
	return payload, nil
}

func (l *location) exists(query string, args ...any) bool {
	var one int
	return l.r.db.QueryRow(query, args...).Scan(&one) == nil
}

func (l *location) HasObject() bool {
	return l.exists(`SELECT 1 FROM samples WHERE location_id = ? AND channel = ? LIMIT 1`, l.id, channelObject)
}

func (l *location) ReadObject(t float64) (scene.Object, error) {
	payload, err := l.readSample(channelObject, "", t)
	if err != nil {
		return nil, err
	}
	return decodeObject(payload)
}

// ReadTransformAsMatrix returns identity for locations without transform samples.
func (l *location) ReadTransformAsMatrix(t float64) (scene.M44d, error) {
	payload, err := l.readSample(channelTransform, "", t)
	if errors.Is(err, scene.ErrNotFound) {
		return scene.Identity(), nil
	}
	if err != nil {
		return scene.M44d{}, err
	}
	var m scene.M44d
	if err := json.Unmarshal(payload, &m); err != nil {
		return scene.M44d{}, fmt.Errorf("decode transform: %w", err)
	}
	return m, nil
}

func (l *location) ReadBound(t float64) (scene.Box3d, error) {
	payload, err := l.readSample(channelBound, "", t)
	if err != nil {
		return scene.EmptyBox(), err
	}
	var b scene.Box3d
	if err := json.Unmarshal(payload, &b); err != nil {
		return scene.EmptyBox(), fmt.Errorf("decode bound: %w", err)
	}
	return b, nil
}

func (l *location) HasAttribute(name string) bool {
	return l.exists(`SELECT 1 FROM samples WHERE location_id = ? AND channel = ? AND name = ? LIMIT 1`, l.id, channelAttribute, name)
}

func (l *location) AttributeNames() ([]string, error) {
	rows, err := l.r.db.Query(`SELECT DISTINCT name FROM samples WHERE location_id = ? AND channel = ? ORDER BY name`, l.id, channelAttribute)
	if err != nil {
		return nil, fmt.Errorf("list attributes of %s: %w", l.path, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (l *location) ReadAttribute(name string, t float64) (scene.Data, error) {
	payload, err := l.readSample(channelAttribute, name, t)
	if err != nil {
		return nil, err
	}
	var rec dataRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("decode attribute %s: %w", name, err)
	}
	return decodeData(&rec)
}

func (l *location) HasTag(tag string) bool {
	return l.exists(`SELECT 1 FROM tags WHERE location_id = ? AND tag = ?`, l.id, tag)
}

func (l *location) ReadTags() ([]string, error) {
	rows, err := l.r.db.Query(`SELECT tag FROM tags WHERE location_id = ? ORDER BY tag`, l.id)
	if err != nil {
		return nil, fmt.Errorf("read tags of %s: %w", l.path, err)
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		if !scene.IsObjectTypeTag(tag) {
			tags = append(tags, tag)
		}
	}
	return tags, rows.Err()
}

func (l *location) TransformSampleTimes() []float64 { return l.sampleTimes(channelTransform, "") }
func (l *location) BoundSampleTimes() []float64     { return l.sampleTimes(channelBound, "") }
func (l *location) ObjectSampleTimes() []float64    { return l.sampleTimes(channelObject, "") }

func (l *location) AttributeSampleTimes(name string) []float64 {
	return l.sampleTimes(channelAttribute, name)
}

func (l *location) ObjectVariables() []scene.VariableInfo {
	rows, err := l.r.db.Query(
		`SELECT name, interpolation, data_type, interpretation, has_indices FROM variables WHERE location_id = ? ORDER BY name`, l.id)
	if err != nil {
		return nil
	}
	defer func() { _ = rows.Close() }() // safe to ignore

	var out []scene.VariableInfo
	for rows.Next() {
		var (
			info           scene.VariableInfo
			interpolation  int
			interpretation sql.NullInt64
			hasIndices     bool
		)
		if err := rows.Scan(&info.Name, &interpolation, &info.DataType, &interpretation, &hasIndices); err != nil {
			return nil
		}
		info.Interpolation = scene.Interpolation(interpolation)
		if interpretation.Valid {
			info.Interpretation = scene.Interpretation(interpretation.Int64)
			info.HasInterpretation = true
		}
		info.HasIndices = hasIndices
		out = append(out, info)
	}
	return out
}
