package scenecache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/scenebridge/internal/scene"
)

func quad() *scene.MeshPrimitive {
	return &scene.MeshPrimitive{
		VerticesPerFace: scene.IntVectorData{4},
		VertexIDs:       scene.IntVectorData{0, 1, 2, 3},
		Interpolation:   "linear",
		Vars: map[string]scene.PrimitiveVariable{
			"P": {
				Interpolation: scene.InterpolationVertex,
				Data: scene.V3fVectorData{
					Values:         []scene.V3f{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
					Interpretation: scene.InterpretationPoint,
				},
			},
			"uv": {
				Interpolation: scene.InterpolationFaceVarying,
				Data: scene.V2fVectorData{
					Values:         []scene.V2f{{0, 0}, {1, 1}},
					Interpretation: scene.InterpretationUV,
				},
				Indices: scene.IntVectorData{0, 1, 1, 0},
			},
		},
	}
}

// writeTestCache writes /a (animated transform), /a/mesh and /b with tags.
func writeTestCache(t *testing.T, fileName string) {
	t.Helper()
	w, err := Create(fileName, WithFrameRate("maya", 24))
	require.NoError(t, err)

	a, err := w.Root().Child("a")
	require.NoError(t, err)
	require.NoError(t, a.WriteTransform(scene.Translate(0, 0, 0), 1))
	require.NoError(t, a.WriteTransform(scene.Translate(5, 0, 0), 2))
	require.NoError(t, a.WriteAttribute(scene.VisibilityAttribute, scene.BoolData(true), 1))
	require.NoError(t, a.WriteAttribute(scene.VisibilityAttribute, scene.BoolData(false), 2))

	mesh, err := a.Child("mesh")
	require.NoError(t, err)
	require.NoError(t, mesh.WriteObject(quad(), 1))
	require.NoError(t, mesh.WriteTags([]string{"geo"}))

	b, err := w.Root().Child("b")
	require.NoError(t, err)
	require.NoError(t, b.WriteTags([]string{"render", "geo"}))

	require.NoError(t, w.Close())
}

func TestWriterReader_RoundTrip(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "shot.scc")
	writeTestCache(t, fileName)

	r, err := Open(fileName)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	fps, ok := r.FrameRate()
	require.True(t, ok)
	assert.Equal(t, 24.0, fps)

	root := r.Root()
	names, err := root.ChildNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	child, err := root.Child("a")
	require.NoError(t, err)
	a := child.(scene.SampledReader)
	assert.Equal(t, []float64{1, 2}, a.TransformSampleTimes())

	m, err := a.ReadTransformAsMatrix(2)
	require.NoError(t, err)
	assert.Equal(t, scene.Translate(5, 0, 0), m)

	// Held: before the first sample reads the first, between reads the earlier.
	m, err = a.ReadTransformAsMatrix(0)
	require.NoError(t, err)
	assert.Equal(t, scene.Translate(0, 0, 0), m)
	m, err = a.ReadTransformAsMatrix(1.5)
	require.NoError(t, err)
	assert.Equal(t, scene.Translate(0, 0, 0), m)

	vis, err := a.ReadAttribute(scene.VisibilityAttribute, 2)
	require.NoError(t, err)
	assert.Equal(t, scene.BoolData(false), vis)
	assert.Equal(t, []float64{1, 2}, a.AttributeSampleTimes(scene.VisibilityAttribute))

	meshReader, ok := root.Scene(scene.Path{"a", "mesh"})
	require.True(t, ok)
	assert.True(t, meshReader.HasObject())
	assert.True(t, meshReader.HasTag(scene.ObjectTypeTag(scene.TypeMesh)))
	tags, err := meshReader.ReadTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"geo"}, tags)

	obj, err := meshReader.ReadObject(1)
	require.NoError(t, err)
	assert.Equal(t, quad(), obj)

	vars := meshReader.(scene.SampledReader).ObjectVariables()
	require.Len(t, vars, 2)
	assert.Equal(t, "P", vars[0].Name)
	assert.Equal(t, "V3fVectorData", vars[0].DataType)
	assert.True(t, vars[0].HasInterpretation)
	assert.Equal(t, scene.InterpretationPoint, vars[0].Interpretation)
	assert.Equal(t, "uv", vars[1].Name)
	assert.True(t, vars[1].HasIndices)
	assert.Equal(t, scene.InterpolationFaceVarying, vars[1].Interpolation)

	_, ok = root.Scene(scene.Path{"missing"})
	assert.False(t, ok)
	_, err = root.Child("missing")
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestWriter_ComputesBounds(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "bounds.scc")
	writeTestCache(t, fileName)

	r, err := Open(fileName)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	mesh, ok := r.Root().Scene(scene.Path{"a", "mesh"})
	require.True(t, ok)
	b, err := mesh.ReadBound(1)
	require.NoError(t, err)
	assert.Equal(t, scene.V3d{0, 0, 0}, b.Min)
	assert.Equal(t, scene.V3d{1, 1, 0}, b.Max)

	// The parent bound follows the child, untransformed by the parent itself.
	a, ok := r.Root().Scene(scene.Path{"a"})
	require.True(t, ok)
	b, err = a.ReadBound(1)
	require.NoError(t, err)
	assert.Equal(t, scene.V3d{1, 1, 0}, b.Max)

	// Root bound includes /a moved by its transform at time 2.
	b, err = r.Root().ReadBound(2)
	require.NoError(t, err)
	assert.Equal(t, scene.V3d{6, 1, 0}, b.Max)

	empty, ok := r.Root().Scene(scene.Path{"b"})
	require.True(t, ok)
	_, err = empty.ReadBound(0)
	assert.ErrorIs(t, err, scene.ErrNotFound)
}

func TestReader_SampleTimeLists(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "times.scc")
	writeTestCache(t, fileName)

	r, err := Open(fileName)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	lists, err := r.SampleTimeLists()
	require.NoError(t, err)
	assert.Contains(t, lists, []float64{1, 2})
	assert.Contains(t, lists, []float64{1})
}

func TestReader_TransformDefaultsToIdentity(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "static.scc")
	writeTestCache(t, fileName)

	r, err := Open(fileName)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	b, ok := r.Root().Scene(scene.Path{"b"})
	require.True(t, ok)
	m, err := b.ReadTransformAsMatrix(3)
	require.NoError(t, err)
	assert.Equal(t, scene.Identity(), m)
}

func TestWriter_Errors(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "errors.scc")
	w, err := Create(fileName)
	require.NoError(t, err)

	assert.Error(t, w.Root().WriteTransform(scene.Identity(), 0))
	assert.Error(t, w.Root().WriteObject(quad(), 0))

	c, err := w.Root().Child("c")
	require.NoError(t, err)
	require.NoError(t, c.WriteObject(quad(), 0))
	assert.Error(t, c.WriteObject(scene.NewCamera(), 1))

	// A second writer on the same file is refused while the first holds the lock.
	_, err = Create(fileName)
	assert.Error(t, err)

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, c.WriteTags([]string{"late"}), ErrClosed)

	_, err = os.Stat(fileName + ".lock")
	assert.True(t, os.IsNotExist(err))
}

func TestWriter_Discard(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "discard.scc")
	w, err := Create(fileName)
	require.NoError(t, err)
	c, err := w.Root().Child("c")
	require.NoError(t, err)
	require.NoError(t, c.WriteObject(quad(), 0))

	require.NoError(t, w.Discard())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, c.WriteTags([]string{"late"}), ErrClosed)

	_, err = os.Stat(fileName)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fileName + ".lock")
	assert.True(t, os.IsNotExist(err))

	// The path is free for a new writer.
	again, err := Create(fileName)
	require.NoError(t, err)
	require.NoError(t, again.Close())
}

func TestWriter_Link(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "link.lscc")
	w, err := Create(fileName)
	require.NoError(t, err)
	l, err := w.Root().Child("asset")
	require.NoError(t, err)
	require.NoError(t, l.WriteLinkAt("/tmp/asset.scc", scene.RootPath, 3, 1))
	require.NoError(t, l.WriteLinkAt("/tmp/asset.scc", scene.RootPath, 4, 2))
	require.NoError(t, w.Close())

	r, err := Open(fileName)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	loc, ok := r.Root().Scene(scene.Path{"asset"})
	require.True(t, ok)
	assert.True(t, loc.HasAttribute(scene.LinkFileNameAttribute))
	name, err := loc.ReadAttribute(scene.LinkFileNameAttribute, 0)
	require.NoError(t, err)
	assert.Equal(t, scene.StringData("/tmp/asset.scc"), name)
	linkTime, err := loc.ReadAttribute(scene.LinkTimeAttribute, 2)
	require.NoError(t, err)
	assert.Equal(t, scene.DoubleData(4), linkTime)
	assert.Equal(t, []float64{1, 2}, loc.(scene.SampledReader).AttributeSampleTimes(scene.LinkTimeAttribute))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(filepath.Join(dir, "missing.scc"))
	assert.Error(t, err)

	junk := filepath.Join(dir, "junk.scc")
	require.NoError(t, os.WriteFile(junk, []byte("not a database"), 0o644))
	_, err = Open(junk)
	assert.Error(t, err)
}

func TestRegistry_SharesReaders(t *testing.T) {
	dir := t.TempDir()
	fileName := filepath.Join(dir, "shared.scc")
	writeTestCache(t, fileName)
	alias := filepath.Join(dir, "alias.scc")
	require.NoError(t, os.Symlink(fileName, alias))

	reg := NewRegistry()
	r1, err := reg.Open(fileName)
	require.NoError(t, err)
	r2, err := reg.Open(alias)
	require.NoError(t, err)
	assert.Same(t, r1, r2)
	assert.Equal(t, 1, reg.Len())

	require.NoError(t, reg.Release(fileName))
	assert.Equal(t, 1, reg.Len())
	require.NoError(t, reg.Release(alias))
	assert.Equal(t, 0, reg.Len())

	// Releasing an unknown file is a no-op.
	require.NoError(t, reg.Release(fileName))

	_, err = reg.Open(filepath.Join(dir, "missing.scc"))
	assert.Error(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_Concurrent(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "concurrent.scc")
	writeTestCache(t, fileName)

	reg := NewRegistry()
	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := reg.Open(fileName)
			if err != nil {
				errs <- err
				return
			}
			if _, err := r.Root().ChildNames(); err != nil {
				errs <- err
			}
			errs <- reg.Release(fileName)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 0, reg.Len())
}
