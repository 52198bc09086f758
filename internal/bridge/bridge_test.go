package bridge

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/scenebridge/internal/config"
	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/scenecache"
	"github.com/agentic-research/scenebridge/internal/sdf"
	"github.com/agentic-research/scenebridge/internal/timecode"
)

func quad(offset float32) *scene.MeshPrimitive {
	return &scene.MeshPrimitive{
		VerticesPerFace: scene.IntVectorData{4},
		VertexIDs:       scene.IntVectorData{0, 1, 2, 3},
		Interpolation:   "linear",
		Vars: map[string]scene.PrimitiveVariable{
			"P": {
				Interpolation: scene.InterpolationVertex,
				Data: scene.V3fVectorData{
					Values: []scene.V3f{
						{offset, 0, 0}, {offset + 1, 0, 0}, {offset + 1, 1, 0}, {offset, 1, 0},
					},
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
			"density": {
				Interpolation: scene.InterpolationVertex,
				Data:          scene.FloatVectorData{0.5, 1.5},
				Indices:       scene.IntVectorData{0, 1, 1, 0},
			},
			"temp": {
				Interpolation: scene.InterpolationVertex,
				Data:          scene.FloatVectorData{1, 2, 3, 4},
			},
		},
	}
}

func bezier() *scene.CurvesPrimitive {
	return &scene.CurvesPrimitive{
		VerticesPerCurve: scene.IntVectorData{4},
		Basis:            scene.BasisBezier,
		Vars: map[string]scene.PrimitiveVariable{
			"P": {
				Interpolation: scene.InterpolationVertex,
				Data: scene.V3fVectorData{
					Values:         []scene.V3f{{0, 0, 0}, {1, 1, 0}, {2, 1, 0}, {3, 0, 0}},
					Interpretation: scene.InterpretationPoint,
				},
			},
		},
	}
}

func particles() *scene.PointsPrimitive {
	return &scene.PointsPrimitive{
		NumPoints: 2,
		Vars: map[string]scene.PrimitiveVariable{
			"P": {
				Interpolation: scene.InterpolationVertex,
				Data: scene.V3fVectorData{
					Values:         []scene.V3f{{0, 0, 0}, {1, 0, 0}},
					Interpretation: scene.InterpretationPoint,
				},
			},
			"velocities": {
				Interpolation: scene.InterpolationVertex,
				Data: scene.V3fVectorData{
					Values:         []scene.V3f{{0, 1, 0}, {0, 2, 0}},
					Interpretation: scene.InterpretationVector,
				},
			},
			"width": {
				Interpolation: scene.InterpolationVertex,
				Data:          scene.FloatVectorData{0.1, 0.2},
			},
		},
	}
}

// writeShot writes a 24 fps cache:
//
//	/a            transform and visibility at 1s and 2s
//	/a/mesh       mesh at 1s and 2s, tagged geo
//	/a/cam        camera at 1s, tagged geo and hero
//	/a/curves     bezier curves at 1s, tagged hero
//	/b            tagged geo
//	/b/pts        static points
//	/b/odd name   transform only
func writeShot(t *testing.T, fileName string) {
	t.Helper()
	w, err := scenecache.Create(fileName, scenecache.WithFrameRate("maya", 24))
	require.NoError(t, err)
	root := w.Root()

	a, err := root.Child("a")
	require.NoError(t, err)
	require.NoError(t, a.WriteTransform(scene.Translate(0, 0, 0), 1))
	require.NoError(t, a.WriteTransform(scene.Translate(5, 0, 0), 2))
	require.NoError(t, a.WriteAttribute(scene.VisibilityAttribute, scene.BoolData(true), 1))
	require.NoError(t, a.WriteAttribute(scene.VisibilityAttribute, scene.BoolData(false), 2))

	mesh, err := a.Child("mesh")
	require.NoError(t, err)
	require.NoError(t, mesh.WriteObject(quad(0), 1))
	require.NoError(t, mesh.WriteObject(quad(2), 2))
	require.NoError(t, mesh.WriteTags([]string{"geo"}))

	cam, err := a.Child("cam")
	require.NoError(t, err)
	require.NoError(t, cam.WriteObject(scene.NewCamera(), 1))
	require.NoError(t, cam.WriteTags([]string{"geo", "hero"}))

	curves, err := a.Child("curves")
	require.NoError(t, err)
	require.NoError(t, curves.WriteObject(bezier(), 1))
	require.NoError(t, curves.WriteTags([]string{"hero"}))

	b, err := root.Child("b")
	require.NoError(t, err)
	require.NoError(t, b.WriteTags([]string{"geo"}))

	pts, err := b.Child("pts")
	require.NoError(t, err)
	require.NoError(t, pts.WriteObject(particles(), 0))

	odd, err := b.Child("odd name")
	require.NoError(t, err)
	require.NoError(t, odd.WriteTransform(scene.Translate(0, 3, 0), 1))

	require.NoError(t, w.Close())
}

func testOptions(reg *scenecache.Registry) Options {
	logger := zerolog.New(io.Discard)
	return Options{
		Logger:   &logger,
		Registry: reg,
		Flags:    &config.BridgeConfig{},
	}
}

func openShot(t *testing.T) *Data {
	t.Helper()
	fileName := filepath.Join(t.TempDir(), "shot.scc")
	writeShot(t, fileName)

	d, err := Open(fileName, testOptions(scenecache.NewRegistry()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func tokens(names ...string) []sdf.Token {
	out := make([]sdf.Token, len(names))
	for i, n := range names {
		out[i] = sdf.Token(n)
	}
	return out
}

func TestOpen_PseudoRoot(t *testing.T) {
	d := openShot(t)

	require.True(t, d.HasSpec(sdf.AbsoluteRootPath))
	assert.Equal(t, sdf.SpecTypePseudoRoot, d.GetSpecType(sdf.AbsoluteRootPath))
	assert.Equal(t, []string{
		sdf.FieldDefaultPrim,
		sdf.FieldTimeCodesPerSecond,
		sdf.FieldStartTimeCode,
		sdf.FieldEndTimeCode,
		sdf.FieldPrimChildren,
	}, d.List(sdf.AbsoluteRootPath))

	assert.Equal(t, sdf.Token("a"), d.Get(sdf.AbsoluteRootPath, sdf.FieldDefaultPrim))
	assert.Equal(t, 24.0, d.Get(sdf.AbsoluteRootPath, sdf.FieldTimeCodesPerSecond))
	assert.Equal(t, 24.0, d.Get(sdf.AbsoluteRootPath, sdf.FieldStartTimeCode))
	assert.Equal(t, 48.0, d.Get(sdf.AbsoluteRootPath, sdf.FieldEndTimeCode))
	assert.Equal(t, tokens("a", "b"), d.Get(sdf.AbsoluteRootPath, sdf.FieldPrimChildren))
}

func TestOpen_TransformPrim(t *testing.T) {
	d := openShot(t)
	a := sdf.Path("/a")

	assert.Equal(t, sdf.SpecTypePrim, d.GetSpecType(a))
	assert.Equal(t, []string{
		sdf.FieldSpecifier,
		sdf.FieldAPISchemas,
		sdf.FieldPropertyChildren,
		sdf.FieldTypeName,
		sdf.FieldPrimChildren,
	}, d.List(a))
	assert.Equal(t, sdf.SpecifierDef, d.Get(a, sdf.FieldSpecifier))
	assert.Equal(t, sdf.PrimTypeXform, d.Get(a, sdf.FieldTypeName))
	assert.Equal(t, tokens("mesh", "cam", "curves"), d.Get(a, sdf.FieldPrimChildren))
	assert.Equal(t, tokens(
		"visibility", "extent", "xformOpOrder", "xformOp:transform",
		"collection:geo:expansionRule", "collection:geo:includes",
		"collection:hero:expansionRule", "collection:hero:includes",
	), d.Get(a, sdf.FieldPropertyChildren))

	order := a.AppendProperty(sdf.PropXformOpOrder)
	assert.Equal(t, []string{
		sdf.FieldVariability, sdf.FieldDefault, sdf.FieldCustom, sdf.FieldTypeName,
	}, d.List(order))
	assert.Equal(t, sdf.VariabilityUniform, d.Get(order, sdf.FieldVariability))
	assert.Equal(t, tokens("xformOp:transform"), d.Get(order, sdf.FieldDefault))
	assert.Equal(t, sdf.TypeNameTokenArray, d.Get(order, sdf.FieldTypeName))

	xform := a.AppendProperty(sdf.PropXformTransform)
	assert.Equal(t, sdf.SpecTypeAttribute, d.GetSpecType(xform))
	assert.Equal(t, []string{
		sdf.FieldVariability, sdf.FieldTimeSamples, sdf.FieldCustom, sdf.FieldTypeName,
	}, d.List(xform))
	assert.Equal(t, []float64{24, 48}, d.ListTimeSamplesForPath(xform))

	v, ok := d.QueryTimeSample(xform, 48)
	require.True(t, ok)
	assert.Equal(t, sdf.Matrix4d(scene.Translate(5, 0, 0)), v)
}

func TestQueryTimeSample_Visibility(t *testing.T) {
	d := openShot(t)

	vis := sdf.Path("/a.visibility")
	assert.Equal(t, []float64{24, 48}, d.ListTimeSamplesForPath(vis))
	v, ok := d.QueryTimeSample(vis, 24)
	require.True(t, ok)
	assert.Equal(t, sdf.TokenInherited, v)
	v, ok = d.QueryTimeSample(vis, 48)
	require.True(t, ok)
	assert.Equal(t, sdf.TokenInvisible, v)

	// No visibility attribute: a single static sample, always inherited.
	static := sdf.Path("/b.visibility")
	assert.Equal(t, []float64{0}, d.ListTimeSamplesForPath(static))
	v, ok = d.QueryTimeSample(static, 0)
	require.True(t, ok)
	assert.Equal(t, sdf.TokenInherited, v)
}

func TestScenarioA_MeshPointsArePlaceholders(t *testing.T) {
	d := openShot(t)
	points := sdf.Path("/a/mesh.points")

	m, ok := d.Get(points, sdf.FieldTimeSamples).(*sdf.TimeSampleMap)
	require.True(t, ok)
	require.Equal(t, 2, m.Len())
	for _, e := range m.Entries() {
		assert.IsType(t, sdf.Placeholder{}, e.Sample)
	}
	assert.Equal(t, 2, d.GetNumTimeSamplesForPath(points))

	v, ok := d.QueryTimeSample(points, 48)
	require.True(t, ok)
	assert.Equal(t, []sdf.Vec3f{{2, 0, 0}, {3, 0, 0}, {3, 1, 0}, {2, 1, 0}}, v)

	_, ok = d.QueryTimeSample(points, 36)
	assert.False(t, ok, "no value between samples")

	again, ok := d.QueryTimeSample(points, 48)
	require.True(t, ok)
	assert.Equal(t, v, again)
}

func TestOpen_MeshPrim(t *testing.T) {
	d := openShot(t)
	mesh := sdf.Path("/a/mesh")

	assert.Equal(t, sdf.PrimTypeMesh, d.Get(mesh, sdf.FieldTypeName))
	assert.Equal(t, tokens(
		"visibility", "extent", "xformOpOrder", "xformOp:transform",
		"faceVertexCounts", "faceVertexIndices", "cornerIndices", "cornerSharpnesses",
		"creaseIndices", "creaseLengths", "creaseSharpnesses",
		"points",
		"primvars:density", "primvars:density:indices",
		"primvars:temp", "primvars:temp:indices",
		"primvars:st", "primvars:st:indices",
		"orientation",
	), d.Get(mesh, sdf.FieldPropertyChildren))

	counts, ok := d.QueryTimeSample(mesh.AppendProperty(sdf.PropFaceVertexCounts), 24)
	require.True(t, ok)
	assert.Equal(t, []int32{4}, counts)

	st := mesh.AppendProperty(sdf.PropST)
	assert.Equal(t, sdf.TypeNameTexCoord2fArray, d.Get(st, sdf.FieldTypeName))
	assert.Equal(t, sdf.TokenFaceVarying, d.Get(st, sdf.FieldInterpolation))
	assert.Equal(t, false, d.Get(st, sdf.FieldCustom))
	v, ok := d.QueryTimeSample(st, 24)
	require.True(t, ok)
	assert.Equal(t, []sdf.Vec2f{{0, 0}, {1, 1}}, v)
	v, ok = d.QueryTimeSample(mesh.AppendProperty(sdf.PropSTIndices), 24)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1, 1, 0}, v)

	orientation := mesh.AppendProperty(sdf.PropOrientation)
	assert.Equal(t, []string{
		sdf.FieldVariability, sdf.FieldDefault, sdf.FieldInterpolation, sdf.FieldCustom, sdf.FieldTypeName,
	}, d.List(orientation))
	assert.Equal(t, sdf.TokenRightHanded, d.Get(orientation, sdf.FieldDefault))

	// Corner and crease data are absent from the quad: empty arrays.
	corners, ok := d.QueryTimeSample(mesh.AppendProperty(sdf.PropCornerIndices), 24)
	require.True(t, ok)
	assert.Empty(t, corners)
}

func TestScenarioC_CustomPrimvarIndices(t *testing.T) {
	d := openShot(t)
	mesh := sdf.Path("/a/mesh")

	density := mesh.AppendProperty("primvars:density")
	assert.Equal(t, true, d.Get(density, sdf.FieldCustom))
	assert.Equal(t, sdf.TypeNameFloatArray, d.Get(density, sdf.FieldTypeName))
	assert.Equal(t, sdf.TokenVertex, d.Get(density, sdf.FieldInterpolation))

	v, ok := d.QueryTimeSample(density, 24)
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 1.5}, v)
	v, ok = d.QueryTimeSample(mesh.AppendProperty("primvars:density:indices"), 24)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1, 1, 0}, v)

	temp := mesh.AppendProperty("primvars:temp:indices")
	require.True(t, d.HasSpec(temp))
	assert.Equal(t, sdf.TypeNameIntArray, d.Get(temp, sdf.FieldTypeName))
	assert.Equal(t, true, d.Get(temp, sdf.FieldCustom))
	v, ok = d.QueryTimeSample(temp, 48)
	require.True(t, ok)
	assert.Equal(t, []int32{0, 1, 2, 3}, v)
}

func TestOpen_ReservedPrimvarName(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "reserved.scc")
	w, err := scenecache.Create(fileName, scenecache.WithFrameRate("maya", 24))
	require.NoError(t, err)
	custom := scene.PrimitiveVariable{
		Interpolation: scene.InterpolationVertex,
		Data:          scene.FloatVectorData{1, 2, 3, 4},
	}
	withUV, err := w.Root().Child("uv")
	require.NoError(t, err)
	m := quad(0)
	m.Vars["st"] = custom
	require.NoError(t, withUV.WriteObject(m, 1))
	alone, err := w.Root().Child("alone")
	require.NoError(t, err)
	m = quad(0)
	delete(m.Vars, "uv")
	m.Vars["st"] = custom
	require.NoError(t, alone.WriteObject(m, 1))
	require.NoError(t, w.Close())

	var logs bytes.Buffer
	opts := testOptions(scenecache.NewRegistry())
	logger := zerolog.New(&logs)
	opts.Logger = &logger
	d, err := Open(fileName, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	count := func(path sdf.Path, name sdf.Token) int {
		n := 0
		for _, p := range d.Get(path, sdf.FieldPropertyChildren).([]sdf.Token) {
			if p == name {
				n++
			}
		}
		return n
	}

	// The reserved name keeps reading the uv variable.
	st := sdf.Path("/uv").AppendProperty(sdf.PropST)
	assert.Equal(t, 1, count("/uv", sdf.PropST))
	assert.Equal(t, 1, count("/uv", sdf.PropSTIndices))
	assert.Equal(t, sdf.TypeNameTexCoord2fArray, d.Get(st, sdf.FieldTypeName))
	v, ok := d.QueryTimeSample(st, 24)
	require.True(t, ok)
	assert.Equal(t, []sdf.Vec2f{{0, 0}, {1, 1}}, v)

	assert.Zero(t, count("/alone", sdf.PropST))
	assert.False(t, d.HasSpec(sdf.Path("/alone").AppendProperty(sdf.PropST)))
	assert.Contains(t, logs.String(), "primitive variable name is reserved")
}

func TestOpen_CameraPrim(t *testing.T) {
	d := openShot(t)
	cam := sdf.Path("/a/cam")

	assert.Equal(t, sdf.PrimTypeCamera, d.Get(cam, sdf.FieldTypeName))
	assert.Equal(t, tokens(
		"visibility", "extent", "xformOpOrder", "xformOp:transform",
		"focalLength", "horizontalAperture", "verticalAperture",
		"horizontalApertureOffset", "verticalApertureOffset",
	), d.Get(cam, sdf.FieldPropertyChildren))

	tests := []struct {
		prop string
		want float32
	}{
		{sdf.PropFocalLength, 35},
		{sdf.PropHorizontalAperture, 36},
		{sdf.PropVerticalAperture, 24},
		{sdf.PropHorizontalApertureOffset, 0},
	}
	for _, tt := range tests {
		t.Run(tt.prop, func(t *testing.T) {
			v, ok := d.QueryTimeSample(cam.AppendProperty(tt.prop), 24)
			require.True(t, ok)
			assert.InDelta(t, tt.want, v, 1e-4)
		})
	}
}

func TestOpen_CurvesPrim(t *testing.T) {
	d := openShot(t)
	curves := sdf.Path("/a/curves")

	assert.Equal(t, sdf.PrimTypeBasisCurves, d.Get(curves, sdf.FieldTypeName))

	wrap := curves.AppendProperty(sdf.PropWrap)
	assert.Equal(t, sdf.TokenNonperiodic, d.Get(wrap, sdf.FieldDefault))
	assert.Nil(t, d.Get(wrap, sdf.FieldTimeSamples))

	v, ok := d.QueryTimeSample(curves.AppendProperty(sdf.PropBasis), 24)
	require.True(t, ok)
	assert.Equal(t, sdf.TokenBezier, v)
	v, ok = d.QueryTimeSample(curves.AppendProperty(sdf.PropCurveType), 24)
	require.True(t, ok)
	assert.Equal(t, sdf.TokenCubic, v)
	v, ok = d.QueryTimeSample(curves.AppendProperty(sdf.PropCurveVertexCounts), 24)
	require.True(t, ok)
	assert.Equal(t, []int32{4}, v)
}

func TestOpen_PointsPrim(t *testing.T) {
	d := openShot(t)
	pts := sdf.Path("/b/pts")

	assert.Equal(t, sdf.PrimTypePoints, d.Get(pts, sdf.FieldTypeName))
	assert.Equal(t, tokens(
		"visibility", "extent", "xformOpOrder", "xformOp:transform",
		"points", "velocities", "widths", "orientation",
	), d.Get(pts, sdf.FieldPropertyChildren))

	vel := pts.AppendProperty(sdf.PropVelocities)
	assert.Equal(t, sdf.TypeNameVector3fArray, d.Get(vel, sdf.FieldTypeName))
	assert.Equal(t, false, d.Get(vel, sdf.FieldCustom))
	assert.Equal(t, []float64{0}, d.ListTimeSamplesForPath(vel))
	v, ok := d.QueryTimeSample(vel, 0)
	require.True(t, ok)
	assert.Equal(t, []sdf.Vec3f{{0, 1, 0}, {0, 2, 0}}, v)

	widths := pts.AppendProperty(sdf.PropWidths)
	assert.Equal(t, false, d.Get(widths, sdf.FieldCustom))
	v, ok = d.QueryTimeSample(widths, 0)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, v)
}

func TestScenarioD_Collections(t *testing.T) {
	d := openShot(t)
	a := sdf.Path("/a")

	assert.Equal(t, sdf.PrependedListOp(sdf.Token("CollectionAPI:geo"), sdf.Token("CollectionAPI:hero")),
		d.Get(a, sdf.FieldAPISchemas))

	rule := a.AppendProperty("collection:geo:expansionRule")
	assert.Equal(t, sdf.TokenExplicitOnly, d.Get(rule, sdf.FieldDefault))
	assert.Equal(t, sdf.VariabilityUniform, d.Get(rule, sdf.FieldVariability))

	geo := a.AppendProperty("collection:geo:includes")
	assert.Equal(t, sdf.SpecTypeRelationship, d.GetSpecType(geo))
	assert.Equal(t, []string{sdf.FieldVariability, sdf.FieldTargetPaths, sdf.FieldTargetChildren}, d.List(geo))
	assert.Equal(t, sdf.ExplicitListOp[sdf.Path]("/a/mesh", "/a/cam"), d.Get(geo, sdf.FieldTargetPaths))
	assert.Equal(t, []sdf.Path{"/a/mesh", "/a/cam"}, d.Get(geo, sdf.FieldTargetChildren))

	hero := a.AppendProperty("collection:hero:includes")
	assert.Equal(t, sdf.ExplicitListOp[sdf.Path]("/a/cam", "/a/curves"), d.Get(hero, sdf.FieldTargetPaths))

	// Collections reset per top-level prim.
	assert.Equal(t, sdf.PrependedListOp(sdf.Token("CollectionAPI:geo")), d.Get("/b", sdf.FieldAPISchemas))
	assert.Equal(t, sdf.ExplicitListOp[sdf.Path]("/b"), d.Get("/b.collection:geo:includes", sdf.FieldTargetPaths))

	// Collection paths have no cache location behind them.
	_, ok := d.QueryTimeSample(geo, 0)
	assert.False(t, ok)
}

func TestOpen_EscapesNames(t *testing.T) {
	d := openShot(t)

	escaped := sdf.EscapeName("odd name")
	children := d.Get("/b", sdf.FieldPrimChildren)
	assert.Equal(t, tokens("pts", escaped), children)

	xform := sdf.Path("/b/" + escaped).AppendProperty(sdf.PropXformTransform)
	require.True(t, d.HasSpec(xform))
	v, ok := d.QueryTimeSample(xform, 24)
	require.True(t, ok)
	assert.Equal(t, sdf.Matrix4d(scene.Translate(0, 3, 0)), v)
}

func TestBracketing(t *testing.T) {
	d := openShot(t)
	xform := sdf.Path("/a.xformOp:transform")

	tests := []struct {
		name         string
		time         float64
		lower, upper float64
	}{
		{"before first", 10, 24, 24},
		{"on sample", 24, 24, 24},
		{"within tolerance", 47.9995, 48, 48},
		{"between", 36, 24, 48},
		{"after last", 60, 48, 48},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := d.GetBracketingTimeSamplesForPath(xform, tt.time)
			require.True(t, ok)
			assert.Equal(t, tt.lower, lo)
			assert.Equal(t, tt.upper, hi)
		})
	}

	_, _, ok := d.GetBracketingTimeSamplesForPath("/a.xformOpOrder", 1)
	assert.False(t, ok, "uniform attributes have no samples")

	// The global set also holds the static samples at 0.
	assert.Equal(t, []float64{0, 24, 48}, d.ListAllTimeSamples())
	lo, hi, ok := d.GetBracketingTimeSamples(12)
	require.True(t, ok)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 24.0, hi)
}

func TestQueryTimeSample_WithinTolerance(t *testing.T) {
	d := openShot(t)
	v, ok := d.QueryTimeSample("/a.xformOp:transform", 48.0004)
	require.True(t, ok)
	assert.Equal(t, sdf.Matrix4d(scene.Translate(5, 0, 0)), v)
}

func TestSpecTable_Mutation(t *testing.T) {
	d := openShot(t)

	err := d.CreateSpec("/x", sdf.SpecTypeUnknown)
	assert.ErrorIs(t, err, sdf.ErrInvalidSpecType)

	require.NoError(t, d.CreateSpec("/x", sdf.SpecTypePrim))
	assert.True(t, d.HasSpec("/x"))

	assert.ErrorIs(t, d.MoveSpec("/x", "/a"), sdf.ErrSpecExists)
	assert.ErrorIs(t, d.MoveSpec("/nope", "/y"), sdf.ErrSpecNotFound)
	require.NoError(t, d.MoveSpec("/x", "/y"))
	assert.False(t, d.HasSpec("/x"))
	assert.Equal(t, sdf.SpecTypePrim, d.GetSpecType("/y"))

	assert.ErrorIs(t, d.Set("/nope", sdf.FieldTypeName, sdf.PrimTypeXform), sdf.ErrSpecNotFound)
	require.NoError(t, d.Set("/y", sdf.FieldTypeName, sdf.PrimTypeXform))
	v, typ, ok := d.HasSpecAndField("/y", sdf.FieldTypeName)
	require.True(t, ok)
	assert.Equal(t, sdf.PrimTypeXform, v)
	assert.Equal(t, sdf.SpecTypePrim, typ)

	require.NoError(t, d.Set("/y", sdf.FieldTypeName, nil))
	_, typ, ok = d.HasSpecAndField("/y", sdf.FieldTypeName)
	assert.False(t, ok)
	assert.Equal(t, sdf.SpecTypePrim, typ)

	require.NoError(t, d.EraseSpec("/y"))
	assert.ErrorIs(t, d.EraseSpec("/y"), sdf.ErrSpecNotFound)
	assert.Equal(t, sdf.SpecTypeUnknown, d.GetSpecType("/y"))
}

func TestTimeSamples_Literals(t *testing.T) {
	d := openShot(t)
	attr := sdf.Path("/a.userData")

	require.NoError(t, d.CreateSpec(attr, sdf.SpecTypeAttribute))
	require.NoError(t, d.SetTimeSample(attr, 12, 3.5))
	require.NoError(t, d.SetTimeSample(attr, 6, 1.5))
	assert.Equal(t, []float64{6, 12}, d.ListTimeSamplesForPath(attr))

	v, ok := d.QueryTimeSample(attr, 12)
	require.True(t, ok)
	assert.Equal(t, 3.5, v)

	require.NoError(t, d.SetTimeSample(attr, 6, nil))
	assert.Equal(t, []float64{12}, d.ListTimeSamplesForPath(attr))
	d.EraseTimeSample(attr, 12)
	_, ok = d.Has(attr, sdf.FieldTimeSamples)
	assert.False(t, ok, "erasing the last sample drops the field")

	assert.ErrorIs(t, d.SetTimeSample("/nope.x", 1, 1.0), sdf.ErrSpecNotFound)

	// The cache wins over literals on properties it knows.
	xform := sdf.Path("/a.xformOp:transform")
	require.NoError(t, d.SetTimeSample(xform, 24, "stale"))
	v, ok = d.QueryTimeSample(xform, 24)
	require.True(t, ok)
	assert.Equal(t, sdf.Matrix4d(scene.Translate(0, 0, 0)), v)
}

func TestVisitSpecs(t *testing.T) {
	d := openShot(t)
	var visited []sdf.Path
	d.VisitSpecs(func(p sdf.Path) bool {
		visited = append(visited, p)
		return len(visited) < 3
	})
	require.Len(t, visited, 3)
	assert.Equal(t, sdf.AbsoluteRootPath, visited[0])
	assert.True(t, visited[1] < visited[2])
}

func TestOpen_Errors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.scc"), testOptions(scenecache.NewRegistry()))
	assert.Error(t, err)
}

func TestClose_ReleasesRegistry(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "shot.scc")
	writeShot(t, fileName)
	reg := scenecache.NewRegistry()

	first, err := Open(fileName, testOptions(reg))
	require.NoError(t, err)
	second, err := Open(fileName, testOptions(reg))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.NotEqual(t, first.ID(), second.ID())

	require.NoError(t, first.Close())
	assert.False(t, first.HasSpec(sdf.AbsoluteRootPath))
	assert.Equal(t, 1, reg.Len())

	v, ok := second.QueryTimeSample("/a.xformOp:transform", 48)
	require.True(t, ok)
	assert.Equal(t, sdf.Matrix4d(scene.Translate(5, 0, 0)), v)

	require.NoError(t, second.Close())
	require.NoError(t, second.Close())
	assert.Equal(t, 0, reg.Len())
}

func TestClose_AsyncDestroy(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "shot.scc")
	writeShot(t, fileName)

	opts := testOptions(scenecache.NewRegistry())
	opts.Flags = &config.BridgeConfig{AsyncDestroy: true}
	d, err := Open(fileName, opts)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	assert.False(t, d.HasSpec(sdf.AbsoluteRootPath))
	assert.Empty(t, d.ListAllTimeSamples())
}

func TestTimeCodeRange(t *testing.T) {
	d := &Data{tc: timecode.New(24)}

	start, end := d.timeCodeRange([][]float64{{0}, {1, 2}, {0.5}})
	assert.Equal(t, 12.0, start)
	assert.Equal(t, 48.0, end)

	start, end = d.timeCodeRange([][]float64{{0}})
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 0.0, end)

	start, end = d.timeCodeRange(nil)
	assert.Equal(t, 0.0, start)
	assert.Equal(t, 0.0, end)
}
