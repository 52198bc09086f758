package format

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentic-research/scenebridge/internal/bridge"
	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// locationProperties are declared on every prim and never belong to the object.
var locationProperties = map[string]bool{
	sdf.PropVisibility:     true,
	sdf.PropExtent:         true,
	sdf.PropXformOpOrder:   true,
	sdf.PropXformTransform: true,
}

func isObjectProperty(name string) bool {
	return !locationProperties[name] && !strings.HasPrefix(name, sdf.CollectionPrefix)
}

// writeObject rebuilds the object of a typed prim from its properties at
// each exported frame where any of them is sampled.
func (e *exporter) writeObject(path sdf.Path, out scene.Writer, llog zerolog.Logger) error {
	typeName, _ := e.data.Get(path, sdf.FieldTypeName).(sdf.Token)
	switch typeName {
	case sdf.PrimTypeMesh, sdf.PrimTypePoints, sdf.PrimTypeBasisCurves, sdf.PrimTypeCamera:
	default:
		return nil
	}

	props := e.tokens(path, sdf.FieldPropertyChildren)
	seen := map[float64]struct{}{}
	var times []float64
	for _, name := range props {
		if !isObjectProperty(string(name)) {
			continue
		}
		for _, t := range e.data.ListTimeSamplesForPath(path.AppendProperty(string(name))) {
			if _, dup := seen[t]; !dup {
				seen[t] = struct{}{}
				times = append(times, t)
			}
		}
	}
	sort.Float64s(times)

	for _, p := range e.pairs(path, times) {
		o := e.buildObject(path, typeName, props, p.source, llog)
		if o == nil {
			continue
		}
		if err := out.WriteObject(o, e.time(p.frame)); err != nil {
			return err
		}
	}
	return nil
}

func (e *exporter) buildObject(path sdf.Path, typeName sdf.Token, props []sdf.Token, t float64, llog zerolog.Logger) scene.Object {
	switch typeName {
	case sdf.PrimTypeCamera:
		return e.buildCamera(path, t)

	case sdf.PrimTypeMesh:
		m := &scene.MeshPrimitive{
			VerticesPerFace:   e.ints(path, sdf.PropFaceVertexCounts, t),
			VertexIDs:         e.ints(path, sdf.PropFaceVertexIndices, t),
			CornerIDs:         e.ints(path, sdf.PropCornerIndices, t),
			CornerSharpnesses: e.floats(path, sdf.PropCornerSharpnesses, t),
			CreaseLengths:     e.ints(path, sdf.PropCreaseLengths, t),
			CreaseIDs:         e.ints(path, sdf.PropCreaseIndices, t),
			CreaseSharpnesses: e.floats(path, sdf.PropCreaseSharpnesses, t),
			Interpolation:     "linear",
		}
		e.addVariables(path, typeName, props, m.Variables(), t, llog)
		return m

	case sdf.PrimTypePoints:
		p := &scene.PointsPrimitive{}
		e.addVariables(path, typeName, props, p.Variables(), t, llog)
		if pv, ok := p.Vars["P"]; ok {
			if vec, ok := pv.Data.(scene.VectorData); ok {
				p.NumPoints = vec.Len()
			}
		}
		return p

	case sdf.PrimTypeBasisCurves:
		c := &scene.CurvesPrimitive{
			VerticesPerCurve: e.ints(path, sdf.PropCurveVertexCounts, t),
			Basis:            e.basis(path, t),
		}
		if wrap, ok := e.value(path.AppendProperty(sdf.PropWrap), t); ok {
			c.Periodic = wrap == sdf.TokenPeriodic
		}
		e.addVariables(path, typeName, props, c.Variables(), t, llog)
		return c
	}
	return nil
}

func (e *exporter) ints(path sdf.Path, name string, t float64) scene.IntVectorData {
	v, _ := e.value(path.AppendProperty(name), t)
	x, _ := v.([]int32)
	return scene.IntVectorData(x)
}

func (e *exporter) floats(path sdf.Path, name string, t float64) scene.FloatVectorData {
	v, _ := e.value(path.AppendProperty(name), t)
	x, _ := v.([]float32)
	return scene.FloatVectorData(x)
}

func (e *exporter) float(path sdf.Path, name string, t float64) (float32, bool) {
	v, ok := e.value(path.AppendProperty(name), t)
	if !ok {
		return 0, false
	}
	x, ok := v.(float32)
	return x, ok
}

// buildCamera undoes the tenths-of-a-world-unit scaling applied on read.
func (e *exporter) buildCamera(path sdf.Path, t float64) *scene.Camera {
	c := scene.NewCamera()
	scale := 10 * c.FocalLengthWorldScale
	for name, dst := range map[string]*float32{
		sdf.PropFocalLength:              &c.FocalLength,
		sdf.PropHorizontalAperture:       &c.Aperture[0],
		sdf.PropVerticalAperture:         &c.Aperture[1],
		sdf.PropHorizontalApertureOffset: &c.ApertureOffset[0],
		sdf.PropVerticalApertureOffset:   &c.ApertureOffset[1],
	} {
		if v, ok := e.float(path, name, t); ok {
			*dst = v / scale
		}
	}
	return c
}

func (e *exporter) basis(path sdf.Path, t float64) scene.CubicBasis {
	if v, _ := e.value(path.AppendProperty(sdf.PropCurveType), t); v == sdf.TokenLinear {
		return scene.BasisLinear
	}
	v, _ := e.value(path.AppendProperty(sdf.PropBasis), t)
	switch v {
	case sdf.TokenBezier:
		return scene.BasisBezier
	case sdf.TokenBspline:
		return scene.BasisBSpline
	case sdf.TokenCatmullRom:
		return scene.BasisCatmullRom
	}
	return scene.BasisLinear
}

// variableName maps a primvar property back onto its source variable name.
func variableName(prop string, primType sdf.Token) (string, bool) {
	switch prop {
	case sdf.PropPoints:
		return "P", true
	case sdf.PropNormals:
		return "N", true
	case sdf.PropWidths:
		return "width", true
	case sdf.PropST:
		return "uv", true
	case sdf.PropAccelerations, sdf.PropVelocities:
		return prop, primType == sdf.PrimTypePoints
	}
	if strings.HasSuffix(prop, sdf.IndicesSuffix) {
		return "", false
	}
	name, ok := strings.CutPrefix(prop, sdf.PrimvarPrefix)
	return name, ok && name != ""
}

func (e *exporter) addVariables(path sdf.Path, primType sdf.Token, props []sdf.Token, vars map[string]scene.PrimitiveVariable, t float64, llog zerolog.Logger) {
	for _, prop := range props {
		name, ok := variableName(string(prop), primType)
		if !ok {
			continue
		}
		propPath := path.AppendProperty(string(prop))
		token, _ := e.data.Get(propPath, sdf.FieldInterpolation).(sdf.Token)
		interp, ok := bridge.InterpolationFromToken(token)
		if !ok {
			continue
		}
		typeName, _ := e.data.Get(propPath, sdf.FieldTypeName).(sdf.ValueTypeName)
		v, ok := e.value(propPath, t)
		if !ok {
			continue
		}
		data, ok := bridge.FromValue(v, typeName)
		if !ok {
			llog.Warn().Str("primvar", string(prop)).Str("type", string(typeName)).Msg("unable to convert primitive variable")
			continue
		}

		pv := scene.PrimitiveVariable{Interpolation: interp, Data: data}
		if iv, ok := e.value(path.AppendProperty(string(prop)+sdf.IndicesSuffix), t); ok {
			if indices, ok := iv.([]int32); ok && !isIdentity(indices, data) {
				pv.Indices = scene.IntVectorData(indices)
			}
		}
		vars[name] = pv
	}
}

// isIdentity reports whether indices select every element of data in order.
func isIdentity(indices []int32, data scene.Data) bool {
	vec, ok := data.(scene.VectorData)
	if !ok || vec.Len() != len(indices) {
		return false
	}
	for i, idx := range indices {
		if int(idx) != i {
			return false
		}
	}
	return true
}
