package bridge

import (
	"github.com/rs/zerolog"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// resolve reads the value of the property at path for frame from the cache.
// The owning location is looked up again on every call; no value is kept.
// It reports false for properties it does not know and for missing data.
func (d *Data) resolve(path sdf.Path, frame float64) (any, bool) {
	if !path.IsPropertyPath() {
		return nil, false
	}
	ref := classify(path.Name())
	if ref.kind == KindUnknown {
		return nil, false
	}
	// Synthetic prims and collection paths have no location.
	loc, ok := d.source.Root().Scene(scenePath(path))
	if !ok {
		return nil, false
	}
	t := d.tc.FrameToTime(frame)
	plog := d.log.With().Str("property", path.String()).Logger()

	switch ref.kind {
	case KindTransform:
		m, err := loc.ReadTransformAsMatrix(t)
		if err != nil {
			plog.Warn().Err(err).Msg("unable to read transform")
			return nil, false
		}
		return sdf.Matrix4d(m), true

	case KindExtent:
		b, err := loc.ReadBound(t)
		if err != nil {
			return nil, false
		}
		return extentValue(b), true

	case KindVisibility:
		return resolveVisibility(loc, t, plog)
	}

	obj, err := loc.ReadObject(t)
	if err != nil {
		return nil, false
	}
	switch o := obj.(type) {
	case *scene.Camera:
		return resolveCamera(o, ref.kind)
	case scene.Primitive:
		return resolvePrimitive(o, ref, plog)
	}
	return nil, false
}

func resolveVisibility(loc scene.Reader, t float64, plog zerolog.Logger) (any, bool) {
	if !loc.HasAttribute(scene.VisibilityAttribute) {
		return sdf.TokenInherited, true
	}
	v, err := loc.ReadAttribute(scene.VisibilityAttribute, t)
	if err != nil {
		plog.Warn().Err(err).Msg("unable to read visibility")
		return nil, false
	}
	visible, ok := v.(scene.BoolData)
	if !ok {
		plog.Warn().Str("type", v.TypeName()).Msg("visibility is not a bool")
		return nil, false
	}
	if visible {
		return sdf.TokenInherited, true
	}
	return sdf.TokenInvisible, true
}

// resolveCamera converts camera lengths to tenths of a world unit.
func resolveCamera(c *scene.Camera, kind PropertyKind) (any, bool) {
	scale := 10 * c.FocalLengthWorldScale
	switch kind {
	case KindFocalLength:
		return c.FocalLength * scale, true
	case KindHorizontalAperture:
		return c.Aperture[0] * scale, true
	case KindVerticalAperture:
		return c.Aperture[1] * scale, true
	case KindHorizontalApertureOffset:
		return c.ApertureOffset[0] * scale, true
	case KindVerticalApertureOffset:
		return c.ApertureOffset[1] * scale, true
	}
	return nil, false
}

func resolvePrimitive(p scene.Primitive, ref propertyRef, plog zerolog.Logger) (any, bool) {
	switch o := p.(type) {
	case *scene.MeshPrimitive:
		if v, ok := resolveMesh(o, ref.kind, plog); ok {
			return v, true
		}
	case *scene.CurvesPrimitive:
		if v, ok := resolveCurves(o, ref.kind, plog); ok {
			return v, true
		}
	}
	if ref.variable == "" {
		return nil, false
	}

	pv, ok := p.Variables()[ref.variable]
	if !ok {
		return nil, false
	}
	if ref.indices {
		if pv.IsIndexed() {
			return toValue(pv.Indices)
		}
		return toValue(scene.IdentityIndices(p.VariableSize(pv.Interpolation)))
	}

	data := pv.Data
	if !hasIndexProperty(ref.kind) {
		expanded, err := pv.Expanded()
		if err != nil {
			plog.Warn().Err(err).Msg("unable to expand primitive variable")
			return nil, false
		}
		data = expanded
	}
	v, ok := toValue(data)
	if !ok {
		plog.Warn().Str("type", data.TypeName()).Msg("unsupported primitive variable type")
	}
	return v, ok
}

// hasIndexProperty reports whether kind is paired with an ":indices"
// property. Such variables are served unexpanded so the pair stays
// consistent; the rest are expanded.
func hasIndexProperty(kind PropertyKind) bool {
	switch kind {
	case KindNormals, KindST, KindCustomPrimvar:
		return true
	}
	return false
}

func resolveMesh(m *scene.MeshPrimitive, kind PropertyKind, plog zerolog.Logger) (any, bool) {
	switch kind {
	case KindFaceVertexCounts:
		return toValue(m.VerticesPerFace)
	case KindFaceVertexIndices:
		return toValue(m.VertexIDs)
	case KindCornerIndices:
		return toValue(m.CornerIDs)
	case KindCornerSharpnesses:
		if len(m.CornerSharpnesses) != len(m.CornerIDs) {
			plog.Warn().
				Int("corners", len(m.CornerIDs)).
				Int("sharpnesses", len(m.CornerSharpnesses)).
				Msg("corner sharpness count does not match corner count")
			return nil, false
		}
		return toValue(m.CornerSharpnesses)
	case KindCreaseIndices:
		return toValue(m.CreaseIDs)
	case KindCreaseLengths:
		return toValue(m.CreaseLengths)
	case KindCreaseSharpnesses:
		if len(m.CreaseSharpnesses) != len(m.CreaseLengths) {
			plog.Warn().
				Int("creases", len(m.CreaseLengths)).
				Int("sharpnesses", len(m.CreaseSharpnesses)).
				Msg("crease sharpness count does not match crease count")
			return nil, false
		}
		return toValue(m.CreaseSharpnesses)
	}
	return nil, false
}

func resolveCurves(c *scene.CurvesPrimitive, kind PropertyKind, plog zerolog.Logger) (any, bool) {
	switch kind {
	case KindCurveVertexCounts:
		return toValue(c.VerticesPerCurve)
	case KindCurveType:
		if c.Basis == scene.BasisLinear {
			return sdf.TokenLinear, true
		}
		return sdf.TokenCubic, true
	case KindCurveBasis:
		switch c.Basis {
		case scene.BasisBezier:
			return sdf.TokenBezier, true
		case scene.BasisBSpline:
			return sdf.TokenBspline, true
		case scene.BasisCatmullRom:
			return sdf.TokenCatmullRom, true
		case scene.BasisLinear:
			// Linear curves have no basis.
		default:
			plog.Warn().Str("basis", c.Basis.String()).Msg("unsupported basis")
		}
	}
	return nil, false
}
