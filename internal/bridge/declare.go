package bridge

import (
	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// attribute describes one property declaration. Zero variability is varying.
type attribute struct {
	name          string
	typeName      sdf.ValueTypeName
	custom        bool
	variability   sdf.Variability
	def           any
	interpolation sdf.Token
	// objectSamples takes sample times from the object whatever the name.
	objectSamples bool
}

// addXformProperties declares the properties every prim carries.
func (d *Data) addXformProperties(loc scene.SampledReader, path sdf.Path, props []sdf.Token) []sdf.Token {
	for _, a := range []attribute{
		{name: sdf.PropVisibility, typeName: sdf.TypeNameToken},
		{name: sdf.PropExtent, typeName: sdf.TypeNameFloat3Array},
		{
			name:        sdf.PropXformOpOrder,
			typeName:    sdf.TypeNameTokenArray,
			variability: sdf.VariabilityUniform,
			def:         []sdf.Token{sdf.PropXformTransform},
		},
		{name: sdf.PropXformTransform, typeName: sdf.TypeNameMatrix4d},
	} {
		props = append(props, d.addProperty(loc, path, a))
	}
	return props
}

// addProperty records the attribute spec for a on the prim at path and
// returns its name. Varying attributes get one placeholder per source
// sample. loc is nil for prims with no cache location behind them.
func (d *Data) addProperty(loc scene.SampledReader, path sdf.Path, a attribute) sdf.Token {
	s := newSpec(sdf.SpecTypeAttribute)
	s.set(sdf.FieldVariability, a.variability)
	if a.def != nil {
		s.set(sdf.FieldDefault, a.def)
	}
	if a.interpolation != "" {
		s.set(sdf.FieldInterpolation, a.interpolation)
	}
	if a.variability == sdf.VariabilityVarying {
		source := classify(a.name).kind.samples()
		if a.objectSamples {
			source = samplesObject
		}
		s.set(sdf.FieldTimeSamples, sdf.NewTimeSampleMap(d.sampleFrames(loc, source)...))
	}
	s.set(sdf.FieldCustom, a.custom)
	s.set(sdf.FieldTypeName, a.typeName)

	d.specs[path.AppendProperty(a.name)] = s
	return sdf.Token(a.name)
}

// sampleFrames returns the frames a property sampled from source holds.
// Visibility and object data without samples are static and sit at frame 0.
func (d *Data) sampleFrames(loc scene.SampledReader, source sampleSource) []float64 {
	static := source == samplesVisibility || source == samplesObject
	if loc == nil {
		if static {
			return []float64{0}
		}
		return nil
	}

	var times []float64
	switch source {
	case samplesTransform:
		times = loc.TransformSampleTimes()
	case samplesBound:
		times = loc.BoundSampleTimes()
	case samplesVisibility:
		times = loc.AttributeSampleTimes(scene.VisibilityAttribute)
	case samplesObject:
		times = loc.ObjectSampleTimes()
	}
	if len(times) == 0 && static {
		return []float64{0}
	}
	frames := make([]float64, len(times))
	for i, t := range times {
		frames[i] = d.tc.TimeToFrame(t)
	}
	return frames
}

// addPrimvars declares the primitive variables of the object at loc.
// Variables whose interpolation or type cannot be mapped are skipped.
func (d *Data) addPrimvars(loc scene.SampledReader, path sdf.Path, primType sdf.Token, props []sdf.Token) []sdf.Token {
	for _, info := range loc.ObjectVariables() {
		if info.Name == sdf.PropOrientation {
			continue
		}
		plog := d.log.With().Str("primvar", info.Name).Str("location", path.String()).Logger()

		interp, ok := InterpolationToken(info.Interpolation)
		if !ok {
			plog.Warn().Msg("unable to find interpolation for primitive variable")
			continue
		}
		if info.DataType == "" {
			plog.Warn().Msg("unable to find data type for primitive variable")
			continue
		}

		a := attribute{interpolation: interp, objectSamples: true}
		indexed := info.HasIndices
		switch {
		case info.Name == varPoints:
			a.name, a.typeName = sdf.PropPoints, sdf.TypeNamePoint3fArray
		case info.Name == varNormals:
			a.name, a.typeName = sdf.PropNormals, sdf.TypeNameNormal3fArray
		case info.Name == varWidth:
			a.name, a.typeName = sdf.PropWidths, sdf.TypeNameFloatArray
			a.custom = primType == sdf.PrimTypeMesh
		case primType == sdf.PrimTypePoints && (info.Name == sdf.PropAccelerations || info.Name == sdf.PropVelocities):
			a.name, a.typeName = info.Name, sdf.TypeNameVector3fArray
		case info.Name == varUV:
			a.name, a.typeName = sdf.PropST, sdf.TypeNameTexCoord2fArray
		default:
			typeName, ok := ValueTypeName(info.DataType, info.Interpretation)
			if !ok {
				plog.Warn().Str("type", info.DataType).Msg("unable to find host data type for primitive variable")
				continue
			}
			a.name, a.typeName, a.custom = sdf.PrimvarPrefix+info.Name, typeName, true
			if classify(a.name).kind != KindCustomPrimvar {
				plog.Warn().Str("property", a.name).Msg("primitive variable name is reserved; skipping")
				continue
			}
			// Custom primvars always pair with indices; unindexed ones
			// resolve to the identity.
			indexed = true
		}
		props = append(props, d.addProperty(loc, path, a))

		if indexed {
			indices := a
			indices.name += sdf.IndicesSuffix
			indices.typeName = sdf.TypeNameIntArray
			props = append(props, d.addProperty(loc, path, indices))
		}
	}
	return props
}
