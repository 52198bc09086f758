package bridge

import (
	"fmt"
	"math"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/sdf"
	"github.com/agentic-research/scenebridge/internal/timecode"
)

// primPath maps a cache location onto its prim path, escaping names that
// are not valid identifiers.
func primPath(p scene.Path) sdf.Path {
	names := make([]string, len(p))
	for i, name := range p {
		names[i] = sdf.EscapeName(name)
	}
	return sdf.PathFromElements(names)
}

// scenePath is the inverse of primPath. Property parts are dropped.
func scenePath(p sdf.Path) scene.Path {
	elems := p.Elements()
	out := make(scene.Path, len(elems))
	for i, name := range elems {
		out[i] = sdf.UnescapeName(name)
	}
	return out
}

func sampled(r scene.Reader) (scene.SampledReader, error) {
	s, ok := r.(scene.SampledReader)
	if !ok {
		return nil, fmt.Errorf("location %s does not expose sample times", r.Path())
	}
	return s, nil
}

func (d *Data) load() error {
	fps, ok := d.source.FrameRate()
	if !ok {
		fps = timecode.DefaultFPS
	}
	d.tc = timecode.New(fps)
	d.specs = make(map[sdf.Path]*spec)
	d.collections = newCollectionIndex()
	return d.walk(d.source.Root())
}

// walk records loc and everything below it. Children are recorded before
// their parent, so collections hold members in post-order.
func (d *Data) walk(loc scene.SampledReader) error {
	path := primPath(loc.Path())

	// Each top-level prim owns the collections of its subtree.
	if path.ElementCount() == 1 {
		d.collections.reset()
	}

	s := newSpec(sdf.SpecTypePrim)
	var children []sdf.Token

	if loc.HasAttribute(scene.LinkFileNameAttribute) {
		children = d.addReference(loc, path, s)
	} else {
		names, err := loc.ChildNames()
		if err != nil {
			return err
		}
		for _, name := range names {
			children = append(children, sdf.Token(sdf.EscapeName(name)))
			c, err := loc.Child(name)
			if err != nil {
				return err
			}
			child, err := sampled(c)
			if err != nil {
				return err
			}
			if err := d.walk(child); err != nil {
				return err
			}
		}
	}

	if loc.Path().IsRoot() {
		s.specType = sdf.SpecTypePseudoRoot
		d.addPseudoRootFields(s, children)
	} else {
		d.addPrimFields(loc, path, s)
	}
	s.set(sdf.FieldPrimChildren, children)
	d.specs[path] = s
	return nil
}

func (d *Data) addPseudoRootFields(s *spec, children []sdf.Token) {
	if len(children) > 0 {
		s.set(sdf.FieldDefaultPrim, children[0])
	}
	s.set(sdf.FieldTimeCodesPerSecond, d.tc.FPS())

	lists, err := d.source.SampleTimeLists()
	if err != nil {
		d.log.Warn().Err(err).Msg("unable to read sample times; time code range left at 0")
	}
	start, end := d.timeCodeRange(lists)
	s.set(sdf.FieldStartTimeCode, start)
	s.set(sdf.FieldEndTimeCode, end)
}

// timeCodeRange returns the first and last frame over every sample list.
// A list holding only time 0 is static data and does not count.
func (d *Data) timeCodeRange(lists [][]float64) (start, end float64) {
	lo, hi := math.Inf(1), 0.0
	valid := false
	for _, times := range lists {
		if len(times) == 1 && times[0] == 0 {
			continue
		}
		for _, t := range times {
			if t < lo {
				lo = t
				valid = true
			}
			if t > hi {
				hi = t
			}
		}
	}
	if !valid {
		return 0, 0
	}
	return math.Round(d.tc.TimeToFrame(lo)), math.Round(d.tc.TimeToFrame(hi))
}

func (d *Data) addPrimFields(loc scene.SampledReader, path sdf.Path, s *spec) {
	s.set(sdf.FieldSpecifier, sdf.SpecifierDef)
	props := d.addXformProperties(loc, path, nil)

	tags, err := loc.ReadTags()
	if err != nil {
		d.log.Warn().Err(err).Str("location", loc.Path().String()).Msg("unable to read tags")
	}
	for _, tag := range tags {
		d.collections.add(tag, path)
	}

	typeName := sdf.PrimTypeXform
	if loc.HasObject() {
		typeName, props = d.addObjectProperties(loc, path, props)
	}

	if path.ElementCount() == 1 {
		props = d.addCollections(s, path, props)
	}
	s.set(sdf.FieldPropertyChildren, props)
	s.set(sdf.FieldTypeName, typeName)
}

// objectKind reads the object type from the tags a writer adds per object.
func objectKind(loc scene.Reader) (string, bool) {
	for _, t := range []string{scene.TypeCamera, scene.TypeMesh, scene.TypePoints, scene.TypeCurves} {
		if loc.HasTag(scene.ObjectTypeTag(t)) {
			return t, true
		}
	}
	return "", false
}

func (d *Data) addObjectProperties(loc scene.SampledReader, path sdf.Path, props []sdf.Token) (sdf.Token, []sdf.Token) {
	kind, ok := objectKind(loc)
	if !ok {
		d.log.Warn().Str("location", loc.Path().String()).Msg("unsupported object type; exposing location as a transform")
		return sdf.PrimTypeXform, props
	}

	var typeName sdf.Token
	switch kind {
	case scene.TypeCamera:
		for _, name := range []string{
			sdf.PropFocalLength,
			sdf.PropHorizontalAperture,
			sdf.PropVerticalAperture,
			sdf.PropHorizontalApertureOffset,
			sdf.PropVerticalApertureOffset,
		} {
			props = append(props, d.addProperty(loc, path, attribute{name: name, typeName: sdf.TypeNameFloat}))
		}
		return sdf.PrimTypeCamera, props

	case scene.TypeMesh:
		typeName = sdf.PrimTypeMesh
		for _, a := range []attribute{
			{name: sdf.PropFaceVertexCounts, typeName: sdf.TypeNameIntArray},
			{name: sdf.PropFaceVertexIndices, typeName: sdf.TypeNameIntArray},
			{name: sdf.PropCornerIndices, typeName: sdf.TypeNameIntArray},
			{name: sdf.PropCornerSharpnesses, typeName: sdf.TypeNameFloatArray},
			{name: sdf.PropCreaseIndices, typeName: sdf.TypeNameIntArray},
			{name: sdf.PropCreaseLengths, typeName: sdf.TypeNameIntArray},
			{name: sdf.PropCreaseSharpnesses, typeName: sdf.TypeNameFloatArray},
		} {
			props = append(props, d.addProperty(loc, path, a))
		}

	case scene.TypePoints:
		typeName = sdf.PrimTypePoints

	case scene.TypeCurves:
		typeName = sdf.PrimTypeBasisCurves
		for _, a := range []attribute{
			{name: sdf.PropCurveType, typeName: sdf.TypeNameToken},
			{name: sdf.PropBasis, typeName: sdf.TypeNameToken},
			{
				name:        sdf.PropWrap,
				typeName:    sdf.TypeNameToken,
				variability: sdf.VariabilityUniform,
				def:         sdf.TokenNonperiodic,
			},
			{name: sdf.PropCurveVertexCounts, typeName: sdf.TypeNameIntArray},
		} {
			props = append(props, d.addProperty(loc, path, a))
		}
	}

	props = d.addPrimvars(loc, path, typeName, props)
	props = append(props, d.addProperty(loc, path, attribute{
		name:          sdf.PropOrientation,
		typeName:      sdf.TypeNameToken,
		variability:   sdf.VariabilityUniform,
		def:           sdf.TokenRightHanded,
		interpolation: sdf.TokenVertex,
	}))
	return typeName, props
}

// addCollections turns the tags gathered under a top-level prim into
// collections on it: one expansion rule attribute and one includes
// relationship per tag, plus the matching API schemas.
func (d *Data) addCollections(s *spec, path sdf.Path, props []sdf.Token) []sdf.Token {
	var schemas []sdf.Token
	for _, tag := range d.collections.names() {
		name := sdf.EscapeName(tag)
		schemas = append(schemas, sdf.TokenCollectionAPI+":"+sdf.Token(name))

		props = append(props, d.addProperty(nil, path, attribute{
			name:        collectionProperty(name, sdf.CollectionExpansionRule),
			typeName:    sdf.TypeNameToken,
			variability: sdf.VariabilityUniform,
			def:         sdf.TokenExplicitOnly,
		}))

		rel := collectionProperty(name, sdf.CollectionIncludes)
		members := d.collections.members(tag)
		r := newSpec(sdf.SpecTypeRelationship)
		r.set(sdf.FieldVariability, sdf.VariabilityUniform)
		r.set(sdf.FieldTargetPaths, sdf.ExplicitListOp(members...))
		r.set(sdf.FieldTargetChildren, append([]sdf.Path(nil), members...))
		d.specs[path.AppendProperty(rel)] = r
		props = append(props, sdf.Token(rel))
	}
	s.set(sdf.FieldAPISchemas, sdf.PrependedListOp(schemas...))
	return props
}

func collectionProperty(name, suffix string) string {
	return sdf.CollectionPrefix + name + ":" + suffix
}
