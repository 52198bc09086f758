package bridge

import (
	"path/filepath"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// clipTimes is the time remapping of a link: pairs of (frame, linked frame)
// and the frame the single clip becomes active.
type clipTimes struct {
	times   []sdf.Vec2d
	actives []sdf.Vec2d
}

// addReference turns the link at loc into references and returns the prim
// children it creates. A link onto the root of another file cannot be
// referenced directly, so each top-level child of that file becomes a
// transform prim under path with its own reference.
func (d *Data) addReference(loc scene.SampledReader, path sdf.Path, s *spec) []sdf.Token {
	llog := d.log.With().Str("location", loc.Path().String()).Logger()

	// Link file and root cannot be animated; read them once.
	fileData, err := loc.ReadAttribute(scene.LinkFileNameAttribute, 0)
	if err != nil {
		llog.Warn().Err(err).Msg("unable to read link file name")
		return nil
	}
	rootData, err := loc.ReadAttribute(scene.LinkRootAttribute, 0)
	if err != nil {
		llog.Warn().Err(err).Msg("unable to read link root")
		return nil
	}
	fileName, ok := fileData.(scene.StringData)
	if !ok {
		llog.Warn().Str("type", fileData.TypeName()).Msg("link file name is not a string")
		return nil
	}
	root, ok := rootData.(scene.InternedStringVectorData)
	if !ok {
		llog.Warn().Str("type", rootData.TypeName()).Msg("link root is not a name list")
		return nil
	}

	linkFile := d.linkFile(string(fileName))
	asset := d.assetPath(linkFile)
	clip := d.clipTimes(loc)
	rootPath := primPath(scene.Path(root))

	if !rootPath.IsAbsoluteRoot() {
		s.set(sdf.FieldReferences, sdf.PrependedListOp(sdf.Reference{AssetPath: asset, PrimPath: rootPath}))
		addValueClip(s, clip, asset, rootPath)
		return nil
	}

	linked, err := d.registry.Open(linkFile)
	if err != nil {
		llog.Warn().Err(err).Str("link", linkFile).Msg("unable to open linked scene")
		return nil
	}
	defer func() {
		if err := d.registry.Release(linkFile); err != nil {
			llog.Warn().Err(err).Str("link", linkFile).Msg("release linked scene")
		}
	}()
	names, err := linked.Root().ChildNames()
	if err != nil {
		llog.Warn().Err(err).Str("link", linkFile).Msg("unable to list linked scene children")
		return nil
	}

	children := make([]sdf.Token, 0, len(names))
	for _, name := range names {
		token := sdf.Token(sdf.EscapeName(name))
		children = append(children, token)

		childPath := path.AppendChild(string(token))
		target := sdf.AbsoluteRootPath.AppendChild(string(token))

		cs := newSpec(sdf.SpecTypePrim)
		cs.set(sdf.FieldSpecifier, sdf.SpecifierDef)
		cs.set(sdf.FieldTypeName, sdf.PrimTypeXform)
		cs.set(sdf.FieldPropertyChildren, d.addXformProperties(nil, childPath, nil))
		cs.set(sdf.FieldReferences, sdf.PrependedListOp(sdf.Reference{AssetPath: asset, PrimPath: target}))
		addValueClip(cs, clip, asset, target)
		d.specs[childPath] = cs
	}
	return children
}

// linkFile resolves a stored link against the directory of the linking file.
func (d *Data) linkFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(d.fileName), name)
}

// assetPath is the path written into references and clips.
func (d *Data) assetPath(linkFile string) string {
	if !d.flags.RelativeReferences {
		return linkFile
	}
	base, err := filepath.Abs(filepath.Dir(d.fileName))
	if err != nil {
		return linkFile
	}
	target, err := filepath.Abs(linkFile)
	if err != nil {
		return linkFile
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return linkFile
	}
	return rel
}

// clipTimes reads the link time samples of loc. Links without them are static.
func (d *Data) clipTimes(loc scene.SampledReader) clipTimes {
	var c clipTimes
	times := loc.AttributeSampleTimes(scene.LinkTimeAttribute)
	if len(times) == 0 {
		return c
	}
	c.actives = []sdf.Vec2d{{d.tc.TimeToFrame(times[0]), 0}}
	for _, t := range times {
		v, err := loc.ReadAttribute(scene.LinkTimeAttribute, t)
		if err != nil {
			d.log.Warn().Err(err).Str("location", loc.Path().String()).Float64("time", t).Msg("unable to read link time")
			continue
		}
		linked, ok := v.(scene.DoubleData)
		if !ok {
			d.log.Warn().Str("location", loc.Path().String()).Str("type", v.TypeName()).Msg("link time is not a double")
			continue
		}
		c.times = append(c.times, sdf.Vec2d{d.tc.TimeToFrame(t), d.tc.TimeToFrame(float64(linked))})
	}
	return c
}

// addValueClip records the clip set of one linked asset. Nothing is added
// without time remapping.
func addValueClip(s *spec, c clipTimes, asset string, target sdf.Path) {
	if len(c.times) == 0 {
		return
	}
	s.set(sdf.FieldClips, sdf.Dictionary{
		sdf.ClipSetDefault: sdf.Dictionary{
			sdf.ClipKeyPrimPath:   target.String(),
			sdf.ClipKeyAssetPaths: []sdf.AssetPath{sdf.AssetPath(asset)},
			sdf.ClipKeyTimes:      c.times,
			sdf.ClipKeyActive:     c.actives,
		},
	})
}
