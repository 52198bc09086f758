package cmd

import (
	"fmt"

	"github.com/ohler55/ojg/oj"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/scenecache"
)

// A scene description is a JSON document:
//
//	{"frameRate": 24, "locations": [location...]}
//
// Each location holds a name and optional tags, transform, bound, visible,
// attributes, object, link and children. Sampled entries are lists of
// objects carrying a "time" in seconds.

type object = map[string]any

// buildScene writes the scene described by raw to fileName.
func buildScene(raw []byte, fileName string) (locations int, err error) {
	doc, err := oj.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("parse scene description: %w", err)
	}
	root, ok := doc.(object)
	if !ok {
		return 0, fmt.Errorf("scene description must be an object")
	}

	var opts []scenecache.WriterOption
	if v, ok := root["frameRate"]; ok {
		fps, err := number(v)
		if err != nil {
			return 0, fmt.Errorf("frameRate: %w", err)
		}
		opts = append(opts, scenecache.WithFrameRate("maya", fps))
	}
	w, err := scenecache.Create(fileName, opts...)
	if err != nil {
		return 0, err
	}
	// A failed build leaves no partial cache behind.
	defer func() {
		if err != nil {
			_ = w.Discard()
			return
		}
		err = w.Close()
	}()

	b := &sceneBuilder{}
	for _, loc := range list(root["locations"]) {
		if err := b.location(w.Root(), loc); err != nil {
			return b.count, err
		}
	}
	return b.count, nil
}

type sceneBuilder struct {
	count int
}

func (b *sceneBuilder) location(parent scene.Writer, v any) error {
	loc, ok := v.(object)
	if !ok {
		return fmt.Errorf("location under %s must be an object", parent.Path())
	}
	name, _ := loc["name"].(string)
	if name == "" {
		return fmt.Errorf("location under %s has no name", parent.Path())
	}
	w, err := parent.Child(name)
	if err != nil {
		return err
	}
	b.count++
	if err := writeLocationData(w, loc); err != nil {
		return fmt.Errorf("%s: %w", w.Path(), err)
	}
	for _, child := range list(loc["children"]) {
		if err := b.location(w, child); err != nil {
			return err
		}
	}
	return nil
}

func writeLocationData(w scene.Writer, loc object) error {
	if tags := list(loc["tags"]); len(tags) > 0 {
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			s, ok := t.(string)
			if !ok {
				return fmt.Errorf("tags must be strings")
			}
			out = append(out, s)
		}
		if err := w.WriteTags(out); err != nil {
			return err
		}
	}

	for _, s := range list(loc["transform"]) {
		t, sample, err := timed(s)
		if err != nil {
			return fmt.Errorf("transform: %w", err)
		}
		m, err := matrix(sample)
		if err != nil {
			return fmt.Errorf("transform: %w", err)
		}
		if err := w.WriteTransform(m, t); err != nil {
			return err
		}
	}

	for _, s := range list(loc["bound"]) {
		t, sample, err := timed(s)
		if err != nil {
			return fmt.Errorf("bound: %w", err)
		}
		lo, err := vec3d(sample["min"])
		if err != nil {
			return fmt.Errorf("bound min: %w", err)
		}
		hi, err := vec3d(sample["max"])
		if err != nil {
			return fmt.Errorf("bound max: %w", err)
		}
		if err := w.WriteBound(scene.Box3d{Min: lo, Max: hi}, t); err != nil {
			return err
		}
	}

	for _, s := range list(loc["visible"]) {
		t, sample, err := timed(s)
		if err != nil {
			return fmt.Errorf("visible: %w", err)
		}
		visible, ok := sample["value"].(bool)
		if !ok {
			return fmt.Errorf("visible value must be a bool")
		}
		if err := w.WriteAttribute(scene.VisibilityAttribute, scene.BoolData(visible), t); err != nil {
			return err
		}
	}

	for _, s := range list(loc["attributes"]) {
		t, sample, err := timed(s)
		if err != nil {
			return fmt.Errorf("attribute: %w", err)
		}
		name, _ := sample["name"].(string)
		if name == "" {
			return fmt.Errorf("attribute has no name")
		}
		d, err := attributeData(sample["value"])
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		if err := w.WriteAttribute(name, d, t); err != nil {
			return err
		}
	}

	if o, ok := loc["object"].(object); ok {
		if err := writeObjectSamples(w, o); err != nil {
			return err
		}
	}
	if l, ok := loc["link"].(object); ok {
		return writeLinkData(w, l)
	}
	return nil
}

func writeLinkData(w scene.Writer, l object) error {
	file, _ := l["file"].(string)
	if file == "" {
		return fmt.Errorf("link has no file")
	}
	rootPath, _ := l["root"].(string)
	root := scene.ParsePath(rootPath)
	samples := list(l["samples"])
	if len(samples) == 0 {
		return w.WriteLink(file, root)
	}
	for _, s := range samples {
		t, sample, err := timed(s)
		if err != nil {
			return fmt.Errorf("link: %w", err)
		}
		linkTime, err := number(sample["linkTime"])
		if err != nil {
			return fmt.Errorf("link linkTime: %w", err)
		}
		if err := w.WriteLinkAt(file, root, linkTime, t); err != nil {
			return err
		}
	}
	return nil
}

func writeObjectSamples(w scene.Writer, o object) error {
	kind, _ := o["type"].(string)
	for _, s := range list(o["samples"]) {
		t, sample, err := timed(s)
		if err != nil {
			return fmt.Errorf("object: %w", err)
		}
		obj, err := buildObject(kind, sample)
		if err != nil {
			return fmt.Errorf("%s object: %w", kind, err)
		}
		if err := w.WriteObject(obj, t); err != nil {
			return err
		}
	}
	return nil
}

func buildObject(kind string, sample object) (scene.Object, error) {
	switch kind {
	case "camera":
		c := scene.NewCamera()
		if v, ok := sample["focalLength"]; ok {
			f, err := number(v)
			if err != nil {
				return nil, fmt.Errorf("focalLength: %w", err)
			}
			c.FocalLength = float32(f)
		}
		if v, ok := sample["aperture"]; ok {
			a, err := vec2f(v)
			if err != nil {
				return nil, fmt.Errorf("aperture: %w", err)
			}
			c.Aperture = a
		}
		if v, ok := sample["apertureOffset"]; ok {
			a, err := vec2f(v)
			if err != nil {
				return nil, fmt.Errorf("apertureOffset: %w", err)
			}
			c.ApertureOffset = a
		}
		return c, nil

	case "mesh":
		counts, err := ints(sample["faceVertexCounts"])
		if err != nil {
			return nil, fmt.Errorf("faceVertexCounts: %w", err)
		}
		ids, err := ints(sample["faceVertexIndices"])
		if err != nil {
			return nil, fmt.Errorf("faceVertexIndices: %w", err)
		}
		m := &scene.MeshPrimitive{VerticesPerFace: counts, VertexIDs: ids, Interpolation: "linear"}
		if s, ok := sample["interpolation"].(string); ok {
			m.Interpolation = s
		}
		return m, variables(m, sample)

	case "points":
		p := &scene.PointsPrimitive{}
		if err := variables(p, sample); err != nil {
			return nil, err
		}
		if pv, ok := p.Variables()["P"]; ok {
			if vec, ok := pv.Data.(scene.VectorData); ok {
				p.NumPoints = vec.Len()
			}
		}
		return p, nil

	case "curves":
		counts, err := ints(sample["curveVertexCounts"])
		if err != nil {
			return nil, fmt.Errorf("curveVertexCounts: %w", err)
		}
		c := &scene.CurvesPrimitive{VerticesPerCurve: counts}
		c.Periodic, _ = sample["periodic"].(bool)
		switch basis, _ := sample["basis"].(string); basis {
		case "", "linear":
			c.Basis = scene.BasisLinear
		case "bezier":
			c.Basis = scene.BasisBezier
		case "bSpline":
			c.Basis = scene.BasisBSpline
		case "catmullRom":
			c.Basis = scene.BasisCatmullRom
		default:
			return nil, fmt.Errorf("unknown basis %q", basis)
		}
		return c, variables(c, sample)
	}
	return nil, fmt.Errorf("unknown object type %q", kind)
}

var interpolations = map[string]scene.Interpolation{
	"constant":    scene.InterpolationConstant,
	"uniform":     scene.InterpolationUniform,
	"vertex":      scene.InterpolationVertex,
	"varying":     scene.InterpolationVarying,
	"faceVarying": scene.InterpolationFaceVarying,
}

var interpretations = map[string]scene.Interpretation{
	"point":  scene.InterpretationPoint,
	"normal": scene.InterpretationNormal,
	"vector": scene.InterpretationVector,
}

// variables reads the "vars" list of a primitive sample.
func variables(p scene.Primitive, sample object) error {
	vars := p.Variables()
	for _, v := range list(sample["vars"]) {
		pv, ok := v.(object)
		if !ok {
			return fmt.Errorf("vars entries must be objects")
		}
		name, _ := pv["name"].(string)
		if name == "" {
			return fmt.Errorf("primitive variable has no name")
		}
		interp, _ := pv["interpolation"].(string)
		i, ok := interpolations[interp]
		if !ok {
			return fmt.Errorf("%s: unknown interpolation %q", name, interp)
		}
		typ, _ := pv["type"].(string)
		d, err := vectorData(typ, pv["values"])
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out := scene.PrimitiveVariable{Interpolation: i, Data: d}
		if raw, ok := pv["indices"]; ok {
			if out.Indices, err = ints(raw); err != nil {
				return fmt.Errorf("%s indices: %w", name, err)
			}
		}
		vars[name] = out
	}
	return nil
}

func vectorData(typ string, raw any) (scene.Data, error) {
	values := list(raw)
	switch typ {
	case "point", "normal", "vector":
		out := scene.V3fVectorData{Values: make([]scene.V3f, len(values)), Interpretation: interpretations[typ]}
		for i, v := range values {
			x, err := floats(v, 3)
			if err != nil {
				return nil, err
			}
			out.Values[i] = scene.V3f{x[0], x[1], x[2]}
		}
		return out, nil
	case "color":
		out := make(scene.Color3fVectorData, len(values))
		for i, v := range values {
			x, err := floats(v, 3)
			if err != nil {
				return nil, err
			}
			out[i] = scene.Color3f{x[0], x[1], x[2]}
		}
		return out, nil
	case "uv":
		out := scene.V2fVectorData{Values: make([]scene.V2f, len(values)), Interpretation: scene.InterpretationUV}
		for i, v := range values {
			x, err := floats(v, 2)
			if err != nil {
				return nil, err
			}
			out.Values[i] = scene.V2f{x[0], x[1]}
		}
		return out, nil
	case "float":
		return floats(raw, -1)
	case "int":
		return ints(raw)
	case "string":
		out := make(scene.StringVectorData, len(values))
		for i, v := range values {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("string values expected")
			}
			out[i] = s
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown variable type %q", typ)
}

func attributeData(v any) (scene.Data, error) {
	switch x := v.(type) {
	case bool:
		return scene.BoolData(x), nil
	case string:
		return scene.StringData(x), nil
	case int64:
		return scene.IntData(x), nil
	case float64:
		return scene.DoubleData(x), nil
	}
	return nil, fmt.Errorf("unsupported attribute value %T", v)
}

func list(v any) []any {
	l, _ := v.([]any)
	return l
}

// timed splits a sample object into its time and the object itself.
func timed(v any) (float64, object, error) {
	o, ok := v.(object)
	if !ok {
		return 0, nil, fmt.Errorf("sample must be an object")
	}
	t, err := number(o["time"])
	if err != nil {
		return 0, nil, fmt.Errorf("time: %w", err)
	}
	return t, o, nil
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case int64:
		return float64(x), nil
	case float64:
		return x, nil
	case nil:
		return 0, fmt.Errorf("missing number")
	}
	return 0, fmt.Errorf("%v is not a number", v)
}

// floats reads a numeric list of length n, or of any length when n < 0.
func floats(v any, n int) (scene.FloatVectorData, error) {
	l := list(v)
	if n >= 0 && len(l) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(l))
	}
	out := make(scene.FloatVectorData, len(l))
	for i, x := range l {
		f, err := number(x)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}

func ints(v any) (scene.IntVectorData, error) {
	l := list(v)
	out := make(scene.IntVectorData, len(l))
	for i, x := range l {
		n, ok := x.(int64)
		if !ok {
			return nil, fmt.Errorf("%v is not an integer", x)
		}
		out[i] = int32(n)
	}
	return out, nil
}

func vec2f(v any) (scene.V2f, error) {
	x, err := floats(v, 2)
	if err != nil {
		return scene.V2f{}, err
	}
	return scene.V2f{x[0], x[1]}, nil
}

func vec3d(v any) (scene.V3d, error) {
	l := list(v)
	if len(l) != 3 {
		return scene.V3d{}, fmt.Errorf("expected 3 numbers, got %d", len(l))
	}
	var out scene.V3d
	for i, x := range l {
		f, err := number(x)
		if err != nil {
			return out, err
		}
		out[i] = f
	}
	return out, nil
}

// matrix reads either "translate": [x, y, z] or a row-major "matrix" of 16
// numbers.
func matrix(sample object) (scene.M44d, error) {
	if t, ok := sample["translate"]; ok {
		v, err := vec3d(t)
		if err != nil {
			return scene.M44d{}, err
		}
		return scene.Translate(v[0], v[1], v[2]), nil
	}
	l := list(sample["matrix"])
	if len(l) != 16 {
		return scene.M44d{}, fmt.Errorf("matrix needs 16 numbers, got %d", len(l))
	}
	var m scene.M44d
	for i, x := range l {
		f, err := number(x)
		if err != nil {
			return m, err
		}
		m[i/4][i%4] = f
	}
	return m, nil
}
