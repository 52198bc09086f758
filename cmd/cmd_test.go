package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ohler55/ojg/oj"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/scenecache"
)

const testScene = `{
  "frameRate": 24,
  "locations": [
    {
      "name": "a",
      "tags": ["geo"],
      "transform": [
        {"time": 1, "translate": [1, 0, 0]},
        {"time": 2, "translate": [2, 0, 0]}
      ],
      "visible": [
        {"time": 1, "value": true},
        {"time": 2, "value": false}
      ],
      "children": [
        {
          "name": "mesh",
          "object": {"type": "mesh", "samples": [{
            "time": 1,
            "faceVertexCounts": [4],
            "faceVertexIndices": [0, 1, 2, 3],
            "vars": [
              {"name": "P", "interpolation": "vertex", "type": "point",
               "values": [[0, 0, 0], [1, 0, 0], [1, 1, 0], [0, 1, 0]]},
              {"name": "uv", "interpolation": "faceVarying", "type": "uv",
               "values": [[0, 0], [1, 0], [1, 1], [0, 1]], "indices": [0, 1, 2, 3]}
            ]
          }]}
        },
        {
          "name": "cam",
          "object": {"type": "camera", "samples": [{"time": 1, "focalLength": 50}]}
        }
      ]
    },
    {
      "name": "ref",
      "link": {"file": "other.scc", "root": "/x", "samples": [
        {"time": 1, "linkTime": 0.5}
      ]}
    }
  ]
}`

func writeScene(t *testing.T, dir, doc string) string {
	t.Helper()
	src := filepath.Join(dir, "scene.json")
	require.NoError(t, os.WriteFile(src, []byte(doc), 0o644))
	return src
}

func openCache(t *testing.T, file string) scene.SampledReader {
	t.Helper()
	r, err := scenecache.Open(file)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r.Root()
}

func TestBuildScene(t *testing.T) {
	out := filepath.Join(t.TempDir(), "shot.scc")
	n, err := buildScene([]byte(testScene), out)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	root := openCache(t, out)
	names, err := root.ChildNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ref"}, names)

	a, ok := root.Scene(scene.Path{"a"})
	require.True(t, ok)
	m, err := a.ReadTransformAsMatrix(2)
	require.NoError(t, err)
	assert.Equal(t, scene.Translate(2, 0, 0), m)
	vis, err := a.ReadAttribute(scene.VisibilityAttribute, 2)
	require.NoError(t, err)
	assert.Equal(t, scene.BoolData(false), vis)
	tags, err := a.ReadTags()
	require.NoError(t, err)
	assert.Equal(t, []string{"geo"}, tags)

	mesh, ok := root.Scene(scene.Path{"a", "mesh"})
	require.True(t, ok)
	obj, err := mesh.ReadObject(1)
	require.NoError(t, err)
	mp, ok := obj.(*scene.MeshPrimitive)
	require.True(t, ok)
	assert.Equal(t, scene.IntVectorData{4}, mp.VerticesPerFace)
	uv := mp.Variables()["uv"]
	assert.Equal(t, scene.InterpolationFaceVarying, uv.Interpolation)
	assert.Equal(t, scene.IntVectorData{0, 1, 2, 3}, uv.Indices)

	cam, ok := root.Scene(scene.Path{"a", "cam"})
	require.True(t, ok)
	obj, err = cam.ReadObject(1)
	require.NoError(t, err)
	assert.Equal(t, float32(50), obj.(*scene.Camera).FocalLength)

	ref, ok := root.Scene(scene.Path{"ref"})
	require.True(t, ok)
	file, err := ref.ReadAttribute(scene.LinkFileNameAttribute, 1)
	require.NoError(t, err)
	assert.Equal(t, scene.StringData("other.scc"), file)
	linkTime, err := ref.ReadAttribute(scene.LinkTimeAttribute, 1)
	require.NoError(t, err)
	assert.Equal(t, scene.DoubleData(0.5), linkTime)
}

func TestBuildScene_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"invalid json", `{"locations": [`},
		{"not an object", `[]`},
		{"unnamed location", `{"locations": [{}]}`},
		{"bad transform", `{"locations": [{"name": "a", "transform": [{"time": 1, "matrix": [1, 2]}]}]}`},
		{"unknown object", `{"locations": [{"name": "a", "object": {"type": "volume", "samples": [{"time": 1}]}}]}`},
		{"bad interpolation", `{"locations": [{"name": "a", "object": {"type": "points", "samples": [
			{"time": 1, "vars": [{"name": "P", "interpolation": "sideways", "type": "point", "values": []}]}
		]}}]}`},
		{"missing time", `{"locations": [{"name": "a", "visible": [{"value": true}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "bad.scc")
			_, err := buildScene([]byte(tt.doc), out)
			assert.Error(t, err)
			_, statErr := os.Stat(out)
			assert.True(t, os.IsNotExist(statErr), "no partial cache is left behind")
		})
	}
}

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.toml")))
	require.NoError(t, rootCmd.Execute(), out.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "shot.scc")
	doc := `{"frameRate": 24, "locations": [{"name": "a",
		"transform": [{"time": 1, "translate": [1, 0, 0]}, {"time": 2, "translate": [2, 0, 0]}]}]}`
	run(t, "build", writeScene(t, dir, doc), shot)

	t.Run("inspect", func(t *testing.T) {
		out := run(t, "inspect", shot, "--select", "$[?(@.path == '/a')].fields.typeName")
		v, err := oj.ParseString(out)
		require.NoError(t, err)
		assert.Equal(t, []any{"Xform"}, v)
	})

	t.Run("query", func(t *testing.T) {
		out := run(t, "query", shot, "/a.xformOp:transform", "48")
		v, err := oj.ParseString(out)
		require.NoError(t, err)
		x, err := number(v.([]any)[3].([]any)[0])
		require.NoError(t, err)
		assert.Equal(t, 2.0, x)
	})

	t.Run("samples", func(t *testing.T) {
		out := run(t, "samples", shot, "/a.xformOp:transform", "--time", "30")
		v, err := oj.ParseString(out)
		require.NoError(t, err)
		m := v.(map[string]any)
		lower, err := number(m["lower"])
		require.NoError(t, err)
		upper, err := number(m["upper"])
		require.NoError(t, err)
		assert.Equal(t, 24.0, lower)
		assert.Equal(t, 48.0, upper)
	})

	t.Run("export", func(t *testing.T) {
		out := filepath.Join(dir, "out.scc")
		run(t, "export", shot, out)
		a, ok := openCache(t, out).Scene(scene.Path{"a"})
		require.True(t, ok)
		m, err := a.ReadTransformAsMatrix(2)
		require.NoError(t, err)
		assert.Equal(t, scene.Translate(2, 0, 0), m)
	})

	t.Run("export per frame", func(t *testing.T) {
		out := filepath.Join(dir, "frames.scc")
		run(t, "export", shot, out, "--per-frame")
		a, ok := openCache(t, out).Scene(scene.Path{"a"})
		require.True(t, ok)
		m, err := a.ReadTransformAsMatrix(2)
		require.NoError(t, err)
		assert.Equal(t, scene.Translate(2, 0, 0), m)
	})
}
