package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/scenebridge/internal/bridge"
	"github.com/agentic-research/scenebridge/internal/config"
	"github.com/agentic-research/scenebridge/internal/metrics"
	"github.com/agentic-research/scenebridge/internal/scene"
	"github.com/agentic-research/scenebridge/internal/scenecache"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// writeTestCache writes /a, translated along x by its time in seconds at
// 1s and 2s, with an empty child /a/b.
func writeTestCache(t *testing.T, file string, extra ...string) {
	t.Helper()
	w, err := scenecache.Create(file, scenecache.WithFrameRate("maya", 24))
	require.NoError(t, err)
	a, err := w.Root().Child("a")
	require.NoError(t, err)
	require.NoError(t, a.WriteTransform(scene.Translate(1, 0, 0), 1))
	require.NoError(t, a.WriteTransform(scene.Translate(2, 0, 0), 2))
	require.NoError(t, a.WriteTags([]string{"geo"}))
	_, err = a.Child("b")
	require.NoError(t, err)
	for _, name := range extra {
		_, err := w.Root().Child(name)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func opener(m *metrics.Metrics) Opener {
	logger := zerolog.Nop()
	return func(file string) (*bridge.Data, error) {
		return bridge.Open(file, bridge.Options{
			Logger:   &logger,
			Registry: scenecache.NewRegistry(),
			Metrics:  m,
			Flags:    &config.BridgeConfig{},
		})
	}
}

func openLayer(t *testing.T) (*HotSwapLayer, string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "shot.scc")
	writeTestCache(t, file)
	d, err := opener(nil)(file)
	require.NoError(t, err)
	layer := NewHotSwapLayer(d)
	t.Cleanup(func() { _ = layer.Close() })
	return layer, file
}

func TestValue(t *testing.T) {
	ts := sdf.NewTimeSampleMap(0, 24)
	ts.Set(48, sdf.Resolved{Value: float32(2)})

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"token", sdf.Token("inherited"), "inherited"},
		{"int32", int32(3), int64(3)},
		{"float32", float32(0.5), 0.5},
		{"spec type", sdf.SpecTypePrim, "Prim"},
		{"variability", sdf.VariabilityUniform, "uniform"},
		{"tokens", []sdf.Token{"a", "b"}, []any{"a", "b"}},
		{"vec3f", sdf.Vec3f{1, 2, 3}, []any{1.0, 2.0, 3.0}},
		{"explicit list op", sdf.ExplicitListOp[sdf.Path]("/a"), map[string]any{"explicit": []any{"/a"}}},
		{
			"reference list op",
			sdf.PrependedListOp(sdf.Reference{AssetPath: "x.scc", PrimPath: "/x"}),
			map[string]any{"prepended": []any{map[string]any{"assetPath": "x.scc", "primPath": "/x"}}},
		},
		{
			"dictionary",
			sdf.Dictionary{"times": []sdf.Vec2d{{24, 12}}},
			map[string]any{"times": []any{[]any{24.0, 12.0}}},
		},
		{"time samples", ts, map[string]any{"0": nil, "24": nil, "48": 2.0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Value(tt.in))
		})
	}
}

func TestDumpAndSelect(t *testing.T) {
	layer, _ := openLayer(t)
	require.NoError(t, layer.View(func(d *bridge.Data) error {
		spec, ok := Spec(d, "/a")
		require.True(t, ok)
		assert.Equal(t, "Prim", spec["specType"])
		assert.Equal(t, []any{"b"}, spec["fields"].(map[string]any)[sdf.FieldPrimChildren])

		_, ok = Spec(d, "/missing")
		assert.False(t, ok)

		doc := Dump(d, "/a/b")
		paths, err := Select(doc, "$[*].path")
		require.NoError(t, err)
		assert.Contains(t, paths, "/a/b")
		assert.Contains(t, paths, "/a/b.visibility")
		assert.NotContains(t, paths, "/a")

		types, err := Select(Dump(d, "/a"), "$[?(@.path == '/a')].fields.typeName")
		require.NoError(t, err)
		assert.Equal(t, []any{"Xform"}, types)

		_, err = Select(doc, "$[")
		assert.Error(t, err)
		return nil
	}))
}

func getJSON(t *testing.T, srv *httptest.Server, path string, query url.Values, out any) int {
	t.Helper()
	u := srv.URL + path
	if query != nil {
		u += "?" + query.Encode()
	}
	resp, err := http.Get(u)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestServer_Routes(t *testing.T) {
	layer, file := openLayer(t)
	reg := prometheus.NewRegistry()
	metrics.New(reg).BridgeOpened(3)
	srv := httptest.NewServer(NewServer(layer, zerolog.Nop(), reg).Router())
	defer srv.Close()

	var health map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/healthz", nil, &health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, file, health["file"])
	assert.Equal(t, 1.0, health["generation"])

	var specs []map[string]string
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/specs", url.Values{"prefix": {"/a/b"}}, &specs))
	require.NotEmpty(t, specs)
	assert.Equal(t, map[string]string{"path": "/a/b", "specType": "Prim"}, specs[0])

	var fields map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/fields", url.Values{"path": {"/a.xformOpOrder"}}, &fields))
	assert.Equal(t, []any{"xformOp:transform"}, fields["fields"].(map[string]any)[sdf.FieldDefault])
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/fields", url.Values{"path": {"/nope"}}, nil))

	var samples map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/samples",
		url.Values{"path": {"/a.xformOp:transform"}, "time": {"30"}}, &samples))
	assert.Equal(t, []any{24.0, 48.0}, samples["times"])
	assert.Equal(t, 24.0, samples["lower"])
	assert.Equal(t, 48.0, samples["upper"])
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/samples", url.Values{"time": {"x"}}, nil))

	var query map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, srv, "/api/query",
		url.Values{"path": {"/a.xformOp:transform"}, "frame": {"48"}}, &query))
	row := query["value"].([]any)[3].([]any)
	assert.Equal(t, 2.0, row[0])
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv, "/api/query",
		url.Values{"path": {"/a.xformOp:transform"}, "frame": {"30"}}, nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv, "/api/query", url.Values{"path": {"/a"}}, nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ClosedLayer(t *testing.T) {
	layer, _ := openLayer(t)
	srv := httptest.NewServer(NewServer(layer, zerolog.Nop(), prometheus.NewRegistry()).Router())
	defer srv.Close()

	require.NoError(t, layer.Close())
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, srv, "/healthz", nil, nil))
}

func TestHotSwapLayer_Swap(t *testing.T) {
	layer, file := openLayer(t)
	var first *bridge.Data
	require.NoError(t, layer.View(func(d *bridge.Data) error {
		first = d
		return nil
	}))

	next, err := opener(nil)(file)
	require.NoError(t, err)
	require.NoError(t, layer.Swap(next))
	assert.Equal(t, 2, layer.Generation())

	require.NoError(t, layer.View(func(d *bridge.Data) error {
		assert.Same(t, next, d)
		assert.NotSame(t, first, d)
		return nil
	}))
}

func TestWatcher_ReloadsOnRewrite(t *testing.T) {
	layer, file := openLayer(t)
	var reloads atomic.Int32
	w := &Watcher{
		File:     file,
		Layer:    layer,
		Open:     opener(nil),
		Log:      zerolog.Nop(),
		Debounce: 20 * time.Millisecond,
		Reloaded: func(int) { reloads.Add(1) },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher time to register before rewriting.
	time.Sleep(100 * time.Millisecond)
	writeTestCache(t, file, "c")

	require.Eventually(t, func() bool { return reloads.Load() > 0 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, layer.View(func(d *bridge.Data) error {
		assert.True(t, d.HasSpec("/c"))
		return nil
	}))
}
