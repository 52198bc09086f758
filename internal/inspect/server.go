package inspect

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/agentic-research/scenebridge/internal/bridge"
	"github.com/agentic-research/scenebridge/internal/sdf"
)

// Server serves read-only views of a layer over HTTP.
type Server struct {
	layer    *HotSwapLayer
	log      zerolog.Logger
	gatherer prometheus.Gatherer
}

// NewServer creates a server over layer. A nil gatherer serves the default
// Prometheus registry on /metrics.
func NewServer(layer *HotSwapLayer, log zerolog.Logger, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		layer:    layer,
		log:      log.With().Str("component", "inspect").Logger(),
		gatherer: gatherer,
	}
}

// Router returns the HTTP routes of the server.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		r.Get("/specs", s.ListSpecs)
		r.Get("/fields", s.GetFields)
		r.Get("/samples", s.GetSamples)
		r.Get("/query", s.QuerySample)
	})
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// view runs fn against the current bridge, answering 503 once closed.
func (s *Server) view(w http.ResponseWriter, fn func(d *bridge.Data) error) {
	err := s.layer.View(fn)
	if errors.Is(err, ErrClosed) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

// Health handles GET /healthz
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.view(w, func(d *bridge.Data) error {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":     "ok",
			"file":       d.FileName(),
			"bridge":     d.ID().String(),
			"generation": s.layer.generationLocked(),
		})
		return nil
	})
}

// ListSpecs handles GET /api/specs?prefix=/a
func (s *Server) ListSpecs(w http.ResponseWriter, r *http.Request) {
	prefix := sdf.Path(r.URL.Query().Get("prefix"))
	s.view(w, func(d *bridge.Data) error {
		paths := Paths(d, prefix)
		out := make([]map[string]string, len(paths))
		for i, p := range paths {
			out[i] = map[string]string{"path": string(p), "specType": d.GetSpecType(p).String()}
		}
		writeJSON(w, http.StatusOK, out)
		return nil
	})
}

// GetFields handles GET /api/fields?path=/a.points
func (s *Server) GetFields(w http.ResponseWriter, r *http.Request) {
	path := sdf.Path(r.URL.Query().Get("path"))
	s.view(w, func(d *bridge.Data) error {
		spec, ok := Spec(d, path)
		if !ok {
			writeError(w, http.StatusNotFound, "no spec at "+string(path))
			return nil
		}
		writeJSON(w, http.StatusOK, spec)
		return nil
	})
}

// GetSamples handles GET /api/samples?path=/a.points&time=12
// Without path the layer-wide sample times are returned. time adds the
// bracketing samples around it.
func (s *Server) GetSamples(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := sdf.Path(q.Get("path"))
	var (
		at    float64
		hasAt bool
	)
	if raw := q.Get("time"); raw != "" {
		var err error
		at, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid time: "+err.Error())
			return
		}
		hasAt = true
	}

	s.view(w, func(d *bridge.Data) error {
		resp := map[string]any{}
		var (
			lower, upper float64
			ok           bool
		)
		if path == "" {
			resp["times"] = nonNil(d.ListAllTimeSamples())
			if hasAt {
				lower, upper, ok = d.GetBracketingTimeSamples(at)
			}
		} else {
			if !d.HasSpec(path) {
				writeError(w, http.StatusNotFound, "no spec at "+string(path))
				return nil
			}
			resp["path"] = string(path)
			resp["times"] = nonNil(d.ListTimeSamplesForPath(path))
			if hasAt {
				lower, upper, ok = d.GetBracketingTimeSamplesForPath(path, at)
			}
		}
		if hasAt && ok {
			resp["lower"], resp["upper"] = lower, upper
		}
		writeJSON(w, http.StatusOK, resp)
		return nil
	})
}

func nonNil(times []float64) []float64 {
	if times == nil {
		return []float64{}
	}
	return times
}

// QuerySample handles GET /api/query?path=/a.points&frame=24
func (s *Server) QuerySample(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	path := sdf.Path(q.Get("path"))
	frame, err := strconv.ParseFloat(q.Get("frame"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid frame: "+err.Error())
		return
	}
	s.view(w, func(d *bridge.Data) error {
		v, ok := d.QueryTimeSample(path, frame)
		if !ok {
			writeError(w, http.StatusNotFound, "no value")
			return nil
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"path":  string(path),
			"frame": frame,
			"value": Value(v),
		})
		return nil
	})
}
