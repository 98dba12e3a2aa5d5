package common

import (
	"bytes"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/watt-labs/triad/pkg/handler"
	"github.com/watt-labs/triad/pkg/router"
	"github.com/watt-labs/triad/pkg/wire"
)

// InfoProvider supplies the configuration snapshot for GET /info. Each
// engine implements this with its own name and config so the shared
// endpoint code stays engine-agnostic.
type InfoProvider func() map[string]any

// Mount registers the four built-in management endpoints onto r, per
// spec.md §6. /static/* is an explicit external collaborator (spec.md §1)
// and is stubbed here as a single-file read (os.ReadFile) from StaticRoot,
// matching the spec's "delegated; out of core" framing rather than
// re-implementing range requests, ETags, etc.
func Mount(r *router.Router, stats *Stats, info InfoProvider, reg *prometheus.Registry) {
	r.Add(wire.MethodGET, "/health", handler.Sync(func(_ *wire.Request) *wire.Response {
		return jsonResponse(200, stats.Snapshot())
	}))

	if reg != nil {
		r.Add(wire.MethodGET, "/metrics/prom", promHandler(reg))
	}

	r.Add(wire.MethodGET, "/metrics", handler.Sync(func(_ *wire.Request) *wire.Response {
		return jsonResponse(200, stats.Snapshot())
	}))

	r.Add(wire.MethodGET, "/info", handler.Sync(func(_ *wire.Request) *wire.Response {
		snap := info()
		snap["goVersion"] = runtime.Version()
		snap["numCPU"] = runtime.NumCPU()
		snap["numGoroutine"] = runtime.NumGoroutine()
		snap["gomaxprocs"] = runtime.GOMAXPROCS(0)
		return jsonResponse(200, snap)
	}))

	r.Add(wire.MethodGET, "/static/{path}", handler.Sync(func(req *wire.Request) *wire.Response {
		return staticFile(req.Param("path"))
	}))
}

func jsonResponse(status int, v any) *wire.Response {
	body, err := json.Marshal(v)
	if err != nil {
		return wire.NewResponse(500, []byte(`{"error":"encode failure"}`))
	}
	resp := wire.NewResponse(status, body)
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

// promHandler adapts promhttp.Handler (a net/http handler) into this
// framework's Handler contract by driving it with an in-memory
// ResponseWriter/Request pair — the one place this module bridges to
// net/http, since re-implementing the Prometheus text exposition format
// by hand would duplicate a library the pack already ships.
func promHandler(reg *prometheus.Registry) handler.Handler {
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler.Sync(func(_ *wire.Request) *wire.Response {
		rec := newRecorder()
		httpReq, _ := http.NewRequest(http.MethodGet, "/metrics/prom", nil)
		h.ServeHTTP(rec, httpReq)
		resp := wire.NewResponse(rec.status, rec.body.Bytes())
		for name, values := range rec.header {
			for _, v := range values {
				resp.Header.Add(name, v)
			}
		}
		return resp
	})
}

// recorder is a minimal http.ResponseWriter sufficient to capture
// promhttp's output without pulling in net/http/httptest as a runtime
// dependency.
type recorder struct {
	status int
	header http.Header
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{status: 200, header: make(http.Header)}
}

func (r *recorder) Header() http.Header        { return r.header }
func (r *recorder) WriteHeader(statusCode int)  { r.status = statusCode }
func (r *recorder) Write(b []byte) (int, error) { return r.body.Write(b) }

// StaticRoot is the directory /static/* serves from. Left as a package
// variable rather than threaded through Mount's signature since static
// file serving is an explicit external collaborator (spec.md §1) — this
// is a stub, not a hardened file server (no range requests, no ETags).
var StaticRoot = "static"

func staticFile(reqPath string) *wire.Response {
	if reqPath == "" || strings.Contains(reqPath, "..") {
		return wire.NewResponse(404, []byte(`{"error":"not found"}`))
	}
	data, err := os.ReadFile(filepath.Join(StaticRoot, reqPath))
	if err != nil {
		return wire.NewResponse(404, []byte(`{"error":"not found"}`))
	}
	return wire.NewResponse(200, data)
}
