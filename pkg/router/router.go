// Package router implements the pattern-matching dispatcher shared by all
// three engines (spec.md §4.2). Patterns are compiled once at Add time,
// adapted from bolt/core/router.go: every route, with or without
// {captures}, is compiled into a slice of segment matchers equivalent to
// the anchored regex spec.md describes, and Route tries the routes in
// registration order.
package router

import (
	"context"
	"strings"

	"github.com/watt-labs/triad/pkg/future"
	"github.com/watt-labs/triad/pkg/handler"
	"github.com/watt-labs/triad/pkg/wire"
)

// Route is one registered (method, pattern) -> handler binding.
type Route struct {
	Method   wire.Method
	Pattern  string
	Params   []string // ordered capture names, in the order they appear
	segments []segment
	Handler  handler.Handler
}

type segment struct {
	literal string
	isParam bool
}

func compilePattern(pattern string) ([]segment, []string) {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segments := make([]segment, 0, len(parts))
	var params []string
	for _, p := range parts {
		if len(p) >= 2 && p[0] == '{' && p[len(p)-1] == '}' {
			name := p[1 : len(p)-1]
			segments = append(segments, segment{isParam: true, literal: name})
			params = append(params, name)
		} else {
			segments = append(segments, segment{literal: p})
		}
	}
	return segments, params
}

// match attempts to bind path's segments against r's compiled pattern. It
// returns the extracted parameter map (nil if there were no captures) and
// whether the match succeeded. Matching is anchored end-to-end: both the
// segment count and every literal segment must agree.
func (rt *Route) match(path string) (map[string]string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(rt.segments) {
		return nil, false
	}
	var params map[string]string
	for i, seg := range rt.segments {
		if seg.isParam {
			if params == nil {
				params = make(map[string]string, len(rt.Params))
			}
			params[seg.literal] = parts[i]
			continue
		}
		if seg.literal != parts[i] {
			return nil, false
		}
	}
	return params, true
}

// Router dispatches requests to registered routes. A Router is built once
// at startup (via Add) and only read at request time thereafter — spec.md
// §4.2: "route list is append-only during server lifetime" — so Route
// requires no locking once the server starts serving.
type Router struct {
	routes []*Route
}

// New returns an empty Router.
func New() *Router {
	return &Router{}
}

// Add registers a route. Pattern compilation happens here, once, not on
// the request hot path (spec.md §9: "compile once at add time").
func (r *Router) Add(method wire.Method, pattern string, h handler.Handler) {
	segments, params := compilePattern(pattern)
	r.routes = append(r.routes, &Route{
		Method:   method,
		Pattern:  pattern,
		Params:   params,
		segments: segments,
		Handler:  h,
	})
}

// notFound builds the default 404 response.
func notFound() *wire.Response {
	return wire.NewResponse(404, []byte(`{"error":"not found"}`))
}

// Route matches req against the registered routes in registration order,
// binds path parameters onto req, and invokes the winning handler. If no
// route matches, it returns an already-completed future resolving to 404
// (spec.md §4.2: "Returns a future already completed with 404 when no
// route matches").
func (r *Router) Route(ctx context.Context, req *wire.Request) *future.Future[*wire.Response] {
	for _, rt := range r.routes {
		if rt.Method != req.Method {
			continue
		}
		params, ok := rt.match(req.Path)
		if !ok {
			continue
		}
		req.SetParams(params)
		return rt.Handler(ctx, req)
	}
	return future.Completed(notFound())
}

// Routes returns the registered routes in registration order, for
// diagnostics (e.g. the /info management endpoint).
func (r *Router) Routes() []*Route {
	return r.routes
}
