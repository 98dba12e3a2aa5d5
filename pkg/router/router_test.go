package router

import (
	"context"
	"testing"

	"github.com/watt-labs/triad/pkg/handler"
	"github.com/watt-labs/triad/pkg/wire"
)

func respond(body string) handler.Handler {
	return handler.Sync(func(_ *wire.Request) *wire.Response {
		return wire.NewResponse(200, []byte(body))
	})
}

func TestStaticRouteMatches(t *testing.T) {
	r := New()
	r.Add(wire.MethodGET, "/hello", respond("hi"))

	req := wire.NewRequest(wire.MethodGET, "/hello", "")
	resp, err := r.Route(context.Background(), req).Wait(context.Background())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if string(resp.Body) != "hi" {
		t.Fatalf("body = %q, want hi", resp.Body)
	}
}

func TestNoMatchReturns404(t *testing.T) {
	r := New()
	req := wire.NewRequest(wire.MethodGET, "/missing", "")
	resp, err := r.Route(context.Background(), req).Wait(context.Background())
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if resp.Status != 404 {
		t.Fatalf("status = %d, want 404", resp.Status)
	}
}

func TestCapturesBindPathParams(t *testing.T) {
	r := New()
	var gotID string
	r.Add(wire.MethodGET, "/users/{id}", handler.Sync(func(req *wire.Request) *wire.Response {
		gotID = req.Param("id")
		return wire.NewResponse(200, nil)
	}))

	req := wire.NewRequest(wire.MethodGET, "/users/42", "")
	if _, err := r.Route(context.Background(), req).Wait(context.Background()); err != nil {
		t.Fatalf("err = %v", err)
	}
	if gotID != "42" {
		t.Fatalf("id = %q, want 42", gotID)
	}
}

func TestFirstRegisteredRouteWinsOnOverlap(t *testing.T) {
	r := New()
	r.Add(wire.MethodGET, "/users/{id}", respond("dynamic"))
	r.Add(wire.MethodGET, "/users/literal", respond("static"))

	req := wire.NewRequest(wire.MethodGET, "/users/literal", "")
	resp, _ := r.Route(context.Background(), req).Wait(context.Background())
	if string(resp.Body) != "dynamic" {
		t.Fatalf("body = %q, want dynamic (registration-order tie-break)", resp.Body)
	}
}

func TestSegmentCountMustMatch(t *testing.T) {
	r := New()
	r.Add(wire.MethodGET, "/a/{b}", respond("x"))
	req := wire.NewRequest(wire.MethodGET, "/a/b/c", "")
	resp, _ := r.Route(context.Background(), req).Wait(context.Background())
	if resp.Status != 404 {
		t.Fatalf("status = %d, want 404 for mismatched segment count", resp.Status)
	}
}
