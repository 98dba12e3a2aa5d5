package wire

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func mustParse(t *testing.T, raw string) *Request {
	t.Helper()
	req, err := Parse(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return req
}

func TestParseSimpleGET(t *testing.T) {
	req := mustParse(t, "GET /hello?name=Alice HTTP/1.1\r\nHost: x\r\n\r\n")
	if req.Method != MethodGET {
		t.Fatalf("method = %v, want GET", req.Method)
	}
	if req.Path != "/hello" {
		t.Fatalf("path = %q", req.Path)
	}
	if got := req.QueryValue("name"); got != "Alice" {
		t.Fatalf("name = %q, want Alice", got)
	}
}

func TestParsePostWithBody(t *testing.T) {
	req := mustParse(t, "POST /echo HTTP/1.1\r\nHost: x\r\nContent-Length: 5\r\n\r\nhello")
	if string(req.Body) != "hello" {
		t.Fatalf("body = %q, want hello", req.Body)
	}
}

func TestParseEmptyRequest(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("\r\n")))
	if err != ErrEmptyRequest {
		t.Fatalf("err = %v, want ErrEmptyRequest", err)
	}
}

func TestParseMalformedRequestLine(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("GET\r\nHost: x\r\n\r\n")))
	if err != ErrMalformedRequestLine {
		t.Fatalf("err = %v, want ErrMalformedRequestLine", err)
	}
}

func TestParseOversizeRequestLine(t *testing.T) {
	huge := "GET /" + strings.Repeat("a", MaxRequestLineSize) + " HTTP/1.1\r\n\r\n"
	_, err := Parse(bufio.NewReader(strings.NewReader(huge)))
	if err != ErrOversizeRequestLine {
		t.Fatalf("err = %v, want ErrOversizeRequestLine", err)
	}
}

func TestParseUnknownMethod(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("FOO / HTTP/1.1\r\n\r\n")))
	if err != ErrUnknownMethod {
		t.Fatalf("err = %v, want ErrUnknownMethod", err)
	}
}

func TestParseMalformedContentLength(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("POST / HTTP/1.1\r\nContent-Length: abc\r\n\r\n")))
	if err != ErrMalformedContentLength {
		t.Fatalf("err = %v, want ErrMalformedContentLength", err)
	}
}

func TestParseShortBody(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nhi")))
	if err != ErrShortBody {
		t.Fatalf("err = %v, want ErrShortBody", err)
	}
}

func TestParseSmuggledLength(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader(
		"POST / HTTP/1.1\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\nhello")))
	if err != ErrSmuggledLength {
		t.Fatalf("err = %v, want ErrSmuggledLength", err)
	}
}

func TestParseDuplicateContentLengthMismatch(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader(
		"POST / HTTP/1.1\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\nhello!")))
	if err != ErrSmuggledLength {
		t.Fatalf("err = %v, want ErrSmuggledLength", err)
	}
}

func TestParseMalformedHeader(t *testing.T) {
	_, err := Parse(bufio.NewReader(strings.NewReader("GET / HTTP/1.1\r\nNoColon\r\n\r\n")))
	if err != ErrMalformedHeader {
		t.Fatalf("err = %v, want ErrMalformedHeader", err)
	}
}

// TestRoundTrip covers property 1 from spec.md §8: for valid requests,
// parse(serialise-equivalent bytes) reproduces method, path, query,
// headers, and body.
func TestRoundTrip(t *testing.T) {
	raw := "POST /users/42?verbose=true HTTP/1.1\r\nHost: example.com\r\nX-Trace: abc\r\nContent-Length: 4\r\n\r\nbody"
	req := mustParse(t, raw)

	if req.Method != MethodPOST || req.Path != "/users/42" || req.Query != "verbose=true" {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Header.Get("Host") != "example.com" || req.Header.Get("X-Trace") != "abc" {
		t.Fatalf("headers not preserved: %+v", req.Header)
	}
	if string(req.Body) != "body" {
		t.Fatalf("body = %q", req.Body)
	}
}

func TestSerialiseSetsContentLength(t *testing.T) {
	resp := NewResponse(200, []byte("hi"))
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := Serialise(resp, w); err != nil {
		t.Fatalf("Serialise: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Content-Length: 2") {
		t.Fatalf("missing Content-Length: %q", out)
	}
	if !strings.Contains(out, "HTTP/1.1 200") {
		t.Fatalf("missing status line: %q", out)
	}
	if !strings.HasSuffix(out, "hi") {
		t.Fatalf("missing body: %q", out)
	}
}

func TestSerialiseContentLengthFollowsMutation(t *testing.T) {
	resp := NewResponse(200, []byte("hi"))
	resp.SetBody([]byte("a longer body"))
	if resp.Header.Get("Content-Length") != "13" {
		t.Fatalf("Content-Length = %q, want 13", resp.Header.Get("Content-Length"))
	}
	var buf bytes.Buffer
	if err := Serialise(resp, bufio.NewWriter(&buf)); err != nil {
		t.Fatalf("Serialise: %v", err)
	}
	if !strings.Contains(buf.String(), "Content-Length: 13\r\n") {
		t.Fatalf("serialised Content-Length wrong: %q", buf.String())
	}
}
