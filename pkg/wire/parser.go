package wire

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

// scratchPool supplies reusable buffers for accumulating the request line
// and headers before they are copied into an owned Request. Grounded on
// shockwave/http11's tmpBufPool, swapped for bytebufferpool so the pool
// itself is a pack dependency instead of a hand-rolled sync.Pool of []byte.
var scratchPool bytebufferpool.Pool

// Parse reads exactly one HTTP/1.1 request from r and returns an owned
// Request, or one of the sentinel errors in errors.go.
//
// r must support reading past the header block boundary for the body;
// callers typically wrap the connection in a *bufio.Reader (as Parse
// itself requires, to be able to peek at CRLF boundaries without losing
// body bytes already buffered).
func Parse(r *bufio.Reader) (*Request, error) {
	line, err := readLine(r, MaxRequestLineSize)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, ErrEmptyRequest
	}

	method, path, query, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	req := NewRequest(method, path, query)

	if err := readHeaders(r, req); err != nil {
		return nil, err
	}

	// validatedContentLength enforces the Content-Length/Transfer-Encoding
	// smuggling check regardless of which body-framing branch runs below,
	// so a request carrying both headers is rejected before ever reaching
	// readChunkedBody.
	contentLength, err := validatedContentLength(&req.Header)
	if err != nil {
		return nil, err
	}

	if req.Header.Has("Transfer-Encoding") {
		body, err := readChunkedBody(r)
		if err != nil {
			return nil, err
		}
		req.Body = body
		return req, nil
	}

	if contentLength > 0 {
		if contentLength > MaxBodySize {
			return nil, ErrOversizeBody
		}
		body := make([]byte, contentLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, ErrShortBody
		}
		req.Body = body
	}

	return req, nil
}

// readLine reads up to and including a CRLF, returning the line without
// the terminator. Fails with ErrOversizeRequestLine if limit bytes are
// exceeded before a CRLF is found.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	buf := scratchPool.Get()
	defer scratchPool.Put(buf)

	for {
		chunk, err := r.ReadSlice('\n')
		buf.Write(chunk)
		if buf.Len() > limit {
			return nil, ErrOversizeRequestLine
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		if err == io.EOF && buf.Len() > 0 {
			break
		}
		return nil, err
	}

	line := buf.Bytes()
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	out := make([]byte, len(line))
	copy(out, line)
	return out, nil
}

// parseRequestLine splits "METHOD SP request-target SP HTTP-Version" and
// the request-target into path + raw query.
func parseRequestLine(line []byte) (Method, string, string, error) {
	first := bytes.IndexByte(line, ' ')
	if first < 0 {
		return 0, "", "", ErrMalformedRequestLine
	}
	rest := line[first+1:]
	second := bytes.IndexByte(rest, ' ')
	if second < 0 {
		return 0, "", "", ErrMalformedRequestLine
	}

	methodTok := line[:first]
	target := rest[:second]
	version := rest[second+1:]

	if !bytes.HasPrefix(version, []byte("HTTP/")) || bytes.IndexByte(version, ' ') >= 0 {
		return 0, "", "", ErrMalformedRequestLine
	}

	method := ParseMethod(methodTok)
	if method == MethodUnknown {
		return 0, "", "", ErrUnknownMethod
	}

	var pathRaw, query string
	if qIdx := bytes.IndexByte(target, '?'); qIdx >= 0 {
		pathRaw = string(target[:qIdx])
		query = string(target[qIdx+1:])
	} else {
		pathRaw = string(target)
	}

	path := percentDecode(pathRaw)
	if path == "" || path[0] != '/' {
		return 0, "", "", ErrMalformedRequestLine
	}

	return method, path, query, nil
}

// readHeaders reads header lines until a blank line, populating req.Header
// and enforcing the cumulative MaxHeadersSize budget (request line
// excluded). Returns nil on the blank line, or a sentinel error.
func readHeaders(r *bufio.Reader, req *Request) error {
	total := 0
	for {
		line, err := readLine(r, MaxHeadersSize)
		if err != nil {
			if err == ErrOversizeRequestLine {
				return ErrOversizeHeaders
			}
			return err
		}
		total += len(line) + 2
		if total > MaxHeadersSize {
			return ErrOversizeHeaders
		}
		if len(line) == 0 {
			return nil
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return ErrMalformedHeader
		}
		name := string(bytes.TrimSpace(line[:colon]))
		value := string(bytes.TrimSpace(line[colon+1:]))
		if name == "" {
			return ErrMalformedHeader
		}
		req.Header.Add(name, value)
	}
}

// validatedContentLength extracts and validates Content-Length, enforcing
// the RFC 7230 §3.3.3 smuggling protections: Content-Length and
// Transfer-Encoding may not both be present, and repeated Content-Length
// headers must agree.
func validatedContentLength(h *Header) (int64, error) {
	hasTE := h.Has("Transfer-Encoding")
	values := h.Values("Content-Length")
	if len(values) == 0 {
		return 0, nil
	}
	if hasTE {
		return 0, ErrSmuggledLength
	}

	first := values[0]
	n, err := strconv.ParseInt(first, 10, 64)
	if err != nil || n < 0 {
		return 0, ErrMalformedContentLength
	}
	for _, v := range values[1:] {
		if v != first {
			return 0, ErrSmuggledLength
		}
	}
	return n, nil
}
