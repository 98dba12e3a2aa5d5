package wire

import (
	"strconv"
	"time"
)

// Response is a mutable builder until it is handed to Serialise, at which
// point it is conventionally treated as frozen — nothing in this package
// enforces that past the Content-Length invariant below, since ownership
// passes to exactly one goroutine (the connection's writer) by contract.
type Response struct {
	Status    int
	Reason    string // if empty, Serialise fills in the standard reason phrase
	Header    Header
	Body      []byte
	CreatedAt time.Time // set once, at construction; diagnostics only, never serialised
}

// NewResponse builds a Response with the given status and body, setting
// Content-Length and CreatedAt immediately.
func NewResponse(status int, body []byte) *Response {
	r := &Response{Status: status, Body: body, CreatedAt: time.Now()}
	r.syncContentLength()
	return r
}

// SetBody replaces the body and re-synchronises Content-Length. Every
// mutation path that can change body length must call this rather than
// writing r.Body directly, to uphold the "Content-Length == len(body) at
// every mutation" invariant.
func (r *Response) SetBody(body []byte) {
	r.Body = body
	r.syncContentLength()
}

func (r *Response) syncContentLength() {
	r.Header.Set("Content-Length", strconv.Itoa(len(r.Body)))
}

// reasonPhrases covers the status codes this framework itself emits;
// Serialise falls back to "" for anything else (a quirk, not a bug — an
// empty reason phrase is valid HTTP/1.1).
var reasonPhrases = map[int]string{
	200: "OK",
	201: "Created",
	204: "No Content",
	400: "Bad Request",
	404: "Not Found",
	405: "Method Not Allowed",
	408: "Request Timeout",
	500: "Internal Server Error",
	503: "Service Unavailable",
}

func reasonFor(status int) string {
	return reasonPhrases[status]
}

// StatusText returns the reason phrase this framework uses for status, or
// "" if it has none on file.
func StatusText(status int) string {
	return reasonFor(status)
}
