package wire

import "errors"

// Parse errors. Each corresponds to one failure mode named in the wire
// codec contract; callers that need to decide between "reject silently"
// and "emit 400" switch on these sentinels rather than string-matching.
var (
	// ErrEmptyRequest is returned when the first line read is blank.
	ErrEmptyRequest = errors.New("wire: empty request")

	// ErrMalformedRequestLine is returned when the request line does not
	// split into exactly three single-space-separated tokens, or the third
	// token does not begin with "HTTP/".
	ErrMalformedRequestLine = errors.New("wire: malformed request line")

	// ErrOversizeRequestLine is returned when the request line exceeds
	// MaxRequestLineSize bytes.
	ErrOversizeRequestLine = errors.New("wire: request line too large")

	// ErrUnknownMethod is returned when the method token is not one of
	// the nine recognised verbs.
	ErrUnknownMethod = errors.New("wire: unknown method")

	// ErrOversizeHeaders is returned when cumulative header bytes exceed
	// MaxHeadersSize.
	ErrOversizeHeaders = errors.New("wire: headers too large")

	// ErrMalformedHeader is returned when a header line has no colon, or
	// an empty name.
	ErrMalformedHeader = errors.New("wire: malformed header")

	// ErrMalformedContentLength is returned when the Content-Length value
	// does not parse as a non-negative integer.
	ErrMalformedContentLength = errors.New("wire: malformed Content-Length")

	// ErrOversizeBody is returned when Content-Length exceeds MaxBodySize.
	ErrOversizeBody = errors.New("wire: body too large")

	// ErrShortBody is returned when the stream ends before Content-Length
	// bytes have been read.
	ErrShortBody = errors.New("wire: stream ended mid-body")

	// ErrSmuggledLength is returned when a request carries both
	// Content-Length and Transfer-Encoding, or multiple Content-Length
	// headers with different values (RFC 7230 §3.3.3).
	ErrSmuggledLength = errors.New("wire: conflicting Content-Length/Transfer-Encoding")
)
