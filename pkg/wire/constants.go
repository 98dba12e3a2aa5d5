package wire

// Limits are bit-exact per the framework's wire contract; changing any of
// these changes on-wire behavior that the benchmark harness and conformance
// tests depend on.
const (
	// MaxRequestLineSize is the maximum length, in bytes, of the request
	// line (method + SP + request-target + SP + version).
	MaxRequestLineSize = 8192

	// MaxHeadersSize is the maximum cumulative size, in bytes, of all
	// header lines (name + ": " + value + CRLF, summed).
	MaxHeadersSize = 65536

	// MaxBodySize is the maximum Content-Length a request body may declare.
	MaxBodySize = 10 * 1024 * 1024

	// ReadTimeout is the socket-level read deadline applied to every
	// accepted connection, across all three engines.
	ReadTimeout = 30_000 // milliseconds

	// DefaultBacklog is the OS accept-backlog used when none is configured.
	DefaultBacklog = 50

	// DefaultMaxConnections is the connection-count ceiling used when none
	// is configured.
	DefaultMaxConnections = 1000
)

// ServerIdentifier is the value emitted in the Server response header.
const ServerIdentifier = "triad/1.0"

const crlf = "\r\n"
