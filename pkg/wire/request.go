package wire

// Request is an immutable (post-construction) HTTP/1.1 request value.
//
// Unlike a zero-copy parser that hands back slices into a pooled scratch
// buffer, every field here owns its data: a Request is safe to retain,
// pass across goroutines, or hold past the lifetime of the connection it
// was parsed from. This is a deliberate trade against raw throughput — the
// spec's handler contract lets a handler be scheduled onto a different
// pool thread (Hybrid) or offloaded to a worker (EventLoop), so a
// reference into a buffer the reactor may already have reused is not an
// option.
type Request struct {
	Method Method
	Path   string // decoded, no query string
	Query  string // raw query string, parsed lazily via QueryValues

	Header Header
	Body   []byte

	// params holds path parameters extracted by the router. It is set
	// exactly once, during routing, and is immutable for the handler.
	params map[string]string

	// attrs is handler scratch space: set/get arbitrary values keyed by
	// name. Not serialised, not read by the framework itself.
	attrs map[string]any

	queryValues map[string][]string
	queryParsed bool
}

// NewRequest constructs a Request with the given method, path, and query
// string. Header and Body are left zero-valued for the caller to fill in;
// this is the constructor the parser and tests use.
func NewRequest(method Method, path, query string) *Request {
	return &Request{Method: method, Path: path, Query: query}
}

// Param returns the path parameter captured under name, or "" if routing
// never bound one (either no such capture in the matched pattern, or the
// request was never routed).
func (r *Request) Param(name string) string {
	if r.params == nil {
		return ""
	}
	return r.params[name]
}

// SetParams freezes the path-parameter mapping. Called by the router
// exactly once per request, before the handler runs; not meant to be
// called from handler code.
func (r *Request) SetParams(params map[string]string) {
	r.params = params
}

// SetAttr stores a handler-scratch value under name.
func (r *Request) SetAttr(name string, value any) {
	if r.attrs == nil {
		r.attrs = make(map[string]any)
	}
	r.attrs[name] = value
}

// Attr retrieves a handler-scratch value previously stored with SetAttr.
func (r *Request) Attr(name string) (any, bool) {
	if r.attrs == nil {
		return nil, false
	}
	v, ok := r.attrs[name]
	return v, ok
}

// QueryValues parses r.Query lazily into a name -> ordered-values mapping,
// caching the result. Repeated names preserve insertion order.
func (r *Request) QueryValues() map[string][]string {
	if r.queryParsed {
		return r.queryValues
	}
	r.queryValues = parseQueryString(r.Query)
	r.queryParsed = true
	return r.queryValues
}

// QueryValue returns the first value bound to name in the query string, or
// "" if name is absent.
func (r *Request) QueryValue(name string) string {
	vs := r.QueryValues()[name]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func parseQueryString(raw string) map[string][]string {
	out := make(map[string][]string)
	if raw == "" {
		return out
	}
	for _, pair := range splitAmp(raw) {
		if pair == "" {
			continue
		}
		name, value := pair, ""
		for i := 0; i < len(pair); i++ {
			if pair[i] == '=' {
				name, value = pair[:i], pair[i+1:]
				break
			}
		}
		name = percentDecode(name)
		value = percentDecode(value)
		out[name] = append(out[name], value)
	}
	return out
}

func splitAmp(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '&' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// percentDecode decodes %XX escapes and '+' as space, tolerating malformed
// escapes by passing them through verbatim (query-string values are
// diagnostic, not security-sensitive in this framework's scope).
func percentDecode(s string) string {
	hasEscape := false
	for i := 0; i < len(s); i++ {
		if s[i] == '%' || s[i] == '+' {
			hasEscape = true
			break
		}
	}
	if !hasEscape {
		return s
	}

	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			out = append(out, ' ')
		case '%':
			if i+2 < len(s) {
				if hi, ok := hexVal(s[i+1]); ok {
					if lo, ok := hexVal(s[i+2]); ok {
						out = append(out, byte(hi<<4|lo))
						i += 2
						continue
					}
				}
			}
			out = append(out, '%')
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
