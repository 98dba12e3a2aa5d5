package bench

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrRequestTimeout is returned by doRequest when a round trip exceeds
// its deadline, distinguished from other failures so the stability
// scorer can apply spec.md §4.7's "-15 if any client timed out" penalty.
var ErrRequestTimeout = errors.New("bench: request timed out")

// rawClient issues one HTTP/1.1 request per TCP connection — spec.md
// §4.7: "must use a client that does NOT reuse connections by default",
// matching the engines' own Connection: close policy, and giving exact
// control over TCP handshake timing that a pooling client.Transport
// would obscure. Built directly on net rather than net/http's Transport,
// since net/http would reintroduce the connection pooling this harness
// deliberately avoids.
type rawClient struct {
	host   string
	path   string
	body   []byte
	method string
}

func newRawClient(targetURL, path string, body []byte) (*rawClient, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return nil, err
	}
	method := "GET"
	if len(body) > 0 {
		method = "POST"
	}
	return &rawClient{host: u.Host, path: path, body: body, method: method}, nil
}

// do performs one request/response cycle over a fresh connection and
// returns the wall-clock latency from send-start to response-end-read,
// per spec.md §4.7's measurement definition.
func (c *rawClient) do(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	dialer := net.Dialer{}
	start := time.Now()

	conn, err := dialer.DialContext(ctx, "tcp", c.host)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	deadline := start.Add(timeout)
	_ = conn.SetDeadline(deadline)

	req := c.method + " " + c.path + " HTTP/1.1\r\nHost: " + c.host + "\r\n"
	if len(c.body) > 0 {
		req += "Content-Length: " + strconv.Itoa(len(c.body)) + "\r\n\r\n"
	} else {
		req += "\r\n"
	}

	if _, err := conn.Write([]byte(req)); err != nil {
		return 0, err
	}
	if len(c.body) > 0 {
		if _, err := conn.Write(c.body); err != nil {
			return 0, err
		}
	}

	reader := bufio.NewReader(conn)
	if err := drainResponse(reader); err != nil {
		if isTimeout(err) {
			return time.Since(start), ErrRequestTimeout
		}
		return time.Since(start), err
	}

	return time.Since(start), nil
}

// drainResponse reads and discards a full HTTP/1.1 response: status
// line, headers up to the blank line, and a Content-Length body if one
// was declared. It does not need to fully parse the response; the
// harness only needs to know the round trip completed, not its shape.
func drainResponse(r *bufio.Reader) error {
	contentLength := -1
	lineNum := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		lineNum++
		if line == "\r\n" || line == "\n" {
			break
		}
		if lineNum > 1 && contentLength == -1 {
			if cl, ok := parseContentLengthLine(line); ok {
				contentLength = cl
			}
		}
	}
	if contentLength > 0 {
		buf := make([]byte, 4096)
		remaining := contentLength
		for remaining > 0 {
			n := len(buf)
			if remaining < n {
				n = remaining
			}
			read, err := r.Read(buf[:n])
			if err != nil {
				return err
			}
			remaining -= read
		}
	}
	return nil
}

func parseContentLengthLine(line string) (int, bool) {
	const prefix = "content-length:"
	lower := strings.ToLower(line)
	if !strings.HasPrefix(lower, prefix) {
		return 0, false
	}
	v := strings.TrimSpace(line[len(prefix):])
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
