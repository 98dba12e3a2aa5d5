package wire

import (
	"bufio"
	"strconv"
	"time"
)

// Serialise writes an HTTP/1.1 status line, headers, and body to w.
//
// Before writing, it ensures: Content-Length equals len(body), Connection
// defaults to "close" (per this framework's no-keep-alive design, see
// SPEC_FULL.md §9), Date is set to the current time in RFC 1123 form, and
// Server defaults to ServerIdentifier. Content-Length is re-synchronised on
// resp itself; the Connection, Date and Server defaults are added to a
// clone of the header rather than the caller's Response, so repeated
// serialisation stays idempotent.
func Serialise(resp *Response, w *bufio.Writer) error {
	resp.syncContentLength()

	h := resp.Header.Clone()
	if !h.Has("Connection") {
		h.Set("Connection", "close")
	}
	if !h.Has("Date") {
		h.Set("Date", time.Now().UTC().Format(time.RFC1123))
	}
	if !h.Has("Server") {
		h.Set("Server", ServerIdentifier)
	}

	reason := resp.Reason
	if reason == "" {
		reason = reasonFor(resp.Status)
	}

	if _, err := w.WriteString("HTTP/1.1 "); err != nil {
		return err
	}
	if _, err := w.WriteString(strconv.Itoa(resp.Status)); err != nil {
		return err
	}
	if reason != "" {
		if err := w.WriteByte(' '); err != nil {
			return err
		}
		if _, err := w.WriteString(reason); err != nil {
			return err
		}
	}
	if _, err := w.WriteString(crlf); err != nil {
		return err
	}

	var writeErr error
	h.VisitAll(func(name, value string) {
		if writeErr != nil {
			return
		}
		if _, writeErr = w.WriteString(name); writeErr != nil {
			return
		}
		if _, writeErr = w.WriteString(": "); writeErr != nil {
			return
		}
		if _, writeErr = w.WriteString(value); writeErr != nil {
			return
		}
		_, writeErr = w.WriteString(crlf)
	})
	if writeErr != nil {
		return writeErr
	}

	if _, err := w.WriteString(crlf); err != nil {
		return err
	}
	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			return err
		}
	}
	return w.Flush()
}
