package sse

import (
	"bufio"
	"io"
	"strings"
)

// TeeReader parses SSE events out of a stream while writing every byte of it
// verbatim to a destination writer. The relay uses it to watch an upstream
// event stream without disturbing the copy the client receives: Next returns
// parsed events for inspection, dest gets the exact bytes.
//
// Reading is line-at-a-time over a bufio.Reader rather than a Scanner, so
// CRLF terminators survive the mirror untouched and data lines of any length
// pass through.
type TeeReader struct {
	src  *bufio.Reader
	dest io.Writer

	// current accumulates fields until a blank line dispatches the event.
	current *Event
	seen    bool
	done    bool
}

// NewTeeReader returns a TeeReader over src that mirrors all bytes to dest.
// dest is typically the write side of the pipe feeding the client response.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	return &TeeReader{
		src:     bufio.NewReader(src),
		dest:    dest,
		current: &Event{},
	}
}

// Next returns the next event in the stream, or nil, nil once the source is
// exhausted. Bytes are mirrored to dest as they are read, so by the time an
// event is returned its framing has already been forwarded.
func (r *TeeReader) Next() (*Event, error) {
	if r.done {
		return nil, nil
	}

	for {
		raw, err := r.src.ReadString('\n')

		// Mirror before parsing so the client copy never lags the parse.
		if raw != "" {
			if _, werr := io.WriteString(r.dest, raw); werr != nil {
				return nil, werr
			}
		}

		if err == io.EOF {
			r.done = true

			// A final line without a terminator still counts.
			if line := trimLineEnding(raw); line != "" {
				r.accumulate(line)
			}
			if r.seen {
				return r.flush(), nil
			}
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		line := trimLineEnding(raw)

		// A blank line dispatches the accumulated event. Blank lines with
		// nothing accumulated are keep-alive padding.
		if line == "" {
			if r.seen {
				return r.flush(), nil
			}
			continue
		}

		r.accumulate(line)
	}
}

// accumulate folds one field line into the event under construction.
// Comment lines (leading colon) only exist to keep the connection warm.
func (r *TeeReader) accumulate(line string) {
	if strings.HasPrefix(line, ":") {
		return
	}

	field, value, hasColon := strings.Cut(line, ":")
	if hasColon {
		// A single space after the colon is framing, not value.
		value = strings.TrimPrefix(value, " ")
	}

	switch field {
	case "data":
		if r.seen && r.current.Data != "" {
			// Successive data fields join with a newline.
			r.current.Data += "\n"
		}
		r.current.Data += value
	case "event":
		r.current.Type = value
	case "id":
		r.current.ID = value
	default:
		// retry and unrecognized fields carry nothing the relay needs.
		return
	}

	r.seen = true
}

// flush hands out the accumulated event and resets for the next one.
func (r *TeeReader) flush() *Event {
	ev := r.current
	r.current = &Event{}
	r.seen = false
	return ev
}

// trimLineEnding removes the trailing LF or CRLF from a raw line.
func trimLineEnding(raw string) string {
	raw = strings.TrimSuffix(raw, "\n")
	return strings.TrimSuffix(raw, "\r")
}
