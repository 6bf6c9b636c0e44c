// Package sse parses Server-Sent Events out of a stream that is being
// relayed verbatim to a client. The TeeReader mirrors every raw byte to
// its destination before parsing, so the downstream copy is never
// altered by what the parser understands. It is a read-side tool only;
// there is no event writer here.
//
// Field semantics follow the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

// Event is one parsed SSE event. Events end at a blank line in the
// source stream.
type Event struct {
	// Type holds the "event:" field. Empty means the default "message"
	// type per the SSE spec.
	Type string

	// Data holds every "data:" line of the event, newline-joined when
	// there is more than one.
	Data string

	// ID holds the most recent "id:" field, if any.
	ID string
}

// IsDone reports whether the event is the OpenAI-style "[DONE]" terminal
// sentinel that closes a completion stream.
func (e *Event) IsDone() bool {
	return e.Data == "[DONE]"
}
