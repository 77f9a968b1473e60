// Package stream frames pipeline events for delivery to the client.
// The wire format is Server-Sent Events: each event is one JSON object
// with a "type" of chunk, done or error, flushed to the socket as soon
// as it is written.  Exactly one terminal event (done or error) closes
// a stream.
package stream

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
)

// Event is the discriminated record written for every SSE frame.
// Chunk events carry Content and an increasing Seq; error events carry
// a human-readable Message.
type Event struct {
	Type      string `json:"type"`
	Content   string `json:"content,omitempty"`
	Seq       int    `json:"seq,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

// SSE writes pipeline events onto an Echo response as an SSE stream.
// Every event is flushed immediately; buffering here would defeat
// incremental delivery.  An optional per-event delay paces the output
// for presentation; it defaults to zero and has no correctness role.
type SSE struct {
	resp  *echo.Response
	delay time.Duration
}

// NewSSE prepares the response for event streaming and returns the
// writer.  The headers disable client and proxy buffering.
func NewSSE(c echo.Context, delay time.Duration) *SSE {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // stop nginx from buffering the stream
	c.Response().WriteHeader(200)
	return &SSE{resp: c.Response(), delay: delay}
}

// Chunk emits one fragment event.
func (s *SSE) Chunk(seq int, content string) error {
	err := s.write(Event{
		Type:      EventChunk,
		Content:   content,
		Seq:       seq,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return nil
}

// Done emits the terminal success event.
func (s *SSE) Done() error {
	return s.write(Event{Type: EventDone})
}

// Error emits the terminal error event with an opaque message.
func (s *SSE) Error(msg string) error {
	return s.write(Event{Type: EventError, Message: msg})
}

func (s *SSE) write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.resp, "data: %s\n\n", data); err != nil {
		return err
	}
	s.resp.Flush()
	return nil
}
