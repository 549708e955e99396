// Package sse reads and writes server-sent event streams.
//
// Reading splits the stream into events with the r3labs/sse event scanner and
// decodes the id, event and data fields. Writing frames JSON payloads as
// "data:" events and emits keepalive comments so idle proxies do not close
// long-running responses.
package sse

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	r3sse "github.com/r3labs/sse/v2"
)

// DefaultMaxEventSize bounds a single decoded event.
const DefaultMaxEventSize = 1 << 20

// Done is the data payload that terminates OpenAI-style streams.
const Done = "[DONE]"

// Event is one decoded server-sent event.
type Event struct {
	ID   string
	Name string
	Data []byte
}

// Reader decodes events from a stream.
type Reader struct {
	r *r3sse.EventStreamReader
}

// NewReader creates a Reader over r with DefaultMaxEventSize.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r3sse.NewEventStreamReader(r, DefaultMaxEventSize)}
}

// Next returns the next event carrying data. Comment-only and empty events
// are skipped. It returns io.EOF at the end of the stream.
func (r *Reader) Next() (Event, error) {
	for {
		raw, err := r.r.ReadEvent()
		if err != nil {
			return Event{}, err
		}

		ev := parseEvent(raw)
		if len(ev.Data) > 0 {
			return ev, nil
		}
	}
}

// Each calls fn with every data event until the stream ends, fn returns an
// error, or a "[DONE]" payload arrives.
func Each(r io.Reader, fn func(Event) error) error {
	rd := NewReader(r)
	for {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("sse: read event: %w", err)
		}
		if string(ev.Data) == Done {
			return nil
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

func parseEvent(raw []byte) Event {
	var (
		ev   Event
		data [][]byte
	)

	for _, line := range bytes.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if len(line) == 0 || line[0] == ':' {
			continue
		}

		field, value, _ := bytes.Cut(line, []byte(":"))
		value = bytes.TrimPrefix(value, []byte(" "))

		switch string(field) {
		case "data":
			data = append(data, value)
		case "event":
			ev.Name = string(value)
		case "id":
			ev.ID = string(value)
		}
	}

	if len(data) > 0 {
		ev.Data = bytes.Join(data, []byte("\n"))
	}
	return ev
}

// Writer frames events onto an HTTP response. It is safe for concurrent use.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	nextID  int
}

// NewWriter sets the event-stream headers on w and returns a Writer. It fails
// if w cannot flush.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("sse: streaming unsupported (http.Flusher missing)")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Writer{w: w, flusher: flusher, nextID: 1}, nil
}

// Data writes one data event and flushes it.
func (w *Writer) Data(payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.w, "id: %d\ndata: %s\n\n", w.nextID, payload); err != nil {
		return err
	}
	w.nextID++
	w.flusher.Flush()
	return nil
}

// Done writes the "[DONE]" terminator.
func (w *Writer) Done() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.w, "data: %s\n\n", Done); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// Comment writes a comment line, which clients ignore.
func (w *Writer) Comment(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := fmt.Fprintf(w.w, ": %s\n\n", text); err != nil {
		return err
	}
	w.flusher.Flush()
	return nil
}

// KeepAlive writes a keepalive comment every interval until stop is closed.
func (w *Writer) KeepAlive(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if err := w.Comment("keepalive " + now.Format(time.RFC3339)); err != nil {
				return
			}
		}
	}
}
