package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

var sseHeaders = map[string]string{
	"Content-Type":                "text/event-stream",
	"Cache-Control":               "no-cache",
	"Connection":                  "keep-alive",
	"Access-Control-Allow-Origin": "*",
}

// SSEWriter streams pipeline progress to a client as Server-Sent Events.
// Once a write fails the writer goes inert; the client is gone and the
// pipeline callback should not start erroring because of it.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	dead    bool
}

func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	for k, v := range sseHeaders {
		w.Header().Set(k, v)
	}
	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent marshals data and emits it under the named event type.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	if s.dead {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		s.dead = true
		return err
	}
	s.flusher.Flush()
	return nil
}

func (s *SSEWriter) WriteError(message string) {
	s.WriteEvent("error", map[string]string{"error": message}) //nolint:errcheck
}

// WriteComplete is the terminal event of a processing stream.
func (s *SSEWriter) WriteComplete(documentID, status string) {
	s.WriteEvent("complete", map[string]string{ //nolint:errcheck
		"document_id": documentID,
		"status":      status,
	})
}
