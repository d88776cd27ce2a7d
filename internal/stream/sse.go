package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SetSSEHeaders prepares w for an event stream.
func SetSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// WriteSSE forwards events to w, one "data:" frame each, until the channel
// closes or a write fails.
func WriteSSE(w http.ResponseWriter, events <-chan Event) error {
	flusher, _ := w.(http.Flusher)

	for ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("WriteSSE: encoding %s event: %w", ev.Type, err)
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return fmt.Errorf("WriteSSE: writing %s event: %w", ev.Type, err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}
