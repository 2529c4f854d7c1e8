package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

const eventsHeartbeat = 15 * time.Second

// handleEvents relaie les events du bus en SSE (run.completed, run.failed, feed.updated).
// ?topics=a,b restreint les topics relayés.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.bus == nil {
		http.Error(w, "events disabled", http.StatusServiceUnavailable)
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	events, cancel := s.bus.Subscribe(topics...)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(eventsHeartbeat)
	defer ticker.Stop()

	fmt.Fprintf(w, "event: hello\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			payload := evt.Payload
			if len(payload) == 0 {
				payload = []byte("{}")
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Topic, payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, "event: ping\ndata: {}\n\n")
			flusher.Flush()
		}
	}
}
