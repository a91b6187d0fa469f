package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/live"
)

const sseEventName = "transactions"

// handleEvents streams transaction changes as server-sent events. Signed-in
// viewers asking for scope=user get their own changes; everyone else gets
// public expense changes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.hub == nil {
		http.Error(w, "Live updates unavailable", http.StatusServiceUnavailable)
		return
	}

	key := live.Public
	scope := "public"
	if id, ok := auth.FromContext(r.Context()); ok && r.URL.Query().Get("scope") == "user" {
		key = id.UserID
		scope = "user"
	}

	events, cancel := s.hub.Subscribe(key)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "retry: 5000\n\n")
	flusher.Flush()

	s.logger.DebugContext(r.Context(), "Event stream opened", "scope", scope)
	defer s.logger.DebugContext(r.Context(), "Event stream closed", "scope", scope)

	ticker := time.NewTicker(s.opts.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.streamsDone:
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case e, open := <-events:
			if !open {
				return
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e live.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", sseEventName, data)
	return err
}
