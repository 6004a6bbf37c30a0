package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/proxwake/proxwake/internal/api/response"
	"github.com/proxwake/proxwake/internal/events"
)

// sseHeartbeatInterval keeps intermediaries from closing idle streams.
const sseHeartbeatInterval = 15 * time.Second

// EventsHandler streams engine events to UI clients over Server-Sent Events.
type EventsHandler struct {
	publisher *events.MemoryPublisher
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(publisher *events.MemoryPublisher) *EventsHandler {
	return &EventsHandler{publisher: publisher}
}

// Stream handles GET /v1/events - a live SSE feed of transition and status
// events. The connection stays open until the client disconnects.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalError(w, r, "streaming unsupported")
		return
	}

	ch, cancel := h.publisher.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			flusher.Flush()
		}
	}
}
