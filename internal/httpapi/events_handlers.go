package httpapi

import (
	"fmt"
	"net/http"

	"jobcast-engine/internal/events"
)

type EventsHandler struct {
	Hub *events.Hub
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "streaming unsupported")
		return
	}

	ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(ch)

	write := func(e events.Event) {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, e.JSON())
		flusher.Flush()
	}
	write(events.Make("", "ping", nil))

	for {
		select {
		case <-r.Context().Done():
			return
		case e := <-ch:
			write(e)
		}
	}
}
