package kot_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"restaurant-pos/internal/sse"
)

// heartbeatEvery keeps idle kitchen displays connected through proxies.
var heartbeatEvery = 25 * time.Second

// Stream pushes KOT events for ?station= (all stations when empty) as
// Server-Sent Events until the client disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	station := strings.ToLower(r.URL.Query().Get("station"))
	if station == "" {
		station = sse.AllStations
	}

	setupSSEHeaders(w)

	ctx := r.Context()
	eventChan := h.KOTs.Emitter.Subscribe(ctx, station)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"station\":%q}\n\n", station)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Kitchen display connected to station %s", station))

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case ev, ok := <-eventChan:
			if !ok {
				return
			}
			jsonData, err := json.Marshal(ev)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize kot event: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, jsonData)
			flusher.Flush()

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Kitchen display disconnected from station %s", station))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}
