package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bnema/ytwav/internal/domain"
	"github.com/bnema/ytwav/internal/service"
)

const keepAliveInterval = 15 * time.Second

type SSEHandler struct {
	eventBus  *service.EventBus
	keepAlive time.Duration
}

func NewSSEHandler(eventBus *service.EventBus) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		keepAlive: keepAliveInterval,
	}
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendComment writes an SSE comment line, used to open the stream and keep it alive.
func sendComment(w http.ResponseWriter, text string) {
	_, _ = fmt.Fprintf(w, ": %s\n\n", text)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func isTerminal(event service.Event) bool {
	return event.Status == string(domain.JobStateReady) || event.Status == string(domain.JobStateFailed)
}

// Events streams the state changes published for one ticket. Tickets are
// chosen by the browser before it submits, so the stream is usually open
// before the job starts.
func (h *SSEHandler) Events() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ticket := r.PathValue("ticket")
		if !ticketPattern.MatchString(ticket) {
			http.Error(w, "Invalid ticket", http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch := h.eventBus.Subscribe(ticket)
		defer h.eventBus.Unsubscribe(ticket, ch)

		sendComment(w, "connected")

		ctx := r.Context()
		keepAlive := time.NewTicker(h.keepAlive)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendComment(w, "keep-alive")
			case event, ok := <-ch:
				if !ok {
					return
				}
				data, err := json.Marshal(event)
				if err != nil {
					return
				}
				sseWrite(w, event.Type, string(data))

				// Let client close connection when terminal
				if isTerminal(event) {
					<-ctx.Done()
					return
				}
			}
		}
	}
}
