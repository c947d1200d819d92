package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"

	applog "github.com/elpatron68/todo-web/internal/log"
	"github.com/elpatron68/todo-web/internal/tasks"
)

type renderPayload struct {
	Seq uint64 `json:"seq"`
}

type messagePayload struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
	TTL  int64  `json:"ttl"`
}

// handleEvents streams render and message events of the session's
// controller. The page re-fetches /tasks/list on every render event.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	rc := http.NewResponseController(w)
	// long-lived stream; the server write timeout must not end it
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cancel := c.Subscribe(16)
	defer cancel()

	if err := writeSSE(w, rc, "connected", renderPayload{Seq: c.View().Seq}); err != nil {
		applog.Warnf("events: streaming unsupported: %v", err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case ev, ok := <-events:
			if !ok {
				_ = writeSSE(w, rc, "close", map[string]string{"reason": "session closed"})
				return
			}
			var err error
			switch ev.Kind {
			case tasks.EventRender:
				err = writeSSE(w, rc, string(ev.Kind), renderPayload{Seq: ev.View.Seq})
			case tasks.EventMessage:
				err = writeSSE(w, rc, string(ev.Kind), messagePayload{
					Kind: string(ev.Message.Kind),
					Text: ev.Message.Text,
					TTL:  ev.Message.TTL(time.Now()),
				})
			}
			if err != nil {
				// client went away
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, rc *http.ResponseController, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}
