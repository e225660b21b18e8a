package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/atelierhq/atelier/internal/events"
)

// keepAliveInterval is how often the stream emits an SSE comment so idle
// connections stay open through proxies.
const keepAliveInterval = 15 * time.Second

// EventsHandler streams broadcaster events to clients over SSE
type EventsHandler struct {
	broadcaster *events.Broadcaster
}

// NewEventsHandler creates a new events handler instance
func NewEventsHandler(broadcaster *events.Broadcaster) *EventsHandler {
	return &EventsHandler{broadcaster: broadcaster}
}

// StreamEvents subscribes the connection to the broadcaster and relays
// events as server-sent events until the client disconnects. The project_id
// query narrows the stream to one project.
func (h *EventsHandler) StreamEvents(c *fiber.Ctx) error {
	projectID := uint(c.QueryInt("project_id", 0))

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		sub := h.broadcaster.Subscribe()
		defer h.broadcaster.Unsubscribe(sub)

		keepAlive := time.NewTicker(keepAliveInterval)
		defer keepAlive.Stop()

		for {
			select {
			case event, ok := <-sub.C:
				if !ok {
					return
				}
				if projectID != 0 && event.ProjectID != projectID {
					continue
				}
				data, err := json.Marshal(event)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", event.ID, event.Type, data)
				if err := w.Flush(); err != nil {
					// Client went away.
					return
				}
			case <-keepAlive.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
