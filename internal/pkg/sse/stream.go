package sse

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

// EventConnected is the first event written on every stream
const EventConnected = "connected"

// Stream registers client on hub and writes its events to c until the
// request ends, or until last reports true for a delivered event.
// A heartbeat comment is written every keepAlive when keepAlive > 0.
func Stream(c *gin.Context, hub *Hub, client *Client, keepAlive time.Duration, last func(Event) bool) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	hub.Register(client)
	defer hub.Unregister(client)

	connected := Event{
		Type: EventConnected,
		Data: map[string]string{"client_id": client.ID, "resource": client.Resource},
	}
	if _, err := fmt.Fprint(c.Writer, connected.FormatSSE()); err != nil {
		return
	}
	c.Writer.Flush()

	var heartbeat <-chan time.Time
	if keepAlive > 0 {
		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	gone := c.Request.Context().Done()
	for {
		select {
		case <-gone:
			return

		case event, ok := <-client.Channel:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(c.Writer, event.FormatSSE()); err != nil {
				return
			}
			c.Writer.Flush()
			if last != nil && last(event) {
				return
			}

		case <-heartbeat:
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
