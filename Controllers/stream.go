package Controllers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// heartbeatInterval keeps proxies from closing idle event streams.
var heartbeatInterval = 25 * time.Second

// stream switches the response to server-sent events. It sends first, then
// every snapshot from changes, and calls release once the client goes away.
func stream[T any](ctx *fiber.Ctx, first []T, changes <-chan []T, release func()) error {
	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer release()
		if err := writeSnapshots(w, first, changes, heartbeatInterval, nil); err != nil {
			log.Printf("Event stream closed: %v", err)
		}
	}))
	return nil
}

// writeSnapshots writes SSE frames until a write fails, changes closes or
// done fires.
func writeSnapshots[T any](w *bufio.Writer, first []T, changes <-chan []T, heartbeat time.Duration, done <-chan struct{}) error {
	if err := writeEvent(w, "snapshot", first); err != nil {
		return err
	}

	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return nil
		case snap, ok := <-changes:
			if !ok {
				return nil
			}
			if err := writeEvent(w, "snapshot", snap); err != nil {
				return err
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
	}
}

func writeEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}
