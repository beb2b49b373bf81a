package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// StateEvent is one message on a state stream.
type StateEvent[T any] struct {
	Stream string `json:"stream"`
	State  T      `json:"state"`
}

// streamState upgrades the request to a websocket, sends the current
// snapshot and then every published state until the client goes away.
// Messages from the client are ignored.
func streamState[T any](w http.ResponseWriter, r *http.Request, stream string, snapshot func() T, subscribe func(func(T)) func()) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		log.Printf("[events] %s: accept failed: %v", stream, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "state stream closed")

	ctx, cancel := context.WithCancel(c.CloseRead(r.Context()))
	defer cancel()

	updates := make(chan T, 1)
	unsubscribe := subscribe(func(s T) {
		select {
		case updates <- s:
		case <-ctx.Done():
		}
	})
	defer unsubscribe()

	if err := writeEvent(ctx, c, StateEvent[T]{Stream: stream, State: snapshot()}); err != nil {
		return
	}
	for {
		select {
		case s := <-updates:
			if err := writeEvent(ctx, c, StateEvent[T]{Stream: stream, State: s}); err != nil {
				log.Printf("[events] %s: write failed: %v", stream, err)
				return
			}
		case <-ctx.Done():
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, v any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
