package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"bingetracker/internal/auth"
	"bingetracker/models"
)

func TestBingeEventsStreamSnapshotThenUpdates(t *testing.T) {
	h := newBingesHandler(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Events(w, r.WithContext(auth.WithUser(r.Context(), "u1", "t1")))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")

	type event struct {
		Stream string `json:"stream"`
		State  struct {
			Sort   string `json:"sort"`
			Filter string `json:"filter"`
		} `json:"state"`
	}

	var first event
	if err := wsjson.Read(ctx, c, &first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Stream != "binges" || first.State.Sort != string(models.BingeSortAlphabetical) {
		t.Fatalf("unexpected snapshot: %+v", first)
	}

	if _, err := h.hub.For("u1").UpdateSort(models.BingeSortProgress); err != nil {
		t.Fatalf("update sort: %v", err)
	}

	var next event
	if err := wsjson.Read(ctx, c, &next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.State.Sort != string(models.BingeSortProgress) {
		t.Fatalf("expected PROGRESS sort pushed, got %+v", next)
	}
}
