package gateway

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestHubDeliversBroadcasts(t *testing.T) {
	t.Parallel()

	hub := NewHub(discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		_ = hub.Run(ctx)
	}()
	defer cancel()

	configureGin()
	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", wsURL, err)
	}
	defer conn.Close()

	frames := make(chan []byte, 16)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			frames <- data
		}
	}()

	// Registration races the first broadcast; a broadcast before the
	// client lands in the hub's set fans out to nobody. Keep sending
	// until a frame comes back.
	var frame []byte
	deadline := time.After(5 * time.Second)
broadcastLoop:
	for {
		hub.Broadcast(Event{Type: "presence", PeerID: 100, Data: map[string]any{"online": true}})
		select {
		case frame = <-frames:
			break broadcastLoop
		case err := <-readErr:
			t.Fatalf("connection failed before a frame arrived: %v", err)
		case <-deadline:
			t.Fatal("no frame arrived within the deadline")
		case <-time.After(20 * time.Millisecond):
		}
	}

	var ev Event
	if err := json.Unmarshal(frame, &ev); err != nil {
		t.Fatalf("failed to decode frame %q: %v", frame, err)
	}
	if ev.Type != "presence" {
		t.Errorf("expected: %q, actual: %q", "presence", ev.Type)
	}
	if ev.PeerID != 100 {
		t.Errorf("expected peer 100, actual: %d", ev.PeerID)
	}

	// Stopping the hub closes every client from the server side; the
	// reader sees that as an error after draining queued frames.
	cancel()
	<-hubDone

	closeDeadline := time.After(5 * time.Second)
	for {
		select {
		case <-readErr:
			return
		case <-frames:
		case <-closeDeadline:
			t.Fatal("connection did not close after the hub stopped")
		}
	}
}
