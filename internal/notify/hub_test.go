package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sofemci/predictive/internal/database"
	"github.com/sofemci/predictive/internal/services"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub()
	stop := make(chan struct{})
	go hub.Run(stop)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	t.Cleanup(func() {
		close(stop)
		srv.Close()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastsAlertEvents(t *testing.T) {
	hub, srv := startHub(t)
	a := dial(t, srv)
	b := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.NotifyAlert(context.Background(), alertEvent(services.AlertCreated, database.AlertLevelCritical))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if msg.Type != "alert" {
			t.Errorf("type = %q, want alert", msg.Type)
		}
		if msg.Payload.Kind != services.AlertCreated || msg.Payload.MachineNumber != "EXT-07" {
			t.Errorf("payload = %+v", msg.Payload)
		}
		if msg.Payload.Alert.Level != database.AlertLevelCritical {
			t.Errorf("level = %q, want critique", msg.Payload.Alert.Level)
		}
	}
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_NotifyWithoutRunDoesNotBlock(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer*2; i++ {
			hub.NotifyAlert(context.Background(), alertEvent(services.AlertUpdated, database.AlertLevelInfo))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("NotifyAlert blocked on a saturated hub")
	}
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub()
	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		hub.Run(stop)
		close(finished)
	}()
	close(stop)
	<-finished

	client := &Client{Hub: hub, Send: make(chan []byte, 1)}
	hub.Register(client)
	if _, ok := <-client.Send; ok {
		t.Error("send channel should be closed for a client registered after stop")
	}
}
