package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dial connects a websocket client to a test server serving the hub under
// the given identity.
func dial(t *testing.T, hub *Hub, identity string) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, identity)
	}))

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return ws, func() {
		ws.Close()
		srv.Close()
	}
}

func readEnvelope(t *testing.T, ws *websocket.Conn) Envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

func waitForIdentity(t *testing.T, hub *Hub, identity string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, id := range hub.ConnectedIdentities() {
			if id == identity {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("identity %q never registered", identity)
}

func TestSendToReachesOnlyTarget(t *testing.T) {
	hub := NewHub(nil)

	ada, closeAda := dial(t, hub, "user-ada")
	defer closeAda()
	grace, closeGrace := dial(t, hub, "user-grace")
	defer closeGrace()

	waitForIdentity(t, hub, "user-ada")
	waitForIdentity(t, hub, "user-grace")

	hub.SendTo("user-ada", EventXPGain, XPGainPayload{Amount: 150, NewXP: 150, Level: 1})

	env := readEnvelope(t, ada)
	if env.Event != EventXPGain {
		t.Fatalf("event = %q, want %q", env.Event, EventXPGain)
	}

	_ = grace.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var stray Envelope
	if err := grace.ReadJSON(&stray); err == nil {
		t.Fatalf("untargeted client received %+v", stray)
	}
}

func TestBroadcastReachesEveryConnection(t *testing.T) {
	hub := NewHub(nil)

	ada, closeAda := dial(t, hub, "user-ada")
	defer closeAda()
	grace, closeGrace := dial(t, hub, "user-grace")
	defer closeGrace()

	waitForIdentity(t, hub, "user-ada")
	waitForIdentity(t, hub, "user-grace")

	hub.Broadcast(EventNewMessage, MessagePayload{Text: "hello room"})

	for _, ws := range []*websocket.Conn{ada, grace} {
		env := readEnvelope(t, ws)
		if env.Event != EventNewMessage {
			t.Fatalf("event = %q, want %q", env.Event, EventNewMessage)
		}
	}
}

func TestInboundChatMessageDispatch(t *testing.T) {
	hub := NewHub(nil)

	type inbound struct {
		sender, text, receiver string
	}
	got := make(chan inbound, 1)
	hub.OnChatMessage(func(sender, text, receiver string) {
		got <- inbound{sender, text, receiver}
	})

	ws, closeWS := dial(t, hub, "user-ada")
	defer closeWS()
	waitForIdentity(t, hub, "user-ada")

	frame := map[string]any{
		"event": EventChatMessage,
		"data":  map[string]any{"sender": "ada", "text": "hi", "receiver": "grace"},
	}
	if err := ws.WriteJSON(frame); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case in := <-got:
		if in.sender != "ada" || in.text != "hi" || in.receiver != "grace" {
			t.Fatalf("dispatched %+v", in)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chat handler never invoked")
	}
}

func TestInboundSenderDefaultsToConnectionIdentity(t *testing.T) {
	hub := NewHub(nil)

	got := make(chan string, 1)
	hub.OnChatMessage(func(sender, _, _ string) { got <- sender })

	ws, closeWS := dial(t, hub, "user-ada")
	defer closeWS()
	waitForIdentity(t, hub, "user-ada")

	raw, _ := json.Marshal(map[string]any{
		"event": EventChatMessage,
		"data":  map[string]any{"text": "no explicit sender"},
	})
	if err := ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case sender := <-got:
		if sender != "user-ada" {
			t.Fatalf("sender = %q, want connection identity", sender)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("chat handler never invoked")
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	hub := NewHub(nil)

	_, closeWS := dial(t, hub, "user-ada")
	waitForIdentity(t, hub, "user-ada")
	closeWS()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(hub.ConnectedIdentities()) == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("identities after disconnect: %v", hub.ConnectedIdentities())
}
