package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/dataO1/hush-fm/internal/proto"
)

func dialWS(ctx context.Context, t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	wsURL := strings.Replace(env.ts.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

func register(ctx context.Context, t *testing.T, conn *websocket.Conn, clientID, roomID string) {
	t.Helper()
	msg := proto.Inbound{Type: proto.TypeRegister, ClientID: clientID, RoomID: roomID}
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		t.Fatalf("write register: %v", err)
	}
}

func readMsg(ctx context.Context, t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

func TestWebSocketRegisterDeliversRoomState(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")
	listener := env.identify(t, "fan")
	env.post(t, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]any{"client_id": listener})

	conn := dialWS(ctx, t, env)
	register(ctx, t, conn, listener, roomID)

	msg := readMsg(ctx, t, conn)
	if msg["type"] != proto.TypeRoomState || msg["room_id"] != roomID {
		t.Fatalf("expected room_state snapshot, got %v", msg)
	}
	clients, _ := msg["clients"].([]any)
	if len(clients) != 2 {
		t.Fatalf("expected dj and listener in snapshot, got %v", clients)
	}
}

func TestWebSocketRegisterUnknownIdentity(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialWS(ctx, t, env)
	register(ctx, t, conn, "ghost", "")

	msg := readMsg(ctx, t, conn)
	if msg["type"] != proto.TypeError || msg["code"] != "unknown_identity" {
		t.Fatalf("expected unknown_identity error, got %v", msg)
	}
}

func TestWebSocketLobbyRegisterPushesRoomUpdates(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dj := env.identify(t, "dj")
	env.createRoom(t, dj, "Disco")

	watcher := env.identify(t, "watcher")
	conn := dialWS(ctx, t, env)
	register(ctx, t, conn, watcher, "")

	msg := readMsg(ctx, t, conn)
	if msg["type"] != proto.TypeRoomUpdate {
		t.Fatalf("expected initial room_update, got %v", msg)
	}
	rooms, _ := msg["rooms"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("expected one room in update, got %v", msg)
	}

	// A second room appearing reaches the lobby watcher as a fresh update.
	other := env.identify(t, "other-dj")
	env.createRoom(t, other, "Second Room")

	msg = readMsg(ctx, t, conn)
	if msg["type"] != proto.TypeRoomUpdate {
		t.Fatalf("expected pushed room_update, got %v", msg)
	}
	if rooms, _ := msg["rooms"].([]any); len(rooms) != 2 {
		t.Fatalf("expected two rooms in pushed update, got %v", msg)
	}
}

func TestWebSocketBufferedSignalsFlushBeforeSnapshot(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")
	listener := env.identify(t, "fan")
	env.post(t, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]any{"client_id": listener})

	djConn := dialWS(ctx, t, env)
	register(ctx, t, djConn, dj, roomID)
	readMsg(ctx, t, djConn) // dj's own room_state

	// Offer sent while the listener has no transport yet gets buffered.
	offer := proto.Inbound{Type: proto.TypeOffer, To: listener, Payload: []byte(`{"sdp":"v=0"}`)}
	if err := wsjson.Write(ctx, djConn, offer); err != nil {
		t.Fatalf("write offer: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for env.relay.PendingCount(listener) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("offer never reached the relay buffer")
		}
		time.Sleep(5 * time.Millisecond)
	}

	listenerConn := dialWS(ctx, t, env)
	register(ctx, t, listenerConn, listener, roomID)

	// Buffered signals drain ahead of the registration snapshot.
	first := readMsg(ctx, t, listenerConn)
	if first["type"] != proto.TypeOffer || first["from"] != dj {
		t.Fatalf("expected flushed offer first, got %v", first)
	}
	second := readMsg(ctx, t, listenerConn)
	if second["type"] != proto.TypeRoomState {
		t.Fatalf("expected room_state after flush, got %v", second)
	}
}

func TestWebSocketDJDisconnectClosesRoom(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")
	listener := env.identify(t, "fan")
	env.post(t, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]any{"client_id": listener})

	djConn := dialWS(ctx, t, env)
	register(ctx, t, djConn, dj, roomID)
	readMsg(ctx, t, djConn)

	listenerConn := dialWS(ctx, t, env)
	register(ctx, t, listenerConn, listener, roomID)
	if msg := readMsg(ctx, t, listenerConn); msg["type"] != proto.TypeRoomState {
		t.Fatalf("expected room_state, got %v", msg)
	}

	djConn.Close(websocket.StatusNormalClosure, "done")

	msg := readMsg(ctx, t, listenerConn)
	if msg["type"] != proto.TypeRoomClosed || msg["room_id"] != roomID {
		t.Fatalf("expected room_closed after DJ disconnect, got %v", msg)
	}

	status, _ := env.get(t, "/api/rooms")
	if status != http.StatusOK {
		t.Fatalf("list rooms: %d", status)
	}
}

func TestWebSocketPlaybackRequiresDJ(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")
	listener := env.identify(t, "fan")
	env.post(t, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]any{"client_id": listener})

	conn := dialWS(ctx, t, env)
	register(ctx, t, conn, listener, roomID)
	readMsg(ctx, t, conn) // room_state

	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.TypePlay}); err != nil {
		t.Fatalf("write play: %v", err)
	}

	msg := readMsg(ctx, t, conn)
	if msg["type"] != proto.TypeError || msg["code"] != "forbidden" {
		t.Fatalf("listener play should be forbidden, got %v", msg)
	}
}
