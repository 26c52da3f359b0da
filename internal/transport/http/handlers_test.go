package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dataO1/hush-fm/internal/config"
	"github.com/dataO1/hush-fm/internal/core"
	"github.com/dataO1/hush-fm/internal/playback"
	"github.com/dataO1/hush-fm/internal/tokens"
)

func testLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

type testEnv struct {
	ts       *httptest.Server
	registry *core.Registry
	binder   *core.Binder
	relay    *core.Relay
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}

	logger := testLogger()
	registry := core.NewRegistry(logger)
	binder := core.NewBinder(logger)
	directory := core.NewDirectory(registry, binder, cfg.StaleWindow, logger)
	relay := core.NewRelay(binder, logger)
	presence := core.NewPresence(registry, directory, logger)

	catalog := playback.NewCatalog()
	format := playback.Format{
		SampleRate:    cfg.SampleRate,
		Channels:      cfg.Channels,
		FrameDuration: cfg.FrameDuration,
	}
	engine := playback.NewEngine(format, playback.OpenPCM, func(frame playback.Frame) {
		directory.BroadcastFrame(frame.Room, frame.Encode())
	}, logger)
	directory.SetCloseHook(engine.Close)

	tok := tokens.New(cfg.LiveKitURL, cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	api := NewAPI(registry, directory, presence, tok, &cfg, logger)
	ws := NewWSHandler(registry, directory, relay, binder, engine, catalog, &cfg, logger)
	server := NewServer(api, ws, &cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		ts.Close()
		engine.Shutdown()
	})

	return &testEnv{ts: ts, registry: registry, binder: binder, relay: relay}
}

func (e *testEnv) post(t *testing.T, path string, body any) (int, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(e.ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response from %s: %v", path, err)
	}
	return resp.StatusCode, out
}

func (e *testEnv) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response from %s: %v", path, err)
	}
	return resp.StatusCode, out
}

func (e *testEnv) identify(t *testing.T, name string) string {
	t.Helper()
	status, body := e.post(t, "/api/identify", map[string]any{"name": name})
	if status != http.StatusOK {
		t.Fatalf("identify: status %d body %v", status, body)
	}
	id, _ := body["client_id"].(string)
	if id == "" {
		t.Fatalf("identify returned no client_id: %v", body)
	}
	return id
}

func (e *testEnv) createRoom(t *testing.T, clientID, name string) string {
	t.Helper()
	status, body := e.post(t, "/api/rooms", map[string]any{"client_id": clientID, "name": name})
	if status != http.StatusOK {
		t.Fatalf("create room: status %d body %v", status, body)
	}
	roomID, _ := body["room_id"].(string)
	if roomID == "" {
		t.Fatalf("create room returned no room_id: %v", body)
	}
	return roomID
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}
}

func TestIdentifyResume(t *testing.T) {
	env := newTestEnv(t, nil)

	id := env.identify(t, "Dana")

	status, body := env.post(t, "/api/identify", map[string]any{"client_id": id})
	if status != http.StatusOK {
		t.Fatalf("resume: status %d", status)
	}
	if body["client_id"] != id || body["name"] != "Dana" {
		t.Fatalf("resume should return the same identity: %v", body)
	}

	// An unknown client_id falls through to a fresh identity.
	status, body = env.post(t, "/api/identify", map[string]any{"client_id": "no-such-id"})
	if status != http.StatusOK {
		t.Fatalf("fallthrough: status %d", status)
	}
	if body["client_id"] == "no-such-id" {
		t.Fatal("unknown ids must not be adopted")
	}
}

func TestRoomLifecycleOverREST(t *testing.T) {
	env := newTestEnv(t, nil)

	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Friday Night")

	// Creation is idempotent per DJ.
	status, body := env.post(t, "/api/rooms", map[string]any{"client_id": dj, "name": "Other"})
	if status != http.StatusOK || body["room_id"] != roomID || body["existing"] != true {
		t.Fatalf("second create should reuse room: status %d body %v", status, body)
	}

	status, body = env.get(t, "/api/rooms")
	if status != http.StatusOK {
		t.Fatalf("list rooms: status %d", status)
	}
	rooms, _ := body["rooms"].([]any)
	if len(rooms) != 1 {
		t.Fatalf("expected one room, got %v", body)
	}
	summary := rooms[0].(map[string]any)
	if summary["id"] != roomID || summary["name"] != "Friday Night" || summary["dj_online"] != true {
		t.Fatalf("unexpected summary: %v", summary)
	}

	// A rival DJ cannot take over the booth.
	rival := env.identify(t, "rival")
	status, _ = env.post(t, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]any{"client_id": rival, "role": "dj"})
	if status != http.StatusConflict {
		t.Fatalf("rival dj join should 409, got %d", status)
	}

	listener := env.identify(t, "fan")
	status, body = env.post(t, fmt.Sprintf("/api/rooms/%s/join", roomID), map[string]any{"client_id": listener})
	if status != http.StatusOK || body["name"] != "Friday Night" {
		t.Fatalf("listener join: status %d body %v", status, body)
	}

	_, body = env.get(t, "/api/rooms")
	summary = body["rooms"].([]any)[0].(map[string]any)
	if summary["listener_count"] != float64(1) {
		t.Fatalf("expected one listener, got %v", summary)
	}

	// Listener cannot close the room.
	status, _ = env.post(t, fmt.Sprintf("/api/rooms/%s/close", roomID), map[string]any{"client_id": listener})
	if status != http.StatusForbidden {
		t.Fatalf("listener close should 403, got %d", status)
	}

	status, _ = env.post(t, fmt.Sprintf("/api/rooms/%s/leave", roomID), map[string]any{"client_id": listener})
	if status != http.StatusOK {
		t.Fatalf("listener leave: status %d", status)
	}

	status, _ = env.post(t, fmt.Sprintf("/api/rooms/%s/close", roomID), map[string]any{"client_id": dj})
	if status != http.StatusOK {
		t.Fatalf("dj close: status %d", status)
	}

	_, body = env.get(t, "/api/rooms")
	if rooms, _ := body["rooms"].([]any); len(rooms) != 0 {
		t.Fatalf("room should be gone, got %v", body)
	}
}

func TestJoinUnknownRoomIs404(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.identify(t, "")

	status, _ := env.post(t, "/api/rooms/deadbeef/join", map[string]any{"client_id": id})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestCloseValidatesIdentityBeforeRoom(t *testing.T) {
	env := newTestEnv(t, nil)

	// Unknown identity reads as 400 even against an unknown room.
	status, _ := env.post(t, "/api/rooms/deadbeef/close", map[string]any{"client_id": "ghost"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown identity, got %d", status)
	}

	id := env.identify(t, "")
	status, _ = env.post(t, "/api/rooms/deadbeef/close", map[string]any{"client_id": id})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", status)
	}
}

func TestCreateRoomRequiresClientID(t *testing.T) {
	env := newTestEnv(t, nil)

	status, _ := env.post(t, "/api/rooms", map[string]any{"name": "No Owner"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}

	status, _ = env.post(t, "/api/rooms", map[string]any{"client_id": "ghost"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown identity, got %d", status)
	}
}

func TestHeartbeat(t *testing.T) {
	env := newTestEnv(t, nil)
	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")

	status, body := env.post(t, "/api/presence", map[string]any{
		"client_id": dj, "room_id": roomID, "role": "dj",
	})
	if status != http.StatusOK || body["ok"] != true {
		t.Fatalf("heartbeat: status %d body %v", status, body)
	}

	status, _ = env.post(t, "/api/presence", map[string]any{})
	if status != http.StatusBadRequest {
		t.Fatalf("heartbeat without client_id should 400, got %d", status)
	}
}

func TestTokenEndpointUnconfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")

	status, body := env.post(t, "/api/token", map[string]any{
		"client_id": dj, "room_id": roomID, "role": "dj",
	})
	if status != http.StatusInternalServerError {
		t.Fatalf("unconfigured relay should 500, got %d body %v", status, body)
	}
}

func TestTokenEndpointMintsWhenConfigured(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.LiveKitURL = "wss://lk.example.com"
		cfg.LiveKitAPIKey = "APIabcdef"
		cfg.LiveKitAPISecret = "superdupersecretvalue1234567890ab"
	})
	dj := env.identify(t, "dj")
	roomID := env.createRoom(t, dj, "Disco")

	status, body := env.post(t, "/api/token", map[string]any{
		"client_id": dj, "room_id": roomID, "role": "dj",
	})
	if status != http.StatusOK {
		t.Fatalf("token: status %d body %v", status, body)
	}
	if body["url"] != "wss://lk.example.com" {
		t.Fatalf("token response should carry the relay url: %v", body)
	}
	if token, _ := body["token"].(string); token == "" {
		t.Fatalf("expected a minted token: %v", body)
	}

	// Unknown room is a 404, unknown identity a 400.
	status, _ = env.post(t, "/api/token", map[string]any{"client_id": dj, "room_id": "deadbeef"})
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown room, got %d", status)
	}
	status, _ = env.post(t, "/api/token", map[string]any{"client_id": "ghost", "room_id": roomID})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown identity, got %d", status)
	}
}

func TestIceConfig(t *testing.T) {
	env := newTestEnv(t, nil)

	status, body := env.get(t, "/config")
	if status != http.StatusOK {
		t.Fatalf("config: status %d", status)
	}
	servers, _ := body["iceServers"].([]any)
	if len(servers) != 2 {
		t.Fatalf("expected the two STUN defaults, got %v", body)
	}
}

func TestIceConfigWithTURN(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.TURNURLs = "turn:turn.example.com:3478, turns:turn.example.com:5349"
		cfg.TURNUsername = "user"
		cfg.TURNCredential = "pass"
	})

	_, body := env.get(t, "/config")
	servers, _ := body["iceServers"].([]any)
	if len(servers) != 3 {
		t.Fatalf("expected STUN defaults plus TURN, got %v", body)
	}
	turn := servers[2].(map[string]any)
	urls, _ := turn["urls"].([]any)
	if len(urls) != 2 || turn["username"] != "user" {
		t.Fatalf("unexpected TURN entry: %v", turn)
	}
}
