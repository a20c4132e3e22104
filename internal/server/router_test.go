package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/handlers"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/realtime"
	"github.com/yungbote/senseboard-backend/internal/rooms"
	"github.com/yungbote/senseboard-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("quiet")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// testStack wires the deterministic stack (no provider agent) behind the
// real router.
func testStack(t *testing.T) (*gin.Engine, *rooms.Store, *ai.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := mustTestLogger(t)
	store := rooms.NewStore(log)
	hub := realtime.NewHub(log)
	engine := ai.NewEngine(config.Config{}, ai.EngineDeps{
		Store: store,
		Hub:   hub,
	}, log)
	t.Cleanup(engine.Close)

	router := NewRouter(RouterConfig{
		HealthHandler:          handlers.NewHealthHandler(),
		PreflightHandler:       handlers.NewPreflightHandler(log, engine),
		RoomHandler:            handlers.NewRoomHandler(log, store, engine),
		AIPatchHandler:         handlers.NewAIPatchHandler(log, engine),
		TranscribeHandler:      handlers.NewTranscribeHandler(log, store, engine, nil, nil),
		PersonalBoardHandler:   handlers.NewPersonalBoardHandler(log, engine),
		PersonalizationHandler: handlers.NewPersonalizationHandler(log, nil),
		WSHandler:              handlers.NewWSHandler(log, store, engine, hub),
	})
	return router, store, engine
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var out map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func TestHealthShape(t *testing.T) {
	router, _, _ := testStack(t)
	w, out := doJSON(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if out["status"] != "ok" || out["instanceId"] == "" {
		t.Fatalf("health payload: %v", out)
	}
}

func TestPreflightDeterministicPasses(t *testing.T) {
	router, _, _ := testStack(t)
	w, out := doJSON(t, router, http.MethodGet, "/ai/preflight", nil)
	if w.Code != http.StatusOK || out["ok"] != true {
		t.Fatalf("preflight: %d %v", w.Code, out)
	}
}

func TestRoomCreateAndGet(t *testing.T) {
	router, _, _ := testStack(t)
	w, out := doJSON(t, router, http.MethodPost, "/rooms", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("create status %d", w.Code)
	}
	roomID, _ := out["roomId"].(string)
	if len(roomID) != 6 {
		t.Fatalf("roomId: %q", roomID)
	}

	w2, out2 := doJSON(t, router, http.MethodGet, "/rooms/"+strings.ToLower(roomID), nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("get status %d", w2.Code)
	}
	room, _ := out2["room"].(map[string]any)
	if room["id"] != roomID {
		t.Fatalf("room id should canonicalize: %v", room["id"])
	}
}

func TestAIPatchAppliesFallbackColumn(t *testing.T) {
	router, store, _ := testStack(t)
	store.AddTranscript("ROOM01", "Avery", "the api gateway forwards requests to the billing service", "manual")

	w, out := doJSON(t, router, http.MethodPost, "/rooms/ROOM01/ai-patch", map[string]any{"reason": "manual"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if out["applied"] != true {
		t.Fatalf("patch should apply: %v", out)
	}
	patch, _ := out["patch"].(map[string]any)
	if patch["kind"] != ai.KindBoardOps {
		t.Fatalf("kind: %v", patch)
	}

	snap := store.Snapshot("ROOM01")
	if snap.LastAIPatchAt.IsZero() || len(snap.AIHistory) != 1 {
		t.Fatalf("patch bookkeeping missing: %+v", snap.AIHistory)
	}
	if len(snap.Board.Elements) == 0 {
		t.Fatalf("board should have fallback content")
	}
}

func TestAIPatchRejectsUnknownReason(t *testing.T) {
	router, _, _ := testStack(t)
	w, _ := doJSON(t, router, http.MethodPost, "/rooms/ROOM01/ai-patch", map[string]any{"reason": "hurry"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

func TestPersonalPatchReportsQueued(t *testing.T) {
	router, store, _ := testStack(t)
	store.AddTranscript("ROOM01", "Avery", "sketch the deployment pipeline", "manual")

	w, out := doJSON(t, router, http.MethodPost, "/rooms/ROOM01/personal-board/ai-patch", map[string]any{"name": "Avery"})
	if w.Code != http.StatusOK || out["applied"] != false || out["reason"] != "queued" {
		t.Fatalf("personal patch: %d %v", w.Code, out)
	}

	w2, out2 := doJSON(t, router, http.MethodPost, "/rooms/ROOM01/personal-board/ai-patch", map[string]any{"name": ""})
	if w2.Code != http.StatusOK || out2["reason"] != "missing_name" {
		t.Fatalf("missing name: %d %v", w2.Code, out2)
	}
}

func TestPersonalBoardGetRequiresName(t *testing.T) {
	router, _, _ := testStack(t)
	w, _ := doJSON(t, router, http.MethodGet, "/rooms/ROOM01/personal-board", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	w2, out := doJSON(t, router, http.MethodGet, "/rooms/ROOM01/personal-board?name=Avery", nil)
	if w2.Code != http.StatusOK {
		t.Fatalf("status %d", w2.Code)
	}
	if _, ok := out["board"]; !ok {
		t.Fatalf("empty board expected: %v", out)
	}
}

func TestTranscribeRejectsTinyBlob(t *testing.T) {
	router, _, _ := testStack(t)
	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "beep", 100)
	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOM01/transcribe", &buf)
	req.Header.Set("Content-Type", mw)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Code != http.StatusOK || out["accepted"] != false || out["reason"] != "audio_too_small" {
		t.Fatalf("tiny blob: %d %v", w.Code, out)
	}
}

func TestTranscribeWithoutRouterIs503(t *testing.T) {
	router, _, _ := testStack(t)
	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "beep", 4096)
	req := httptest.NewRequest(http.MethodPost, "/rooms/ROOM01/transcribe", &buf)
	req.Header.Set("Content-Type", mw)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
}

func TestWebSocketHandshakeGate(t *testing.T) {
	router, _, _ := testStack(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?roomId=ROOM01&name=Avery"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	// Anything before client:ack bounces with an error frame.
	if err := conn.WriteJSON(map[string]any{"type": "chat:add", "text": "hi"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var frame realtime.ServerFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	if frame.Type != realtime.FrameRoomError || !strings.Contains(frame.Message, "client:ack") {
		t.Fatalf("handshake gate frame: %+v", frame)
	}

	if err := conn.WriteJSON(map[string]any{"type": "client:ack", "protocol": types.WSProtocol}); err != nil {
		t.Fatalf("write ack: %v", err)
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if frame.Type != realtime.FrameServerAck || frame.Protocol != types.WSProtocol || frame.MemberID == "" {
		t.Fatalf("server ack: %+v", frame)
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if frame.Type != realtime.FrameRoomUpdate || frame.Room == nil {
		t.Fatalf("post-ack snapshot: %+v", frame)
	}

	// Post-ack mutations broadcast fresh snapshots.
	if err := conn.WriteJSON(map[string]any{"type": "chat:add", "text": "hello board"}); err != nil {
		t.Fatalf("write chat: %v", err)
	}
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read chat broadcast: %v", err)
	}
	if frame.Type != realtime.FrameRoomUpdate || len(frame.Room.ChatMessages) != 1 {
		t.Fatalf("chat broadcast: %+v", frame)
	}
}

func TestWebSocketRequiresParams(t *testing.T) {
	router, _, _ := testStack(t)
	w, _ := doJSON(t, router, http.MethodGet, "/ws?roomId=ROOM01", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
}

// newMultipart builds an audio upload body and returns its content type.
func newMultipart(t *testing.T, buf *bytes.Buffer, name string, size int) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	if err := mw.WriteField("speaker", "Avery"); err != nil {
		t.Fatalf("field: %v", err)
	}
	part, err := mw.CreateFormFile("audio", name+".webm")
	if err != nil {
		t.Fatalf("part: %v", err)
	}
	if _, err := part.Write(bytes.Repeat([]byte{0x1f}, size)); err != nil {
		t.Fatalf("blob: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return mw.FormDataContentType()
}
