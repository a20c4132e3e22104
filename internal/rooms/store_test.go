package rooms

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("quiet")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func TestCanonicalIDUppercases(t *testing.T) {
	if got := CanonicalID("  ab12cd "); got != "AB12CD" {
		t.Fatalf("CanonicalID: want=AB12CD got=%s", got)
	}
}

func TestNewRoomIDAvoidsAmbiguousCharacters(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := NewRoomID()
		if len(id) != 6 {
			t.Fatalf("room id length: %q", id)
		}
		if strings.ContainsAny(id, "01ILO") {
			t.Fatalf("room id carries ambiguous character: %q", id)
		}
	}
}

func TestJoinReusesMemberByName(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	id := s.Create()

	first := s.Join(id, "Avery")
	again := s.Join(id, "avery")
	if first.ID != again.ID {
		t.Fatalf("join should reuse the member case-insensitively: %s vs %s", first.ID, again.ID)
	}

	other := s.Join(id, "Sam")
	if other.ID == first.ID {
		t.Fatalf("distinct names should mint distinct members")
	}
	snap := s.Snapshot(id)
	if len(snap.Members) != 2 {
		t.Fatalf("want 2 members, got %d", len(snap.Members))
	}
}

func TestAddTranscriptDropsConsecutiveDuplicates(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	id := s.Create()

	if !s.AddTranscript(id, "Avery", "hello there", "mic") {
		t.Fatalf("first chunk should land")
	}
	if s.AddTranscript(id, "Avery", "hello there", "mic") {
		t.Fatalf("consecutive duplicate from the same speaker should drop")
	}
	if !s.AddTranscript(id, "Sam", "hello there", "mic") {
		t.Fatalf("another speaker saying the same thing should land")
	}
	if !s.AddTranscript(id, "Avery", "something new", "mic") {
		t.Fatalf("fresh text should land")
	}

	snap := s.Snapshot(id)
	if len(snap.TranscriptChunks) != 3 {
		t.Fatalf("want 3 chunks, got %d", len(snap.TranscriptChunks))
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	s := NewStore(mustTestLogger(t))
	id := s.Create()
	s.Join(id, "Avery")

	snap := s.Snapshot(id)
	snap.Members[0].Name = "Mutated"

	again := s.Snapshot(id)
	if again.Members[0].Name != "Avery" {
		t.Fatalf("snapshot mutation leaked into the store: %s", again.Members[0].Name)
	}
}

func TestChatCapacityDropsOldest(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)
	sender := types.Member{ID: "m1", Name: "Avery"}

	for i := 0; i < types.MaxChatMessages+5; i++ {
		msg := &types.ClientMessage{Type: types.MsgChatAdd, Text: fmt.Sprintf("line %d", i)}
		if _, err := ApplyClientMessage(r, sender, msg, now); err != nil {
			t.Fatalf("chat:add %d: %v", i, err)
		}
	}
	if len(r.ChatMessages) != types.MaxChatMessages {
		t.Fatalf("chat cap: want=%d got=%d", types.MaxChatMessages, len(r.ChatMessages))
	}
	if r.ChatMessages[0].Text != "line 5" {
		t.Fatalf("oldest lines should drop first, got %q", r.ChatMessages[0].Text)
	}
}

func TestContextLifecycle(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)
	sender := types.Member{ID: "m1", Name: "Avery"}
	pinned := true

	res, err := ApplyClientMessage(r, sender, &types.ClientMessage{
		Type: types.MsgContextAdd, ID: "ctx1", Text: "focus on the auth flow", Pinned: &pinned, Priority: "HIGH",
	}, now)
	if err != nil || !res.WakeAI {
		t.Fatalf("context:add: res=%+v err=%v", res, err)
	}
	if r.ContextItems[0].Priority != "high" || !r.ContextItems[0].Pinned {
		t.Fatalf("context item fields: %+v", r.ContextItems[0])
	}

	if _, err := ApplyClientMessage(r, sender, &types.ClientMessage{
		Type: types.MsgContextUpdate, ID: "ctx1", Text: "focus on checkout",
	}, now); err != nil {
		t.Fatalf("context:update: %v", err)
	}
	if r.ContextItems[0].Text != "focus on checkout" {
		t.Fatalf("update did not land: %+v", r.ContextItems[0])
	}

	if _, err := ApplyClientMessage(r, sender, &types.ClientMessage{
		Type: types.MsgContextDelete, ID: "ctx1",
	}, now); err != nil {
		t.Fatalf("context:delete: %v", err)
	}
	if len(r.ContextItems) != 0 {
		t.Fatalf("delete left %d items", len(r.ContextItems))
	}

	if _, err := ApplyClientMessage(r, sender, &types.ClientMessage{
		Type: types.MsgContextDelete, ID: "ctx1",
	}, now); err == nil {
		t.Fatalf("deleting a missing item should error")
	}
}

func TestFreezeTogglesStatus(t *testing.T) {
	now := time.Now()
	r := types.NewRoomState("ROOM01", now)
	sender := types.Member{ID: "m1", Name: "Avery"}
	on, off := true, false

	if _, err := ApplyClientMessage(r, sender, &types.ClientMessage{Type: types.MsgAIConfigUpdate, Frozen: &on}, now); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if r.AIConfig.Status != types.AIStatusFrozen || !r.AIConfig.Frozen {
		t.Fatalf("freeze should set frozen status: %+v", r.AIConfig)
	}

	res, err := ApplyClientMessage(r, sender, &types.ClientMessage{Type: types.MsgAIConfigUpdate, Frozen: &off}, now)
	if err != nil {
		t.Fatalf("unfreeze: %v", err)
	}
	if r.AIConfig.Status != types.AIStatusIdle {
		t.Fatalf("unfreeze should return to idle: %+v", r.AIConfig)
	}
	if !res.WakeAI {
		t.Fatalf("unfreeze should wake the engine")
	}
}

func TestUnknownMessageTypeErrors(t *testing.T) {
	r := types.NewRoomState("ROOM01", time.Now())
	if _, err := ApplyClientMessage(r, types.Member{}, &types.ClientMessage{Type: "board:hack"}, time.Now()); err == nil {
		t.Fatalf("unknown type should error")
	}
}
