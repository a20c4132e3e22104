package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/yungbote/senseboard-backend/internal/types"
)

func roomWithChunks(texts ...string) *types.RoomState {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	r := types.NewRoomState("ROOM01", now)
	for i, text := range texts {
		r.PushTranscript(types.TranscriptChunk{
			ID: "c" + string(rune('a'+i)), Speaker: "Avery", Text: text,
			Source: "mic", CreatedAt: now,
		})
	}
	return r
}

func TestFilterStripsLeadingFiller(t *testing.T) {
	r := roomWithChunks("uh um so the root node has two children")
	in := BuildInput(r, Trigger{Reason: ReasonTick}, time.Now())
	if len(in.TranscriptWindow) != 1 {
		t.Fatalf("want 1 line, got %v", in.TranscriptWindow)
	}
	if in.TranscriptWindow[0] != "Avery: so the root node has two children" {
		t.Fatalf("filler should strip: %q", in.TranscriptWindow[0])
	}
}

func TestFilterDropsLowInformationLines(t *testing.T) {
	r := roomWithChunks(
		"um",
		"ok",
		"yes yes yes yes yes yes yes yes yes",
		"the api gateway forwards requests to the service",
	)
	in := BuildInput(r, Trigger{Reason: ReasonTick}, time.Now())
	if len(in.TranscriptWindow) != 1 {
		t.Fatalf("want only the real line, got %v", in.TranscriptWindow)
	}
	if !strings.Contains(in.TranscriptWindow[0], "api gateway") {
		t.Fatalf("kept the wrong line: %v", in.TranscriptWindow)
	}
}

func TestFilterKeepsSingleKeywordToken(t *testing.T) {
	r := roomWithChunks("flowchart")
	in := BuildInput(r, Trigger{Reason: ReasonTick}, time.Now())
	if len(in.TranscriptWindow) != 1 {
		t.Fatalf("keyword token should survive: %v", in.TranscriptWindow)
	}
}

func TestFilterMergesSpeakerNearDuplicates(t *testing.T) {
	r := roomWithChunks("draw the tree", "draw the tree please")
	in := BuildInput(r, Trigger{Reason: ReasonTick}, time.Now())
	if len(in.TranscriptWindow) != 1 {
		t.Fatalf("near-duplicate should merge: %v", in.TranscriptWindow)
	}
	if in.TranscriptWindow[0] != "Avery: draw the tree please" {
		t.Fatalf("merge should keep the longer rendition: %q", in.TranscriptWindow[0])
	}
}

func TestTranscriptChunkCountCapsInput(t *testing.T) {
	r := roomWithChunks("first real sentence here", "second real sentence here", "third real sentence here")
	in := BuildInput(r, Trigger{Reason: ReasonTick, TranscriptChunkCount: 2}, time.Now())
	if len(in.TranscriptWindow) != 2 {
		t.Fatalf("chunk cursor should cap chunks: %v", in.TranscriptWindow)
	}
}

func TestCorrectionOverrideBypassesHighPinned(t *testing.T) {
	now := time.Now()
	r := roomWithChunks("the checkout flow calls the payment service")
	r.PushChat(types.ChatMessage{ID: "m1", Sender: "Sam", Text: "context update: ignore the old plan", Kind: "correction", CreatedAt: now})
	r.PushContext(types.ContextItem{ID: "c1", Text: "old plan", Pinned: true, Priority: "high", CreatedAt: now, UpdatedAt: now})

	in := BuildInput(r, Trigger{Reason: ReasonTick}, now)
	if !in.OverrideHigh {
		t.Fatalf("context update phrase should set the override flag")
	}
	if strings.Contains(in.UserPrompt(), "Pinned context (high)") {
		t.Fatalf("high pinned section should be bypassed:\n%s", in.UserPrompt())
	}
	if !strings.Contains(in.SourceText(), "checkout flow") {
		t.Fatalf("source text should still carry the transcript")
	}
}

func TestHasSignal(t *testing.T) {
	empty := BuildInput(types.NewRoomState("ROOM01", time.Now()), Trigger{Reason: ReasonTick}, time.Now())
	if empty.HasSignal() {
		t.Fatalf("empty room should carry no signal")
	}
	hinted := empty
	hinted.VisualHint = "tree"
	if !hinted.HasSignal() {
		t.Fatalf("visual hint alone is a signal")
	}
}

func TestFingerprintIgnoresNow(t *testing.T) {
	r := roomWithChunks("the root node has two children")
	a := BuildInput(r, Trigger{Reason: ReasonTick}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	b := BuildInput(r, Trigger{Reason: ReasonTick}, time.Date(2026, 6, 1, 12, 30, 0, 0, time.UTC))
	if FingerprintInput(a) != FingerprintInput(b) {
		t.Fatalf("fingerprint should ignore NowIso: %s vs %s", FingerprintInput(a), FingerprintInput(b))
	}

	r2 := roomWithChunks("the root node has three children")
	c := BuildInput(r2, Trigger{Reason: ReasonTick}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if FingerprintInput(a) == FingerprintInput(c) {
		t.Fatalf("different content should change the fingerprint")
	}
}
