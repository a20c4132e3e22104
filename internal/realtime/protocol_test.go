package realtime

import (
	"testing"
	"time"
)

func TestFrameTypeWireValues(t *testing.T) {
	cases := map[string]string{
		FrameServerAck:     "server:ack",
		FrameRoomUpdate:    "room:snapshot",
		FrameRoomError:     "room:error",
		FrameAIStatus:      "ai:status",
		FramePersonalBoard: "personalBoard:update",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("frame type = %q, want %q", got, want)
		}
	}
}

func TestAckFrameFields(t *testing.T) {
	now := time.Now()
	frame := AckFrame("ROOM01", "m1", now)
	if frame.Type != FrameServerAck {
		t.Fatalf("ack frame type = %q, want %q", frame.Type, FrameServerAck)
	}
	if frame.RoomID != "ROOM01" || frame.MemberID != "m1" {
		t.Fatalf("ack frame addressing = %q/%q", frame.RoomID, frame.MemberID)
	}
	if !frame.ReceivedAt.Equal(now) {
		t.Fatalf("ack receivedAt = %v, want %v", frame.ReceivedAt, now)
	}
}
