package realtime

import (
	"testing"
	"time"

	"github.com/yungbote/senseboard-backend/internal/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("quiet")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvFrame(t *testing.T, ch <-chan ServerFrame, timeout time.Duration) ServerFrame {
	t.Helper()
	select {
	case frame := <-ch:
		return frame
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for frame")
	}
	return ServerFrame{}
}

func TestHubBroadcastOrderingAndIsolation(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	a := hub.NewClient("ROOM01", "m1")
	b := hub.NewClient("ROOM01", "m2")
	other := hub.NewClient("ROOM02", "m3")

	hub.Broadcast("ROOM01", ServerFrame{Type: FrameAIStatus, Status: "listening"})
	hub.Broadcast("ROOM01", ServerFrame{Type: FrameAIStatus, Status: "updating"})

	for _, c := range []*Client{a, b} {
		first := recvFrame(t, c.Outbound, time.Second)
		second := recvFrame(t, c.Outbound, time.Second)
		if first.Status != "listening" || second.Status != "updating" {
			t.Fatalf("frames out of order: %s then %s", first.Status, second.Status)
		}
	}
	select {
	case frame := <-other.Outbound:
		t.Fatalf("other room should receive nothing, got %+v", frame)
	default:
	}
}

func TestHubSendToTargetsOneMember(t *testing.T) {
	hub := NewHub(mustTestLogger(t))

	a := hub.NewClient("ROOM01", "m1")
	b := hub.NewClient("ROOM01", "m2")

	hub.SendTo("ROOM01", "m2", ServerFrame{Type: FramePersonalBoard, MemberKey: "sam"})

	frame := recvFrame(t, b.Outbound, time.Second)
	if frame.MemberKey != "sam" {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	select {
	case got := <-a.Outbound:
		t.Fatalf("m1 should receive nothing, got %+v", got)
	default:
	}
}

func TestHubCloseClientClosesOutbound(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	c := hub.NewClient("ROOM01", "m1")

	hub.CloseClient(c)
	if _, ok := <-c.Outbound; ok {
		t.Fatalf("outbound should be closed")
	}
	if hub.RoomClientCount("ROOM01") != 0 {
		t.Fatalf("room should be empty after close")
	}
}

func TestHubFullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(mustTestLogger(t))
	c := hub.NewClient("ROOM01", "m1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(c.Outbound)+10; i++ {
			hub.Broadcast("ROOM01", ServerFrame{Type: FrameAIStatus, Status: "updating"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a slow client")
	}
	if got := len(c.Outbound); got != cap(c.Outbound) {
		t.Fatalf("buffer should sit at capacity, got %d", got)
	}
}
