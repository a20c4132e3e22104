package ai

import (
	"testing"
	"time"
)

func TestQueueCoalescesConsecutiveTicks(t *testing.T) {
	q := newRoomQueue()
	first := newJob(Trigger{Reason: ReasonTick, TranscriptChunkCount: 3}, "")
	q.enqueue(first)
	for i := 4; i <= 8; i++ {
		q.enqueue(newJob(Trigger{Reason: ReasonTick, TranscriptChunkCount: i}, ""))
	}
	if got := q.queuedTicks(); got != 1 {
		t.Fatalf("queued ticks: want 1, got %d", got)
	}
	if first.trigger.TranscriptChunkCount != 8 {
		t.Fatalf("merged cursor: want 8, got %d", first.trigger.TranscriptChunkCount)
	}
}

func TestQueueCoalescedTickResolvesQueued(t *testing.T) {
	q := newRoomQueue()
	q.enqueue(newJob(Trigger{Reason: ReasonTick}, ""))
	second := newJob(Trigger{Reason: ReasonTick}, "")
	q.enqueue(second)
	select {
	case res := <-second.result:
		if res.Applied || res.Reason != ReasonQueued {
			t.Fatalf("merged tick result: %+v", res)
		}
	default:
		t.Fatalf("merged tick should resolve immediately")
	}
}

func TestQueueDoesNotMergeAcrossMembers(t *testing.T) {
	q := newRoomQueue()
	q.enqueue(newJob(Trigger{Reason: ReasonTick}, "avery"))
	q.enqueue(newJob(Trigger{Reason: ReasonTick}, "sam"))
	if got := q.queuedTicks(); got != 2 {
		t.Fatalf("per-member ticks should stay separate, got %d", got)
	}
}

func TestQueueDoesNotMergeManualOrRegenerate(t *testing.T) {
	q := newRoomQueue()
	q.enqueue(newJob(Trigger{Reason: ReasonTick}, ""))
	q.enqueue(newJob(Trigger{Reason: ReasonManual}, ""))
	q.enqueue(newJob(Trigger{Reason: ReasonTick, Regenerate: true}, ""))
	q.mu.Lock()
	n := len(q.jobs)
	q.mu.Unlock()
	if n != 3 {
		t.Fatalf("manual and regenerate must not coalesce, queue len %d", n)
	}
}

func TestQueueOverflowResolvesOldest(t *testing.T) {
	q := newRoomQueue()
	oldest := newJob(Trigger{Reason: ReasonManual}, "")
	q.enqueue(oldest)
	for i := 1; i < maxQueueLen; i++ {
		q.enqueue(newJob(Trigger{Reason: ReasonManual}, ""))
	}
	q.enqueue(newJob(Trigger{Reason: ReasonManual}, ""))
	select {
	case res := <-oldest.result:
		if res.Reason != ReasonQueueOverflow {
			t.Fatalf("overflow reason: %+v", res)
		}
	default:
		t.Fatalf("oldest job should resolve on overflow")
	}
}

func TestQueueNextRespectsStop(t *testing.T) {
	q := newRoomQueue()
	stop := make(chan struct{})
	done := make(chan *job, 1)
	go func() { done <- q.next(stop) }()
	close(stop)
	select {
	case j := <-done:
		if j != nil {
			t.Fatalf("stopped queue should return nil")
		}
	case <-time.After(time.Second):
		t.Fatalf("next did not observe stop")
	}
}

func TestQueueDrained(t *testing.T) {
	q := newRoomQueue()
	if !q.drained() {
		t.Fatalf("fresh queue should be drained")
	}
	q.enqueue(newJob(Trigger{Reason: ReasonManual}, ""))
	if q.drained() {
		t.Fatalf("queued job means not drained")
	}
	stop := make(chan struct{})
	j := q.next(stop)
	if j == nil {
		t.Fatalf("expected a job")
	}
	if q.drained() {
		t.Fatalf("running job means not drained")
	}
	q.finish()
	if !q.drained() {
		t.Fatalf("finished queue should be drained")
	}
}
