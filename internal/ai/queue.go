package ai

import (
	"sync"
)

// Result is the outcome of one AI job.
type Result struct {
	Applied     bool   `json:"applied"`
	Reason      string `json:"reason,omitempty"`
	Kind        string `json:"kind,omitempty"` // board_ops | diagram_patch
	Fingerprint string `json:"fingerprint,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// Applied=false reason codes.
const (
	ReasonFrozen        = "frozen"
	ReasonNoSignal      = "no_signal"
	ReasonQueueOverflow = "queue_overflow"
	ReasonQueued        = "queued"
	ReasonAINoResponse  = "ai_no_response"
	ReasonNoChange      = "no_change"
	ReasonAIError       = "ai_error"
	ReasonMissingName   = "missing_name"
)

// Patch kinds.
const (
	KindBoardOps     = "board_ops"
	KindDiagramPatch = "diagram_patch"
)

const maxQueueLen = 120

type job struct {
	trigger Trigger
	member  string
	result  chan Result
}

func newJob(trigger Trigger, member string) *job {
	return &job{trigger: trigger, member: member, result: make(chan Result, 1)}
}

func (j *job) resolve(res Result) {
	select {
	case j.result <- res:
	default:
	}
}

// roomQueue is a FIFO job queue with tick coalescing and a hard length cap.
// One worker goroutine drains it, so at most one job per queue is in flight.
type roomQueue struct {
	mu     sync.Mutex
	jobs   []*job
	wake   chan struct{}
	active bool
}

func newRoomQueue() *roomQueue {
	return &roomQueue{wake: make(chan struct{}, 1)}
}

// enqueue adds a job. A plain tick merges into an already-queued tick
// (transcript cursor advances to the max, window takes the newer value) and
// the incoming job resolves as queued. On overflow the oldest job resolves
// as queue_overflow.
func (q *roomQueue) enqueue(j *job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if j.trigger.Reason == ReasonTick && !j.trigger.Regenerate {
		for _, queued := range q.jobs {
			if queued.trigger.Reason == ReasonTick && !queued.trigger.Regenerate && queued.member == j.member {
				if j.trigger.TranscriptChunkCount > queued.trigger.TranscriptChunkCount {
					queued.trigger.TranscriptChunkCount = j.trigger.TranscriptChunkCount
				}
				queued.trigger.WindowSeconds = j.trigger.WindowSeconds
				j.resolve(Result{Applied: false, Reason: ReasonQueued})
				return
			}
		}
	}

	if len(q.jobs) >= maxQueueLen {
		oldest := q.jobs[0]
		q.jobs = q.jobs[1:]
		oldest.resolve(Result{Applied: false, Reason: ReasonQueueOverflow})
	}
	q.jobs = append(q.jobs, j)
	q.signal()
}

func (q *roomQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next blocks until a job is available or stop closes, marking the queue
// active while the returned job runs.
func (q *roomQueue) next(stop <-chan struct{}) *job {
	for {
		q.mu.Lock()
		if len(q.jobs) > 0 {
			j := q.jobs[0]
			q.jobs = q.jobs[1:]
			q.active = true
			q.mu.Unlock()
			return j
		}
		q.mu.Unlock()
		select {
		case <-q.wake:
		case <-stop:
			return nil
		}
	}
}

func (q *roomQueue) finish() {
	q.mu.Lock()
	q.active = false
	q.mu.Unlock()
}

// drained reports whether nothing is queued or running.
func (q *roomQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs) == 0 && !q.active
}

func (q *roomQueue) queuedTicks() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	count := 0
	for _, j := range q.jobs {
		if j.trigger.Reason == ReasonTick && !j.trigger.Regenerate {
			count++
		}
	}
	return count
}
