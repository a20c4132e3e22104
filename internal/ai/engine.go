package ai

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/senseboard-backend/internal/board"
	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/diagram"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/personalization"
	"github.com/yungbote/senseboard-backend/internal/realtime"
	"github.com/yungbote/senseboard-backend/internal/realtime/bus"
	"github.com/yungbote/senseboard-backend/internal/rooms"
	"github.com/yungbote/senseboard-backend/internal/services"
	"github.com/yungbote/senseboard-backend/internal/types"
)

const (
	minPatchInterval    = 2500 * time.Millisecond
	idleAfterInactivity = 10 * time.Minute
	personalDeferDelay  = 240 * time.Millisecond
	mainDrainPollSlice  = 20 * time.Millisecond
	mainDrainPollMax    = 1500 * time.Millisecond
	providerCallTimeout = 75 * time.Second
)

// Engine owns the per-room AI job queues, the personal board state, the idle
// state machine, and the deferred personal flush timers. One instance per
// process.
type Engine struct {
	log      *logger.Logger
	cfg      config.Config
	store    *rooms.Store
	hub      *realtime.Hub
	bus      bus.Bus
	agent    services.Agent
	prompts  Prompts
	profiles *personalization.Store

	mu             sync.Mutex
	queues         map[string]*roomQueue
	personalQueues map[string]*roomQueue
	personalBoards map[string]*types.PersonalBoardState
	personalTimers map[string]*time.Timer
	idleTimers     map[string]*time.Timer
	lastActivity   map[string]time.Time

	stop     chan struct{}
	stopOnce sync.Once
	clock    func() time.Time
}

type EngineDeps struct {
	Store    *rooms.Store
	Hub      *realtime.Hub
	Bus      bus.Bus
	Agent    services.Agent
	Prompts  Prompts
	Profiles *personalization.Store
}

func NewEngine(cfg config.Config, deps EngineDeps, log *logger.Logger) *Engine {
	b := deps.Bus
	if b == nil {
		b = bus.NewLocalBus()
	}
	e := &Engine{
		log:            log.With("component", "AIEngine"),
		cfg:            cfg,
		store:          deps.Store,
		hub:            deps.Hub,
		bus:            b,
		agent:          deps.Agent,
		prompts:        deps.Prompts,
		profiles:       deps.Profiles,
		queues:         make(map[string]*roomQueue),
		personalQueues: make(map[string]*roomQueue),
		personalBoards: make(map[string]*types.PersonalBoardState),
		personalTimers: make(map[string]*time.Timer),
		idleTimers:     make(map[string]*time.Timer),
		lastActivity:   make(map[string]time.Time),
		stop:           make(chan struct{}),
		clock:          time.Now,
	}
	// The engine owns the forwarder: published frames come back through the
	// bus and land on the local hub (plus sibling instances over redis).
	if err := e.bus.StartForwarder(context.Background(), func(f realtime.ServerFrame) {
		e.hub.Broadcast(f.RoomID, f)
	}); err != nil {
		e.log.Warn("Bus forwarder failed to start; broadcasting locally only", "error", err)
	}
	return e
}

// Close stops all workers and cancels every timer.
func (e *Engine) Close() {
	e.stopOnce.Do(func() {
		close(e.stop)
		e.mu.Lock()
		defer e.mu.Unlock()
		for _, t := range e.personalTimers {
			t.Stop()
		}
		for _, t := range e.idleTimers {
			t.Stop()
		}
	})
}

func (e *Engine) queue(roomID string) *roomQueue {
	roomID = rooms.CanonicalID(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.queues[roomID]
	if !ok {
		q = newRoomQueue()
		e.queues[roomID] = q
		go e.mainWorker(roomID, q)
	}
	return q
}

func (e *Engine) personalQueue(roomID, memberKey string) *roomQueue {
	key := rooms.CanonicalID(roomID) + "::" + memberKey
	e.mu.Lock()
	defer e.mu.Unlock()
	q, ok := e.personalQueues[key]
	if !ok {
		q = newRoomQueue()
		e.personalQueues[key] = q
		go e.personalWorker(roomID, q)
	}
	return q
}

// EnqueueMain schedules a main-board job and returns its result channel.
func (e *Engine) EnqueueMain(roomID string, trigger Trigger) <-chan Result {
	j := newJob(trigger, "")
	e.queue(roomID).enqueue(j)
	e.stampActivity(roomID)
	return j.result
}

// ScheduleTick fires a mergeable tick; callers never wait on it.
func (e *Engine) ScheduleTick(roomID string, transcriptChunkCount int) {
	e.EnqueueMain(roomID, Trigger{
		Reason:               ReasonTick,
		TranscriptChunkCount: transcriptChunkCount,
	})
}

// EnqueuePersonal schedules a personalized job. The HTTP surface reports
// queued immediately; the result channel is there for tests.
func (e *Engine) EnqueuePersonal(roomID, name string, trigger Trigger) <-chan Result {
	memberKey := personalization.NameKey(name)
	j := newJob(trigger, name)
	if memberKey == "" {
		j.resolve(Result{Applied: false, Reason: ReasonMissingName})
		return j.result
	}
	e.personalQueue(roomID, memberKey).enqueue(j)
	return j.result
}

func (e *Engine) mainWorker(roomID string, q *roomQueue) {
	for {
		j := q.next(e.stop)
		if j == nil {
			return
		}
		j.resolve(e.runMain(roomID, j.trigger))
		q.finish()
	}
}

func (e *Engine) personalWorker(roomID string, q *roomQueue) {
	for {
		j := q.next(e.stop)
		if j == nil {
			return
		}
		j.resolve(e.runPersonal(roomID, j.member, j.trigger))
		q.finish()
	}
}

// ---- main run contract ----

func (e *Engine) runMain(roomID string, trigger Trigger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("AI job panicked", "roomId", roomID, "panic", r)
			res = Result{Applied: false, Reason: ReasonAIError}
		}
	}()
	roomID = rooms.CanonicalID(roomID)
	now := e.clock()
	e.stampActivity(roomID)

	snap := e.store.Snapshot(roomID)
	if snap == nil {
		return Result{Applied: false, Reason: ReasonAIError}
	}
	if snap.AIConfig.Frozen && !trigger.Regenerate {
		return Result{Applied: false, Reason: ReasonFrozen}
	}

	if !trigger.Regenerate && !snap.LastAIPatchAt.IsZero() {
		if wait := minPatchInterval - now.Sub(snap.LastAIPatchAt); wait > 0 {
			e.sleep(wait)
			now = e.clock()
		}
	}

	input := BuildInput(snap, trigger, now)
	baseFP := FingerprintInput(input)

	if trigger.Reason == ReasonTick {
		if !input.HasSignal() {
			e.setStatus(roomID, types.AIStatusListening)
			return Result{Applied: false, Reason: ReasonNoSignal}
		}
		if snap.LastAIFingerprint != "" && strings.HasPrefix(snap.LastAIFingerprint, baseFP+":") {
			return Result{Applied: false, Reason: ReasonNoChange}
		}
	}

	e.setStatus(roomID, types.AIStatusUpdating)
	defer e.setStatus(roomID, types.AIStatusListening)

	ctx, cancel := context.WithTimeout(context.Background(), providerCallTimeout)
	defer cancel()

	env, genErr := e.generateBoardOps(ctx, input)
	if genErr != nil {
		e.log.Warn("Board ops generation failed; using diagram fallback", "roomId", roomID, "error", genErr)
	}

	boardFP := baseFP + ":board_ops"
	if env != nil && len(env.Ops) > 0 {
		var stack StackResult
		e.store.With(roomID, func(r *types.RoomState) {
			stack = StackAndApply(r.Board, env.Ops, now)
			if stack.Mutated && stack.Renderable {
				r.LastAIPatchAt = now
				r.LastAIFingerprint = boardFP
				r.PushHistory(types.AIHistoryEntry{
					At: now, Reason: trigger.Reason, Kind: KindBoardOps,
					Applied: true, Fingerprint: boardFP,
				})
			}
		})
		if stack.Mutated && stack.Renderable {
			e.broadcastRoom(roomID)
			e.SchedulePersonalFlush(roomID)
			return Result{Applied: true, Kind: KindBoardOps, Fingerprint: boardFP, Summary: env.Summary}
		}
	}

	// Diagram-patch fallback: deterministic structure, provider-reviewed when
	// an agent is available.
	patch := e.generateDiagramPatch(ctx, input)
	diagramFP := baseFP + ":diagram_patch"
	applied := false
	e.store.With(roomID, func(r *types.RoomState) {
		before := r.Board.Revision
		group := diagram.ApplyPatch(r, patch, now)
		ops := diagram.ReconcileGroupOps(r.Board, group)
		board.Apply(r.Board, ops, now)
		board.ClampToCanvasBounds(r.Board)
		if r.Board.Revision != before {
			applied = true
			r.LastAIPatchAt = now
			r.LastAIFingerprint = diagramFP
			r.PushHistory(types.AIHistoryEntry{
				At: now, Reason: trigger.Reason, Kind: KindDiagramPatch,
				Applied: true, Fingerprint: diagramFP,
			})
		}
	})
	if applied {
		e.broadcastRoom(roomID)
		e.SchedulePersonalFlush(roomID)
		return Result{Applied: true, Kind: KindDiagramPatch, Fingerprint: diagramFP, Summary: patch.Topic}
	}
	if trigger.Reason == ReasonTick {
		return Result{Applied: false, Reason: ReasonNoChange}
	}
	return Result{Applied: false, Reason: ReasonAINoResponse}
}

// generateBoardOps builds the envelope from the provider, or from the
// deterministic transcript fallback when no agent is configured or the
// provider output was unusable.
func (e *Engine) generateBoardOps(ctx context.Context, input AIInput) (*Envelope, error) {
	if e.agent == nil {
		return &Envelope{Kind: KindBoardOps, SchemaVersion: 1, Ops: TranscriptFallbackOps(input.TranscriptWindow)}, nil
	}
	system := e.prompts.System + "\n\n" + e.prompts.VisualSkill + "\n\n" + e.prompts.Delta
	raw, err := e.agent.CompleteText(ctx, system, input.UserPrompt())
	if err != nil {
		return nil, err
	}
	env := ParseEnvelope(raw)
	if env != nil && len(env.Ops) > 0 {
		env.Ops = AutoLabel(env.Ops, env.Summary, env.Text, input.TranscriptWindow)
		return env, nil
	}
	return &Envelope{Kind: KindBoardOps, SchemaVersion: 1, Ops: TranscriptFallbackOps(input.TranscriptWindow)}, nil
}

const diagramSystemPrompt = `You design structural diagrams. Reply with ONE JSON object:
{"topic":"...","diagramType":"tree|system_blocks|flowchart","confidence":0.8,
"actions":[{"type":"upsertNode","id":"...","label":"...","x":0,"y":0,"width":160,"height":64},
{"type":"upsertEdge","id":"...","from":"...","to":"..."},{"type":"setTitle","title":"..."}]}
No prose outside the JSON.`

// generateDiagramPatch builds the deterministic reference and, when a
// provider is available, reviews the provider's patch against it.
func (e *Engine) generateDiagramPatch(ctx context.Context, input AIInput) *types.DiagramPatch {
	reference := diagram.BuildPatch(input.SourceText())
	if e.agent == nil {
		return reference
	}
	raw, err := e.agent.CompleteText(ctx, diagramSystemPrompt, input.UserPrompt())
	if err != nil {
		e.log.Warn("Diagram provider call failed; using deterministic patch", "error", err)
		return reference
	}
	candidate := coerceDiagramPatch(raw)
	return diagram.ReviewAndRevise(candidate, reference, strings.Join(input.TranscriptWindow, " "), diagram.ReviewConfig{
		MaxRevisions:        e.cfg.AI.Review.MaxRevisions,
		ConfidenceThreshold: e.cfg.AI.Review.ConfidenceThreshold,
	})
}

// coerceDiagramPatch parses provider text into a DiagramPatch, salvaging the
// first balanced object that decodes when the strict parse fails.
func coerceDiagramPatch(raw string) *types.DiagramPatch {
	raw = strings.TrimSpace(raw)
	var patch types.DiagramPatch
	if err := json.Unmarshal([]byte(raw), &patch); err == nil && len(patch.Actions) > 0 {
		patch.ClampLimits()
		return &patch
	}
	for _, slice := range ScanBalancedObjects(raw) {
		var candidate types.DiagramPatch
		if err := json.Unmarshal([]byte(slice), &candidate); err == nil && len(candidate.Actions) > 0 {
			candidate.ClampLimits()
			return &candidate
		}
	}
	return nil
}

// ---- personal boards ----

func personalBoardKey(roomID, memberKey string) string {
	return rooms.CanonicalID(roomID) + "::" + memberKey
}

func (e *Engine) personalBoard(roomID, memberKey string) *types.PersonalBoardState {
	key := personalBoardKey(roomID, memberKey)
	e.mu.Lock()
	defer e.mu.Unlock()
	pb, ok := e.personalBoards[key]
	if !ok {
		pb = &types.PersonalBoardState{Board: types.NewBoardState()}
		e.personalBoards[key] = pb
	}
	return pb
}

// PersonalBoardSnapshot returns a detached copy for the HTTP surface, nil
// when the member has no board yet.
func (e *Engine) PersonalBoardSnapshot(roomID, name string) *types.PersonalBoardState {
	memberKey := personalization.NameKey(name)
	if memberKey == "" {
		return nil
	}
	key := personalBoardKey(roomID, memberKey)
	e.mu.Lock()
	pb, ok := e.personalBoards[key]
	e.mu.Unlock()
	if !ok {
		return nil
	}
	raw, err := json.Marshal(pb)
	if err != nil {
		return nil
	}
	var out types.PersonalBoardState
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return &out
}

// waitForMainDrain polls the sibling main queue so personal generations see
// the post-patch room state.
func (e *Engine) waitForMainDrain(roomID string) {
	q := e.queue(roomID)
	deadline := e.clock().Add(mainDrainPollMax)
	for e.clock().Before(deadline) {
		if q.drained() {
			return
		}
		e.sleep(mainDrainPollSlice)
	}
}

func (e *Engine) runPersonal(roomID, name string, trigger Trigger) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Personal AI job panicked", "roomId", roomID, "panic", r)
			res = Result{Applied: false, Reason: ReasonAIError}
		}
	}()
	roomID = rooms.CanonicalID(roomID)
	memberKey := personalization.NameKey(name)
	e.waitForMainDrain(roomID)
	now := e.clock()

	snap := e.store.Snapshot(roomID)
	if snap == nil {
		return Result{Applied: false, Reason: ReasonAIError}
	}
	if snap.AIConfig.Frozen && !trigger.Regenerate {
		return Result{Applied: false, Reason: ReasonFrozen}
	}

	input := BuildInput(snap, trigger, now)
	var contextLines []string
	if e.profiles != nil {
		contextLines = e.profiles.PromptLines(name)
	}
	fp := FingerprintInput(input) + ":" + Fingerprint(map[string]any{
		"memberKey":    memberKey,
		"contextLines": contextLines,
	}) + ":personal_board_ops"

	pb := e.personalBoard(roomID, memberKey)
	if trigger.Reason == ReasonTick {
		if !input.HasSignal() && len(contextLines) == 0 {
			return Result{Applied: false, Reason: ReasonNoSignal}
		}
		if pb.LastAIFingerprint == fp {
			return Result{Applied: false, Reason: ReasonNoChange}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), providerCallTimeout)
	defer cancel()
	env := e.generatePersonalOps(ctx, input, name, contextLines)
	if env == nil || len(env.Ops) == 0 {
		return Result{Applied: false, Reason: ReasonAINoResponse}
	}

	var stack StackResult
	var boardCopy *types.BoardState
	e.mu.Lock()
	stack = StackAndApply(pb.Board, env.Ops, now)
	if stack.Mutated && stack.Renderable {
		pb.LastAIPatchAt = now
		pb.LastAIFingerprint = fp
		pb.UpdatedAt = now
		boardCopy = pb.Board.Clone()
	}
	e.mu.Unlock()

	if boardCopy == nil {
		return Result{Applied: false, Reason: ReasonNoChange}
	}
	e.publish(realtime.ServerFrame{
		Type:      realtime.FramePersonalBoard,
		RoomID:    roomID,
		MemberKey: memberKey,
		Board:     boardCopy,
	})
	return Result{Applied: true, Kind: KindBoardOps, Fingerprint: fp}
}

func (e *Engine) generatePersonalOps(ctx context.Context, input AIInput, name string, contextLines []string) *Envelope {
	if e.agent == nil {
		lines := append([]string{}, contextLines...)
		lines = append(lines, input.TranscriptWindow...)
		return &Envelope{Kind: KindBoardOps, SchemaVersion: 1, Ops: TranscriptFallbackOps(lines)}
	}
	user := input.UserPrompt()
	if len(contextLines) > 0 {
		var sb strings.Builder
		sb.WriteString("Stored context for " + name + ":\n")
		for _, l := range contextLines {
			sb.WriteString("  - " + l + "\n")
		}
		user = sb.String() + user
	}
	raw, err := e.agent.CompleteText(ctx, e.prompts.Personal, user)
	if err != nil {
		e.log.Warn("Personal generation failed; using fallback", "error", err)
		return &Envelope{Kind: KindBoardOps, SchemaVersion: 1, Ops: TranscriptFallbackOps(input.TranscriptWindow)}
	}
	env := ParseEnvelope(raw)
	if env == nil || len(env.Ops) == 0 {
		return &Envelope{Kind: KindBoardOps, SchemaVersion: 1, Ops: TranscriptFallbackOps(input.TranscriptWindow)}
	}
	env.Ops = AutoLabel(env.Ops, env.Summary, env.Text, input.TranscriptWindow)
	return env
}

// SchedulePersonalFlush arms (or re-arms) the deferred personal timer; when
// it fires each current member gets one personalized tick.
func (e *Engine) SchedulePersonalFlush(roomID string) {
	roomID = rooms.CanonicalID(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.personalTimers[roomID]; ok {
		t.Stop()
	}
	e.personalTimers[roomID] = time.AfterFunc(personalDeferDelay, func() {
		snap := e.store.Snapshot(roomID)
		if snap == nil {
			return
		}
		for _, member := range snap.Members {
			e.EnqueuePersonal(roomID, member.Name, Trigger{Reason: ReasonTick})
		}
	})
}

// PromptPreview exposes the exact prompts and payload the next manual job
// would send, for debugging from the HTTP surface.
type PromptPreview struct {
	ID           string  `json:"id"`
	Request      Trigger `json:"request"`
	SystemPrompt string  `json:"systemPrompt"`
	UserPrompt   string  `json:"userPrompt"`
	Payload      AIInput `json:"payload"`
}

func (e *Engine) PromptPreview(roomID string) *PromptPreview {
	roomID = rooms.CanonicalID(roomID)
	snap := e.store.Snapshot(roomID)
	if snap == nil {
		return nil
	}
	trigger := Trigger{Reason: ReasonManual}
	input := BuildInput(snap, trigger, e.clock())
	return &PromptPreview{
		ID:           roomID,
		Request:      trigger,
		SystemPrompt: e.prompts.System + "\n\n" + e.prompts.VisualSkill + "\n\n" + e.prompts.Delta,
		UserPrompt:   input.UserPrompt(),
		Payload:      input,
	}
}

// Preflight probes the configured generation backend. A nil agent
// (deterministic mode) always passes.
func (e *Engine) Preflight(ctx context.Context) error {
	if e.agent == nil {
		return nil
	}
	return e.agent.Preflight(ctx)
}

// ---- status, idle machine, broadcast ----

func (e *Engine) setStatus(roomID, status string) {
	changed := false
	e.store.With(roomID, func(r *types.RoomState) {
		if r.AIConfig.Frozen || r.AIConfig.Status == status {
			return
		}
		r.AIConfig.Status = status
		changed = true
	})
	if changed {
		e.publish(realtime.ServerFrame{Type: realtime.FrameAIStatus, RoomID: rooms.CanonicalID(roomID), Status: status})
	}
}

// stampActivity records AI activity and re-arms the idle timer.
func (e *Engine) stampActivity(roomID string) {
	roomID = rooms.CanonicalID(roomID)
	now := e.clock()
	e.mu.Lock()
	e.lastActivity[roomID] = now
	if t, ok := e.idleTimers[roomID]; ok {
		t.Stop()
	}
	e.idleTimers[roomID] = time.AfterFunc(idleAfterInactivity, func() {
		e.mu.Lock()
		last := e.lastActivity[roomID]
		e.mu.Unlock()
		if e.clock().Sub(last) < idleAfterInactivity {
			return
		}
		e.setStatus(roomID, types.AIStatusIdle)
	})
	e.mu.Unlock()
}

// broadcastRoom publishes a fresh room snapshot frame.
func (e *Engine) broadcastRoom(roomID string) {
	roomID = rooms.CanonicalID(roomID)
	snap := e.store.Snapshot(roomID)
	if snap == nil {
		return
	}
	e.publish(realtime.ServerFrame{Type: realtime.FrameRoomUpdate, RoomID: roomID, Room: snap})
}

// BroadcastRoom is the shared entry point for transports that mutated room
// state and need the new snapshot fanned out.
func (e *Engine) BroadcastRoom(roomID string) {
	e.broadcastRoom(roomID)
	e.stampActivity(roomID)
}

// publish hands the frame to the bus; the forwarder delivers it to the local
// hub (and any sibling instances). Hub delivery is the fallback when the bus
// rejects the frame.
func (e *Engine) publish(frame realtime.ServerFrame) {
	if e.bus != nil {
		if err := e.bus.Publish(context.Background(), frame); err == nil {
			return
		}
	}
	e.hub.Broadcast(frame.RoomID, frame)
}

func (e *Engine) sleep(d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-e.stop:
	}
}
