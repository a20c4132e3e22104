package ai

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/senseboard-backend/internal/diagram"
	"github.com/yungbote/senseboard-backend/internal/types"
)

const (
	maxWindowLines         = 24
	maxContextWindowLines  = 72
	maxRecentChat          = 12
	maxContextDirectives   = 12
	nearDupMergeMaxLen     = 80
	maxFillerStripPasses   = 3
	stutterMinTokens       = 5
	stutterUniqueRatioFail = 0.25
)

// Trigger describes why an AI job was scheduled.
type Trigger struct {
	Reason               string `json:"reason"`
	Regenerate           bool   `json:"regenerate"`
	WindowSeconds        int    `json:"windowSeconds,omitempty"`
	TranscriptChunkCount int    `json:"transcriptChunkCount,omitempty"`
}

// Trigger reasons.
const (
	ReasonManual     = "manual"
	ReasonTick       = "tick"
	ReasonRegenerate = "regenerate"
)

// AIInput is the deterministic snapshot handed to providers for one job.
// NowIso is the only volatile field; fingerprints strip it.
type AIInput struct {
	RoomID        string `json:"roomId"`
	NowIso        string `json:"nowIso"`
	Reason        string `json:"reason"`
	Regenerate    bool   `json:"regenerate"`
	WindowSeconds int    `json:"windowSeconds,omitempty"`

	TranscriptWindow  []string `json:"transcriptWindow"`
	TranscriptContext []string `json:"transcriptContext"`
	RecentChat        []string `json:"recentChat"`

	Corrections          []string `json:"corrections,omitempty"`
	CorrectionDirectives []string `json:"correctionDirectives,omitempty"`
	OverrideHigh         bool     `json:"overrideHigh,omitempty"`

	ContextPinnedHigh     []string `json:"contextPinnedHigh,omitempty"`
	ContextPinnedNormal   []string `json:"contextPinnedNormal,omitempty"`
	ContextDirectiveLines []string `json:"contextDirectiveLines,omitempty"`

	VisualHint            string             `json:"visualHint,omitempty"`
	CurrentDiagramSummary string             `json:"currentDiagramSummary,omitempty"`
	ActiveDiagramSnapshot string             `json:"activeDiagramSnapshot,omitempty"`
	AIConfig              types.RoomAIConfig `json:"aiConfig"`
}

// HasSignal reports whether the snapshot carries anything worth drawing.
func (in AIInput) HasSignal() bool {
	return len(in.TranscriptWindow) > 0 ||
		len(in.RecentChat) > 0 ||
		len(in.ContextPinnedHigh) > 0 ||
		len(in.ContextPinnedNormal) > 0 ||
		in.VisualHint != ""
}

var fillerTokens = map[string]bool{
	"uh": true, "um": true, "hmm": true, "erm": true, "ah": true, "mm": true,
}

var overrideHighRe = regexp.MustCompile(`(?i)\boverride\s+high\b`)

// normalizeTranscriptText strips leading filler (up to 3 passes) and
// collapses whitespace. Empty output means the line carried nothing.
func normalizeTranscriptText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	for pass := 0; pass < maxFillerStripPasses; pass++ {
		fields := strings.Fields(text)
		if len(fields) == 0 {
			return ""
		}
		lead := strings.ToLower(strings.Trim(fields[0], ".,!?"))
		if !fillerTokens[lead] {
			break
		}
		text = strings.Join(fields[1:], " ")
	}
	return strings.TrimSpace(text)
}

// keepTranscriptLine drops empty lines, single stray tokens, and stuttered
// low-information lines, unless a diagram keyword rescues them.
func keepTranscriptLine(text string) bool {
	tokens := strings.Fields(strings.ToLower(text))
	switch {
	case len(tokens) == 0:
		return false
	case len(tokens) == 1:
		return diagram.HasKeywordHint(tokens)
	case len(tokens) >= stutterMinTokens:
		unique := map[string]bool{}
		for _, tok := range tokens {
			unique[tok] = true
		}
		ratio := float64(len(unique)) / float64(len(tokens))
		if ratio < stutterUniqueRatioFail && !diagram.HasKeywordHint(tokens) {
			return false
		}
	}
	return true
}

// nearDuplicate reports whether next repeats prev (equal, or one is a prefix
// or suffix of the other with both under the merge length).
func nearDuplicate(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	if prev == next {
		return true
	}
	if len(prev) > nearDupMergeMaxLen || len(next) > nearDupMergeMaxLen {
		return false
	}
	return strings.HasPrefix(next, prev) || strings.HasPrefix(prev, next) ||
		strings.HasSuffix(next, prev) || strings.HasSuffix(prev, next)
}

// filterTranscript runs the normalization pipeline over chunks in order and
// returns speaker-prefixed lines.
func filterTranscript(chunks []types.TranscriptChunk) []string {
	var out []string
	lastBySpeaker := map[string]string{}
	for _, chunk := range chunks {
		text := normalizeTranscriptText(chunk.Text)
		if text == "" || !keepTranscriptLine(text) {
			continue
		}
		speaker := strings.TrimSpace(chunk.Speaker)
		if speaker == "" {
			speaker = "Speaker"
		}
		key := strings.ToLower(speaker)
		if nearDuplicate(lastBySpeaker[key], text) {
			// Keep the longer rendition when the new line extends the old.
			if len(text) > len(lastBySpeaker[key]) && len(out) > 0 {
				out[len(out)-1] = speaker + ": " + text
				lastBySpeaker[key] = text
			}
			continue
		}
		lastBySpeaker[key] = text
		out = append(out, speaker+": "+text)
	}
	return out
}

func tail(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

func sortedKeysNodes(m map[string]*types.DiagramNode) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysEdges(m map[string]*types.DiagramEdge) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func describeGroup(g *types.DiagramGroup) string {
	if g == nil {
		return ""
	}
	return fmt.Sprintf("%s %q: %d nodes, %d edges", g.DiagramType, g.Topic, len(g.Nodes), len(g.Edges))
}

func snapshotGroup(g *types.DiagramGroup) string {
	if g == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("nodes:")
	for _, id := range sortedKeysNodes(g.Nodes) {
		sb.WriteString(" " + g.Nodes[id].Label)
	}
	sb.WriteString("; edges:")
	for _, id := range sortedKeysEdges(g.Edges) {
		e := g.Edges[id]
		sb.WriteString(" " + e.From + ">" + e.To)
	}
	return sb.String()
}

// BuildInput assembles the provider snapshot from a room state copy. The
// caller passes a detached snapshot; nothing here mutates room state.
func BuildInput(room *types.RoomState, trigger Trigger, now time.Time) AIInput {
	chunks := room.TranscriptChunks
	if trigger.TranscriptChunkCount > 0 && trigger.TranscriptChunkCount < len(chunks) {
		chunks = chunks[:trigger.TranscriptChunkCount]
	}
	filtered := filterTranscript(chunks)

	in := AIInput{
		RoomID:            room.ID,
		NowIso:            now.UTC().Format(time.RFC3339),
		Reason:            trigger.Reason,
		Regenerate:        trigger.Regenerate,
		WindowSeconds:     trigger.WindowSeconds,
		TranscriptWindow:  tail(filtered, maxWindowLines),
		TranscriptContext: tail(filtered, maxContextWindowLines),
		VisualHint:        strings.TrimSpace(room.VisualHint),
		AIConfig:          room.AIConfig,
	}

	for _, msg := range tail2Chat(room.ChatMessages, maxRecentChat) {
		in.RecentChat = append(in.RecentChat, msg.Sender+": "+msg.Text)
	}
	for _, msg := range room.ChatMessages {
		if msg.Kind != "correction" {
			continue
		}
		in.Corrections = append(in.Corrections, msg.Text)
		in.CorrectionDirectives = append(in.CorrectionDirectives, "Correction from "+msg.Sender+": "+msg.Text)
		lower := strings.ToLower(msg.Text)
		if strings.Contains(lower, "context update:") || overrideHighRe.MatchString(msg.Text) {
			in.OverrideHigh = true
		}
	}

	for _, item := range room.ContextItems {
		line := strings.TrimSpace(item.Text)
		if line == "" {
			continue
		}
		if item.Pinned && item.Priority == "high" {
			in.ContextPinnedHigh = append(in.ContextPinnedHigh, line)
		} else if item.Pinned {
			in.ContextPinnedNormal = append(in.ContextPinnedNormal, line)
		}
		if len(in.ContextDirectiveLines) < maxContextDirectives {
			prio := item.Priority
			if prio == "" {
				prio = "normal"
			}
			in.ContextDirectiveLines = append(in.ContextDirectiveLines, "["+prio+"] "+line)
		}
	}

	if group := room.ActiveGroup(); group != nil {
		in.CurrentDiagramSummary = describeGroup(group)
		in.ActiveDiagramSnapshot = snapshotGroup(group)
	}
	return in
}

func tail2Chat(msgs []types.ChatMessage, n int) []types.ChatMessage {
	if len(msgs) <= n {
		return msgs
	}
	return msgs[len(msgs)-n:]
}

// SourceText flattens the snapshot into the raw text the deterministic
// diagram engine consumes, ordered by modality priority.
func (in AIInput) SourceText() string {
	var parts []string
	parts = append(parts, in.CorrectionDirectives...)
	if !in.OverrideHigh {
		parts = append(parts, in.ContextPinnedHigh...)
	}
	parts = append(parts, in.ContextPinnedNormal...)
	parts = append(parts, in.TranscriptWindow...)
	if in.VisualHint != "" {
		parts = append(parts, in.VisualHint)
	}
	return strings.Join(parts, ". ")
}

// UserPrompt renders the snapshot as the provider-facing user message.
func (in AIInput) UserPrompt() string {
	var sb strings.Builder
	writeSection := func(title string, lines []string) {
		if len(lines) == 0 {
			return
		}
		sb.WriteString(title + ":\n")
		for _, l := range lines {
			sb.WriteString("  - " + l + "\n")
		}
	}
	writeSection("Correction directives (highest priority)", in.CorrectionDirectives)
	if !in.OverrideHigh {
		writeSection("Pinned context (high)", in.ContextPinnedHigh)
	}
	writeSection("Pinned context (normal)", in.ContextPinnedNormal)
	writeSection("Transcript window", in.TranscriptWindow)
	writeSection("Recent chat", in.RecentChat)
	if in.VisualHint != "" {
		sb.WriteString("Visual hint: " + in.VisualHint + "\n")
	}
	if in.CurrentDiagramSummary != "" {
		sb.WriteString("Current diagram: " + in.CurrentDiagramSummary + "\n")
	}
	if in.ActiveDiagramSnapshot != "" {
		sb.WriteString("Diagram detail: " + in.ActiveDiagramSnapshot + "\n")
	}
	if sb.Len() == 0 {
		sb.WriteString("The room is quiet; no material to draw.\n")
	}
	return sb.String()
}
