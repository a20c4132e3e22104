package types

import (
	"time"
)

// Capacity caps; overflow drops the oldest entry.
const (
	MaxChatMessages     = 300
	MaxContextItems     = 200
	MaxTranscriptChunks = 400
	MaxArchivedGroups   = 24
	MaxAIHistory        = 20
)

// AI status values for a room.
const (
	AIStatusIdle      = "idle"
	AIStatusListening = "listening"
	AIStatusUpdating  = "updating"
	AIStatusFrozen    = "frozen"
)

type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	Kind      string    `json:"kind,omitempty"` // "" | "correction"
	CreatedAt time.Time `json:"createdAt"`
}

type ContextItem struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Pinned    bool      `json:"pinned"`
	Priority  string    `json:"priority,omitempty"` // "high" | "normal"
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type TranscriptChunk struct {
	ID        string    `json:"id"`
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"` // "mic" | "manual" | provider name
	CreatedAt time.Time `json:"createdAt"`
}

type FocusBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type RoomAIConfig struct {
	Frozen         bool      `json:"frozen"`
	FocusMode      bool      `json:"focusMode"`
	FocusBox       *FocusBox `json:"focusBox,omitempty"`
	PinnedGroupIDs []string  `json:"pinnedGroupIds"`
	Status         string    `json:"status"`
}

type AIHistoryEntry struct {
	At          time.Time `json:"at"`
	Reason      string    `json:"reason"`
	Kind        string    `json:"kind,omitempty"` // board_ops | diagram_patch
	Applied     bool      `json:"applied"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// RoomState is the top-level coordination unit, keyed by uppercase id. All
// mutation goes through the room store so access stays serialized per room.
type RoomState struct {
	ID               string                   `json:"id"`
	Members          []Member                 `json:"members"`
	ChatMessages     []ChatMessage            `json:"chatMessages"`
	ContextItems     []ContextItem            `json:"contextItems"`
	TranscriptChunks []TranscriptChunk        `json:"transcriptChunks"`
	VisualHint       string                   `json:"visualHint,omitempty"`
	Board            *BoardState              `json:"board"`
	DiagramGroups    map[string]*DiagramGroup `json:"diagramGroups"`
	ActiveGroupID    string                   `json:"activeGroupId,omitempty"`
	ArchivedGroups   []*DiagramGroup          `json:"archivedGroups"`
	AIConfig         RoomAIConfig             `json:"aiConfig"`
	AIHistory        []AIHistoryEntry         `json:"aiHistory"`
	LastAIPatchAt    time.Time                `json:"lastAiPatchAt,omitzero"`
	LastAIFingerprint string                  `json:"lastAiFingerprint,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`

	// Snapshots of the active diagram group taken before each AI patch so
	// diagram:undoAi can restore them. Not part of the broadcast payload.
	UndoSnapshots []*DiagramGroupSnapshot `json:"-"`
}

type DiagramGroupSnapshot struct {
	GroupID       string
	Group         *DiagramGroup // nil when the group did not exist yet
	ActiveGroupID string
}

func NewRoomState(id string, now time.Time) *RoomState {
	return &RoomState{
		ID:               id,
		Members:          []Member{},
		ChatMessages:     []ChatMessage{},
		ContextItems:     []ContextItem{},
		TranscriptChunks: []TranscriptChunk{},
		Board:            NewBoardState(),
		DiagramGroups:    make(map[string]*DiagramGroup),
		ArchivedGroups:   []*DiagramGroup{},
		AIConfig: RoomAIConfig{
			PinnedGroupIDs: []string{},
			Status:         AIStatusIdle,
		},
		AIHistory: []AIHistoryEntry{},
		CreatedAt: now,
	}
}

func (r *RoomState) PushChat(msg ChatMessage) {
	r.ChatMessages = append(r.ChatMessages, msg)
	if len(r.ChatMessages) > MaxChatMessages {
		r.ChatMessages = r.ChatMessages[len(r.ChatMessages)-MaxChatMessages:]
	}
}

func (r *RoomState) PushContext(item ContextItem) {
	r.ContextItems = append(r.ContextItems, item)
	if len(r.ContextItems) > MaxContextItems {
		r.ContextItems = r.ContextItems[len(r.ContextItems)-MaxContextItems:]
	}
}

func (r *RoomState) PushTranscript(chunk TranscriptChunk) {
	r.TranscriptChunks = append(r.TranscriptChunks, chunk)
	if len(r.TranscriptChunks) > MaxTranscriptChunks {
		r.TranscriptChunks = r.TranscriptChunks[len(r.TranscriptChunks)-MaxTranscriptChunks:]
	}
}

func (r *RoomState) PushHistory(entry AIHistoryEntry) {
	r.AIHistory = append(r.AIHistory, entry)
	if len(r.AIHistory) > MaxAIHistory {
		r.AIHistory = r.AIHistory[len(r.AIHistory)-MaxAIHistory:]
	}
}

func (r *RoomState) PushArchivedGroup(g *DiagramGroup) {
	r.ArchivedGroups = append(r.ArchivedGroups, g)
	if len(r.ArchivedGroups) > MaxArchivedGroups {
		r.ArchivedGroups = r.ArchivedGroups[len(r.ArchivedGroups)-MaxArchivedGroups:]
	}
}

// ActiveGroup returns the active diagram group, or nil.
func (r *RoomState) ActiveGroup() *DiagramGroup {
	if r.ActiveGroupID == "" {
		return nil
	}
	return r.DiagramGroups[r.ActiveGroupID]
}

// IsGroupPinned reports whether the group id appears in aiConfig.pinnedGroupIds.
func (r *RoomState) IsGroupPinned(id string) bool {
	for _, p := range r.AIConfig.PinnedGroupIDs {
		if p == id {
			return true
		}
	}
	return false
}

// PersonalBoardState is a per-(room, member) secondary board with its own
// patch bookkeeping.
type PersonalBoardState struct {
	Board             *BoardState `json:"board"`
	LastAIPatchAt     time.Time   `json:"lastAiPatchAt,omitzero"`
	LastAIFingerprint string      `json:"lastAiFingerprint,omitempty"`
	UpdatedAt         time.Time   `json:"updatedAt,omitzero"`
}
