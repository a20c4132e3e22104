package types

// WSProtocol is the handshake protocol string clients must present.
const WSProtocol = "senseboard-ws-v1"

// Client -> server websocket message types.
const (
	MsgClientAck       = "client:ack"
	MsgChatAdd         = "chat:add"
	MsgContextAdd      = "context:add"
	MsgContextUpdate   = "context:update"
	MsgContextDelete   = "context:delete"
	MsgTranscriptAdd   = "transcript:add"
	MsgVisualHintSet   = "visualHint:set"
	MsgAIConfigUpdate  = "aiConfig:update"
	MsgDiagramPin      = "diagram:pinCurrent"
	MsgDiagramUndoAI   = "diagram:undoAi"
	MsgDiagramRestore  = "diagram:restoreArchived"
)

// ClientMessage is the single inbound websocket payload; Type selects which
// fields apply.
type ClientMessage struct {
	Type     string `json:"type"`
	Protocol string `json:"protocol,omitempty"`
	SentAt   string `json:"sentAt,omitempty"`

	// chat:add / transcript:add / context:*
	ID     string `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Source string `json:"source,omitempty"`

	// context:add / context:update
	Pinned   *bool  `json:"pinned,omitempty"`
	Priority string `json:"priority,omitempty"`

	// visualHint:set
	Value string `json:"value,omitempty"`

	// aiConfig:update
	Frozen    *bool     `json:"frozen,omitempty"`
	FocusMode *bool     `json:"focusMode,omitempty"`
	FocusBox  *FocusBox `json:"focusBox,omitempty"`
	Status    string    `json:"status,omitempty"`

	// diagram:restoreArchived
	GroupID string `json:"groupId,omitempty"`
}
