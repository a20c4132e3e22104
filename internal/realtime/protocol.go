package realtime

import (
	"time"

	"github.com/yungbote/senseboard-backend/internal/types"
)

// Server -> client websocket frame types.
const (
	FrameServerAck     = "server:ack"
	FrameRoomUpdate    = "room:snapshot"
	FrameRoomError     = "room:error"
	FrameAIStatus      = "ai:status"
	FramePersonalBoard = "personalBoard:update"
)

// ServerFrame is the single outbound websocket payload; Type selects which
// fields are populated.
type ServerFrame struct {
	Type       string    `json:"type"`
	Protocol   string    `json:"protocol,omitempty"`
	RoomID     string    `json:"roomId,omitempty"`
	MemberID   string    `json:"memberId,omitempty"`
	ReceivedAt time.Time `json:"receivedAt,omitzero"`

	// room:snapshot
	Room *types.RoomState `json:"room,omitempty"`

	// ai:status
	Status string `json:"status,omitempty"`

	// personalBoard:update
	MemberKey string            `json:"memberKey,omitempty"`
	Board     *types.BoardState `json:"board,omitempty"`

	// room:error
	Message string `json:"message,omitempty"`
}

// AckFrame is the handshake reply once a client:ack lands.
func AckFrame(roomID, memberID string, now time.Time) ServerFrame {
	return ServerFrame{
		Type:       FrameServerAck,
		Protocol:   types.WSProtocol,
		RoomID:     roomID,
		MemberID:   memberID,
		ReceivedAt: now,
	}
}

func ErrorFrame(roomID, message string) ServerFrame {
	return ServerFrame{Type: FrameRoomError, RoomID: roomID, Message: message}
}
