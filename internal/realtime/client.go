package realtime

import (
	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/logger"
)

// Client is one websocket connection's hub-side handle. Frames flow through
// the buffered Outbound channel; the write pump drains it.
type Client struct {
	ID       string
	RoomID   string
	MemberID string
	Outbound chan ServerFrame
	done     chan struct{}
	Logger   *logger.Logger
}

func (c *Client) Done() <-chan struct{} { return c.done }

func newClient(log *logger.Logger, roomID, memberID string) *Client {
	id := uuid.New().String()
	return &Client{
		ID:       id,
		RoomID:   roomID,
		MemberID: memberID,
		Outbound: make(chan ServerFrame, 32),
		done:     make(chan struct{}),
		Logger:   log.With("clientId", id, "roomId", roomID),
	}
}
