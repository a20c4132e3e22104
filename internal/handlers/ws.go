package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/realtime"
	"github.com/yungbote/senseboard-backend/internal/rooms"
	"github.com/yungbote/senseboard-backend/internal/types"
)

type WSHandler struct {
	log      *logger.Logger
	store    *rooms.Store
	engine   *ai.Engine
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(log *logger.Logger, store *rooms.Store, engine *ai.Engine, hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		log:    log.With("handler", "WS"),
		store:  store,
		engine: engine,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *WSHandler) Serve(c *gin.Context) {
	roomID := rooms.CanonicalID(c.Query("roomId"))
	name := c.Query("name")
	if roomID == "" || name == "" {
		RespondError(c, http.StatusBadRequest, "missing_params", errors.New("roomId and name query parameters are required"))
		return
	}

	member := h.store.Join(roomID, name)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "roomId", roomID, "error", err)
		return
	}

	client := h.hub.NewClient(roomID, member.ID)
	go h.hub.WritePump(conn, client)
	realtime.ConfigureRead(conn)
	h.log.Info("WebSocket connected", "roomId", roomID, "memberId", member.ID)

	h.readLoop(conn, roomID, member)

	h.hub.CloseClient(client)
	h.log.Info("WebSocket disconnected", "roomId", roomID, "memberId", member.ID)
}

// readLoop enforces the handshake gate: nothing but client:ack is honored
// until the ack lands. Bad payloads keep the socket open.
func (h *WSHandler) readLoop(conn *websocket.Conn, roomID string, member types.Member) {
	acked := false
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg types.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.hub.SendTo(roomID, member.ID, realtime.ErrorFrame(roomID, "Invalid websocket message payload."))
			continue
		}

		if !acked {
			if msg.Type != types.MsgClientAck {
				h.hub.SendTo(roomID, member.ID, realtime.ErrorFrame(roomID, "Handshake required: send client:ack first."))
				continue
			}
			acked = true
			h.hub.SendTo(roomID, member.ID, realtime.AckFrame(roomID, member.ID, time.Now()))
			if snap := h.store.Snapshot(roomID); snap != nil {
				h.hub.SendTo(roomID, member.ID, realtime.ServerFrame{
					Type:   realtime.FrameRoomUpdate,
					RoomID: roomID,
					Room:   snap,
				})
			}
			continue
		}
		if msg.Type == types.MsgClientAck {
			continue
		}

		res, err := h.store.Apply(roomID, member, &msg)
		if err != nil {
			h.hub.SendTo(roomID, member.ID, realtime.ErrorFrame(roomID, err.Error()))
			continue
		}
		if res.Changed {
			h.engine.BroadcastRoom(roomID)
		}
		if res.WakeAI {
			chunkCount := 0
			if snap := h.store.Snapshot(roomID); snap != nil {
				chunkCount = len(snap.TranscriptChunks)
			}
			h.engine.ScheduleTick(roomID, chunkCount)
		}
	}
}
