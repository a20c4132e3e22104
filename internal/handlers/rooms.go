package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/rooms"
)

type RoomHandler struct {
	log    *logger.Logger
	store  *rooms.Store
	engine *ai.Engine
}

func NewRoomHandler(log *logger.Logger, store *rooms.Store, engine *ai.Engine) *RoomHandler {
	return &RoomHandler{log: log.With("handler", "Room"), store: store, engine: engine}
}

func (h *RoomHandler) Create(c *gin.Context) {
	id := h.store.Create()
	room := h.store.Snapshot(id)
	if room == nil {
		RespondError(c, http.StatusInternalServerError, "room_create_failed", errors.New("room snapshot unavailable"))
		return
	}
	RespondOK(c, gin.H{"roomId": id, "room": room})
}

// Get returns the room snapshot, creating the room on demand.
func (h *RoomHandler) Get(c *gin.Context) {
	id := rooms.CanonicalID(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "missing_room_id", errors.New("room id is required"))
		return
	}
	room := h.store.Snapshot(id)
	if room == nil {
		RespondError(c, http.StatusInternalServerError, "room_snapshot_failed", errors.New("room snapshot unavailable"))
		return
	}
	RespondOK(c, gin.H{"room": room})
}

func (h *RoomHandler) PromptPreview(c *gin.Context) {
	id := rooms.CanonicalID(c.Param("id"))
	preview := h.engine.PromptPreview(id)
	if preview == nil {
		RespondError(c, http.StatusInternalServerError, "prompt_preview_failed", errors.New("room snapshot unavailable"))
		return
	}
	RespondOK(c, preview)
}
