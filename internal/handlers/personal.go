package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/rooms"
	"github.com/yungbote/senseboard-backend/internal/types"
)

type PersonalBoardHandler struct {
	log    *logger.Logger
	engine *ai.Engine
}

func NewPersonalBoardHandler(log *logger.Logger, engine *ai.Engine) *PersonalBoardHandler {
	return &PersonalBoardHandler{log: log.With("handler", "PersonalBoard"), engine: engine}
}

func (h *PersonalBoardHandler) Get(c *gin.Context) {
	id := rooms.CanonicalID(c.Param("id"))
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		RespondError(c, http.StatusBadRequest, "missing_name", errors.New("name query parameter is required"))
		return
	}
	snap := h.engine.PersonalBoardSnapshot(id, name)
	if snap == nil {
		RespondOK(c, gin.H{"board": types.NewBoardState()})
		return
	}
	RespondOK(c, gin.H{"board": snap.Board, "updatedAt": snap.UpdatedAt})
}

type personalPatchRequest struct {
	Name       string `json:"name"`
	Reason     string `json:"reason"`
	Regenerate bool   `json:"regenerate"`
}

// Patch enqueues a personalized job. The HTTP surface never waits on it:
// missing_name is the only reason reported synchronously.
func (h *PersonalBoardHandler) Patch(c *gin.Context) {
	id := rooms.CanonicalID(c.Param("id"))
	var req personalPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	reason := req.Reason
	if reason == "" {
		reason = ai.ReasonManual
	}
	resultCh := h.engine.EnqueuePersonal(id, req.Name, ai.Trigger{
		Reason:     reason,
		Regenerate: req.Regenerate,
	})
	select {
	case res := <-resultCh:
		// Only synchronous rejections land here; anything else is in flight.
		RespondOK(c, gin.H{"applied": false, "reason": res.Reason})
	default:
		RespondOK(c, gin.H{"applied": false, "reason": ai.ReasonQueued})
	}
}
