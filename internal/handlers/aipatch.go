package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/rooms"
)

// patchWaitMax bounds how long the HTTP request parks on the job result
// before reporting queued. Covers the provider timeout plus queue slack.
const patchWaitMax = 90 * time.Second

type AIPatchHandler struct {
	log    *logger.Logger
	engine *ai.Engine
}

func NewAIPatchHandler(log *logger.Logger, engine *ai.Engine) *AIPatchHandler {
	return &AIPatchHandler{log: log.With("handler", "AIPatch"), engine: engine}
}

type aiPatchRequest struct {
	Reason        string `json:"reason"`
	Regenerate    bool   `json:"regenerate"`
	WindowSeconds int    `json:"windowSeconds"`
}

func (h *AIPatchHandler) Patch(c *gin.Context) {
	id := rooms.CanonicalID(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "missing_room_id", errors.New("room id is required"))
		return
	}

	var req aiPatchRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}

	reason := req.Reason
	if reason == "" {
		reason = ai.ReasonManual
	}
	switch reason {
	case ai.ReasonManual, ai.ReasonTick, ai.ReasonRegenerate:
	default:
		RespondError(c, http.StatusBadRequest, "invalid_reason", fmt.Errorf("unknown reason %q", reason))
		return
	}

	trigger := ai.Trigger{
		Reason:        reason,
		Regenerate:    req.Regenerate || reason == ai.ReasonRegenerate,
		WindowSeconds: req.WindowSeconds,
	}

	resultCh := h.engine.EnqueueMain(id, trigger)
	select {
	case res := <-resultCh:
		if res.Applied {
			RespondOK(c, gin.H{
				"applied": true,
				"patch": gin.H{
					"kind":        res.Kind,
					"fingerprint": res.Fingerprint,
					"summary":     res.Summary,
				},
			})
			return
		}
		RespondOK(c, gin.H{"applied": false, "reason": res.Reason})
	case <-time.After(patchWaitMax):
		RespondOK(c, gin.H{"applied": false, "reason": ai.ReasonQueued})
	case <-c.Request.Context().Done():
		c.Status(http.StatusRequestTimeout)
	}
}
