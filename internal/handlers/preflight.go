package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

const preflightTimeout = 30 * time.Second

type PreflightHandler struct {
	log    *logger.Logger
	engine *ai.Engine
}

func NewPreflightHandler(log *logger.Logger, engine *ai.Engine) *PreflightHandler {
	return &PreflightHandler{log: log.With("handler", "Preflight"), engine: engine}
}

func (h *PreflightHandler) Preflight(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), preflightTimeout)
	defer cancel()
	if err := h.engine.Preflight(ctx); err != nil {
		h.log.Warn("AI preflight failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	RespondOK(c, gin.H{"ok": true})
}
