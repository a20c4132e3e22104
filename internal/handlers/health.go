package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type HealthHandler struct {
	startedAt  time.Time
	instanceID string
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		startedAt:  time.Now().UTC(),
		instanceID: uuid.New().String(),
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	RespondOK(c, gin.H{
		"status":            "ok",
		"now":               time.Now().UTC(),
		"instanceStartedAt": h.startedAt,
		"instanceId":        h.instanceID,
	})
}
