package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/personalization"
	"github.com/yungbote/senseboard-backend/internal/types"
)

type PersonalizationHandler struct {
	log      *logger.Logger
	profiles *personalization.Store
}

func NewPersonalizationHandler(log *logger.Logger, profiles *personalization.Store) *PersonalizationHandler {
	return &PersonalizationHandler{log: log.With("handler", "Personalization"), profiles: profiles}
}

func (h *PersonalizationHandler) GetContext(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		RespondError(c, http.StatusBadRequest, "missing_name", errors.New("name query parameter is required"))
		return
	}
	if h.profiles == nil {
		RespondError(c, http.StatusServiceUnavailable, "personalization_unavailable", errors.New("personalization store is not configured"))
		return
	}
	profile, err := h.profiles.GetProfile(name)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_read_failed", err)
		return
	}
	if profile == nil {
		profile = &types.ProfileView{
			NameKey:      personalization.NameKey(name),
			DisplayName:  name,
			ContextLines: []string{},
		}
	}
	RespondOK(c, gin.H{"profile": profile})
}

type contextAppendRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

func (h *PersonalizationHandler) AppendContext(c *gin.Context) {
	var req contextAppendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Text) == "" {
		RespondError(c, http.StatusBadRequest, "missing_fields", errors.New("name and text are required"))
		return
	}
	if h.profiles == nil {
		RespondError(c, http.StatusServiceUnavailable, "personalization_unavailable", errors.New("personalization store is not configured"))
		return
	}
	profile, err := h.profiles.AppendContext(req.Name, req.Text)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "profile_write_failed", err)
		return
	}
	RespondOK(c, gin.H{"profile": profile})
}
