package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/senseboard-backend/internal/ai"
	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/rooms"
	"github.com/yungbote/senseboard-backend/internal/services"
)

// Blobs below this size are silence or a truncated recorder flush.
const minAudioBytes = 1024

type TranscribeHandler struct {
	log     *logger.Logger
	store   *rooms.Store
	engine  *ai.Engine
	router  *services.TranscribeRouter
	archive *services.TranscriptArchive
}

func NewTranscribeHandler(log *logger.Logger, store *rooms.Store, engine *ai.Engine, router *services.TranscribeRouter, archive *services.TranscriptArchive) *TranscribeHandler {
	return &TranscribeHandler{
		log:     log.With("handler", "Transcribe"),
		store:   store,
		engine:  engine,
		router:  router,
		archive: archive,
	}
}

func (h *TranscribeHandler) Transcribe(c *gin.Context) {
	id := rooms.CanonicalID(c.Param("id"))
	if id == "" {
		RespondError(c, http.StatusBadRequest, "missing_room_id", errors.New("room id is required"))
		return
	}
	speaker := strings.TrimSpace(c.PostForm("speaker"))
	if speaker == "" {
		RespondError(c, http.StatusBadRequest, "missing_speaker", errors.New("speaker is required"))
		return
	}
	file, header, err := c.Request.FormFile("audio")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_audio", err)
		return
	}
	defer file.Close()
	blob, err := io.ReadAll(file)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "audio_read_failed", err)
		return
	}
	if len(blob) < minAudioBytes {
		RespondOK(c, gin.H{"ok": true, "text": "", "accepted": false, "reason": "audio_too_small"})
		return
	}

	mimeType := services.NormalizeAudioMime(header.Header.Get("Content-Type"))
	if h.archive != nil {
		h.archive.DumpAudioChunk(id, speaker, blob, mimeType)
	}

	if h.router == nil || !h.router.Available() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "no transcription provider configured"})
		return
	}
	text, leg, err := h.router.Transcribe(c.Request.Context(), blob, mimeType)
	if err != nil {
		h.log.Warn("Transcription failed", "roomId", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": err.Error()})
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		RespondOK(c, gin.H{"ok": true, "text": "", "accepted": false, "reason": "empty_transcript"})
		return
	}

	h.store.AddTranscript(id, speaker, text, leg)
	if h.archive != nil {
		h.archive.AppendTranscript(id, speaker, text, leg)
	}

	chunkCount := 0
	if snap := h.store.Snapshot(id); snap != nil {
		chunkCount = len(snap.TranscriptChunks)
	}
	h.engine.BroadcastRoom(id)
	h.engine.ScheduleTick(id, chunkCount)

	RespondOK(c, gin.H{"ok": true, "text": text, "accepted": true})
}
