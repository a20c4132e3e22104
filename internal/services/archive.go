package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

// TranscriptArchive appends transcript lines to per-(room, speaker) JSONL
// files and optionally dumps raw audio chunks for capture debugging. All
// writes are best effort; archive failures never block the transcription path.
type TranscriptArchive struct {
	log *logger.Logger
	mu  sync.Mutex

	transcriptEnabled bool
	transcriptDir     string

	captureEnabled bool
	captureDir     string
}

type transcriptRecord struct {
	At      time.Time `json:"at"`
	RoomID  string    `json:"roomId"`
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Source  string    `json:"source,omitempty"`
}

func NewTranscriptArchive(cfg config.Config, log *logger.Logger) *TranscriptArchive {
	return &TranscriptArchive{
		log:               log.With("service", "TranscriptArchive"),
		transcriptEnabled: cfg.TranscriptArchiveEnabled,
		transcriptDir:     cfg.TranscriptArchiveDir,
		captureEnabled:    cfg.Capture.TranscriptionChunksEnabled,
		captureDir:        cfg.Capture.TranscriptionChunksDirectory,
	}
}

func safeFileComponent(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	if sb.Len() == 0 {
		return "unknown"
	}
	return sb.String()
}

// AppendTranscript writes one JSONL record. Returns the path written, empty
// when archiving is disabled.
func (a *TranscriptArchive) AppendTranscript(roomID, speaker, text, source string) string {
	if !a.transcriptEnabled || strings.TrimSpace(text) == "" {
		return ""
	}
	rec := transcriptRecord{
		At:      time.Now().UTC(),
		RoomID:  roomID,
		Speaker: speaker,
		Text:    text,
		Source:  source,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		a.log.Warn("Transcript record marshal failed", "error", err)
		return ""
	}

	path := filepath.Join(a.transcriptDir, fmt.Sprintf("%s_%s.jsonl", safeFileComponent(roomID), safeFileComponent(speaker)))

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.transcriptDir, 0o755); err != nil {
		a.log.Warn("Transcript archive dir create failed", "dir", a.transcriptDir, "error", err)
		return ""
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		a.log.Warn("Transcript archive open failed", "path", path, "error", err)
		return ""
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		a.log.Warn("Transcript archive write failed", "path", path, "error", err)
		return ""
	}
	return path
}

// DumpAudioChunk stores a raw audio blob for capture debugging. Returns the
// path written, empty when capture is disabled.
func (a *TranscriptArchive) DumpAudioChunk(roomID, speaker string, blob []byte, mimeType string) string {
	if !a.captureEnabled || len(blob) == 0 {
		return ""
	}
	name := fmt.Sprintf("%s_%s_%d_%s%s",
		safeFileComponent(roomID),
		safeFileComponent(speaker),
		time.Now().UnixMilli(),
		uuid.New().String()[:8],
		AudioExtForMime(mimeType),
	)
	path := filepath.Join(a.captureDir, name)

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.captureDir, 0o755); err != nil {
		a.log.Warn("Audio capture dir create failed", "dir", a.captureDir, "error", err)
		return ""
	}
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		a.log.Warn("Audio capture write failed", "path", path, "error", err)
		return ""
	}
	return path
}
