package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

// TranscribeLeg is one transcription backend attempt in the fallback chain.
type TranscribeLeg interface {
	Name() string
	Transcribe(ctx context.Context, blob []byte, mimeType string) (string, error)
}

// TranscribeRouter walks its legs in order and returns the first transcript.
// When every leg fails the combined error carries each leg's failure joined
// with " | " so the caller can log the whole chain.
type TranscribeRouter struct {
	log  *logger.Logger
	legs []TranscribeLeg
}

func NewTranscribeRouter(cfg config.Config, log *logger.Logger) *TranscribeRouter {
	router := &TranscribeRouter{log: log.With("service", "TranscribeRouter")}

	if cfg.AI.OpenAIAPIKey != "" {
		if client, err := NewOpenAIClient(cfg, log); err == nil {
			router.legs = append(router.legs, openAILeg{client})
		}
	}
	if cfg.AI.AnthropicAPIKey != "" {
		if client, err := NewAnthropicClient(cfg, log); err == nil {
			router.legs = append(router.legs, anthropicLeg{client})
		}
	}
	if cfg.CodexTranscribeFallback {
		if agent, err := NewCodexCLIAgent(cfg, log); err == nil {
			router.legs = append(router.legs, codexLeg{agent})
		}
	}
	return router
}

// NewTranscribeRouterWithLegs builds a router over explicit legs; tests use
// this to exercise the fallback order.
func NewTranscribeRouterWithLegs(log *logger.Logger, legs ...TranscribeLeg) *TranscribeRouter {
	return &TranscribeRouter{log: log.With("service", "TranscribeRouter"), legs: legs}
}

func (r *TranscribeRouter) Available() bool { return len(r.legs) > 0 }

// Transcribe normalizes the mime type and tries each leg in order.
func (r *TranscribeRouter) Transcribe(ctx context.Context, blob []byte, mimeType string) (string, string, error) {
	if len(blob) == 0 {
		return "", "", fmt.Errorf("empty audio blob")
	}
	if len(r.legs) == 0 {
		return "", "", fmt.Errorf("no transcription backend configured")
	}
	mimeType = NormalizeAudioMime(mimeType)

	var failures []string
	for _, leg := range r.legs {
		text, err := leg.Transcribe(ctx, blob, mimeType)
		if err != nil {
			r.log.Warn("Transcription leg failed", "leg", leg.Name(), "error", err)
			failures = append(failures, fmt.Sprintf("%s: %v", leg.Name(), err))
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			failures = append(failures, fmt.Sprintf("%s: empty transcript", leg.Name()))
			continue
		}
		return text, leg.Name(), nil
	}
	return "", "", fmt.Errorf("all transcription legs failed: %s", strings.Join(failures, " | "))
}

// NormalizeAudioMime maps browser mime variants onto the four formats the
// providers accept, defaulting to webm.
func NormalizeAudioMime(mimeType string) string {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch {
	case strings.Contains(mimeType, "ogg"):
		return "audio/ogg"
	case strings.Contains(mimeType, "wav"):
		return "audio/wav"
	case strings.Contains(mimeType, "mpeg"), strings.Contains(mimeType, "mp3"):
		return "audio/mpeg"
	case strings.Contains(mimeType, "mp4"), strings.Contains(mimeType, "m4a"):
		return "audio/mp4"
	default:
		return "audio/webm"
	}
}

// AudioExtForMime picks a file extension for capture dumps and CLI temp files.
func AudioExtForMime(mimeType string) string {
	switch NormalizeAudioMime(mimeType) {
	case "audio/ogg":
		return ".ogg"
	case "audio/wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".mp4"
	default:
		return ".webm"
	}
}

type openAILeg struct{ client *OpenAIClient }

func (l openAILeg) Name() string { return "openai" }
func (l openAILeg) Transcribe(ctx context.Context, blob []byte, mimeType string) (string, error) {
	return l.client.Transcribe(ctx, blob, "chunk"+AudioExtForMime(mimeType), mimeType)
}

type anthropicLeg struct{ client *AnthropicClient }

func (l anthropicLeg) Name() string { return "anthropic" }
func (l anthropicLeg) Transcribe(ctx context.Context, blob []byte, mimeType string) (string, error) {
	return l.client.Transcribe(ctx, blob, mimeType)
}

type codexLeg struct{ agent *CodexCLIAgent }

func (l codexLeg) Name() string { return "codex_cli" }
func (l codexLeg) Transcribe(ctx context.Context, blob []byte, mimeType string) (string, error) {
	return l.agent.Transcribe(ctx, blob, AudioExtForMime(mimeType))
}
