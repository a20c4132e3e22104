package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/senseboard-backend/internal/logger"
	"github.com/yungbote/senseboard-backend/internal/utils"
)

type AIReviewConfig struct {
	MaxRevisions        int     `yaml:"maxRevisions"`
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"`
}

type AIConfig struct {
	Provider                 string         `yaml:"provider"`
	OpenAIAPIKey             string         `yaml:"openaiApiKey"`
	AnthropicAPIKey          string         `yaml:"anthropicApiKey"`
	OpenAIModel              string         `yaml:"openaiModel"`
	AnthropicModel           string         `yaml:"anthropicModel"`
	CodexModel               string         `yaml:"codexModel"`
	OpenAITranscriptionModel string         `yaml:"openaiTranscriptionModel"`
	Review                   AIReviewConfig `yaml:"review"`
}

type ServerConfig struct {
	Port         int `yaml:"port"`
	PortScanSpan int `yaml:"portScanSpan"`
}

type CaptureConfig struct {
	TranscriptionChunksEnabled   bool   `yaml:"enabled"`
	TranscriptionChunksDirectory string `yaml:"directory"`
}

type PersonalizationConfig struct {
	SQLitePath      string `yaml:"sqlitePath"`
	MaxContextLines int    `yaml:"maxContextLines"`
}

type Config struct {
	AI              AIConfig              `yaml:"ai"`
	Server          ServerConfig          `yaml:"server"`
	LogMode         string                `yaml:"logging"`
	Capture         CaptureConfig         `yaml:"capture"`
	Personalization PersonalizationConfig `yaml:"personalization"`

	CodexTranscribeFallback  bool   `yaml:"codexTranscribeFallback"`
	TranscriptArchiveEnabled bool   `yaml:"transcriptArchiveEnabled"`
	TranscriptArchiveDir     string `yaml:"transcriptArchiveDir"`

	RedisAddr    string `yaml:"redisAddr"`
	RedisChannel string `yaml:"redisChannel"`
}

const (
	ProviderDeterministic = "deterministic"
	ProviderOpenAI        = "openai"
	ProviderAnthropic     = "anthropic"
	ProviderCodexCLI      = "codex_cli"
	ProviderAuto          = "auto"
)

// Load resolves config from the environment, then overlays the optional YAML
// file named by SENSEBOARD_CONFIG. YAML wins over env so a deploy can pin a
// full profile in one file.
func Load(log *logger.Logger) (Config, error) {
	cfg := Config{
		AI: AIConfig{
			Provider:                 utils.GetEnv("SENSEBOARD_AI_PROVIDER", ProviderAuto, log),
			OpenAIAPIKey:             utils.GetEnv("OPENAI_API_KEY", "", nil),
			AnthropicAPIKey:          utils.GetEnv("ANTHROPIC_API_KEY", "", nil),
			OpenAIModel:              utils.GetEnv("SENSEBOARD_OPENAI_MODEL", "gpt-4.1-mini", log),
			AnthropicModel:           utils.GetEnv("SENSEBOARD_ANTHROPIC_MODEL", "claude-sonnet-4-20250514", log),
			CodexModel:               utils.GetEnv("SENSEBOARD_CODEX_MODEL", "", log),
			OpenAITranscriptionModel: utils.GetEnv("SENSEBOARD_OPENAI_TRANSCRIPTION_MODEL", "whisper-1", log),
			Review: AIReviewConfig{
				MaxRevisions:        utils.GetEnvAsInt("SENSEBOARD_AI_REVIEW_MAX_REVISIONS", 2, log),
				ConfidenceThreshold: utils.GetEnvAsFloat("SENSEBOARD_AI_REVIEW_CONFIDENCE", 0.62, log),
			},
		},
		Server: ServerConfig{
			Port:         utils.GetEnvAsInt("PORT", 8080, log),
			PortScanSpan: utils.GetEnvAsInt("PORT_SCAN_SPAN", 10, log),
		},
		LogMode: utils.GetEnv("LOG_MODE", "development", nil),
		Capture: CaptureConfig{
			TranscriptionChunksEnabled:   utils.GetEnvAsBool("SENSEBOARD_CAPTURE_AUDIO", false, log),
			TranscriptionChunksDirectory: utils.GetEnv("SENSEBOARD_CAPTURE_AUDIO_DIR", "data/audio-chunks", log),
		},
		Personalization: PersonalizationConfig{
			SQLitePath:      utils.GetEnv("SENSEBOARD_PERSONALIZATION_DB", "data/personalization.db", log),
			MaxContextLines: utils.GetEnvAsInt("SENSEBOARD_PERSONALIZATION_MAX_LINES", 40, log),
		},
		CodexTranscribeFallback:  utils.GetEnvAsBool("SENSEBOARD_ENABLE_CODEX_TRANSCRIBE_FALLBACK", true, log),
		TranscriptArchiveEnabled: utils.GetEnvAsBool("SENSEBOARD_TRANSCRIPT_ARCHIVE_ENABLED", false, log),
		TranscriptArchiveDir:     utils.GetEnv("SENSEBOARD_TRANSCRIPT_ARCHIVE_DIR", "data/transcripts", log),
		RedisAddr:                utils.GetEnv("REDIS_ADDR", "", nil),
		RedisChannel:             utils.GetEnv("REDIS_CHANNEL", "senseboard", nil),
	}

	path := strings.TrimSpace(os.Getenv("SENSEBOARD_CONFIG"))
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config overlay", "path", path)
		}
	}

	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.AI.Provider {
	case ProviderDeterministic, ProviderOpenAI, ProviderAnthropic, ProviderCodexCLI, ProviderAuto:
	case "":
		cfg.AI.Provider = ProviderAuto
	default:
		return fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}
	if cfg.AI.Review.MaxRevisions < 0 {
		cfg.AI.Review.MaxRevisions = 0
	}
	if cfg.AI.Review.ConfidenceThreshold <= 0 || cfg.AI.Review.ConfidenceThreshold > 1 {
		cfg.AI.Review.ConfidenceThreshold = 0.62
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.PortScanSpan < 1 {
		cfg.Server.PortScanSpan = 1
	}
	if cfg.Personalization.MaxContextLines <= 0 {
		cfg.Personalization.MaxContextLines = 40
	}
	return nil
}
