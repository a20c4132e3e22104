package services

import (
	"context"
	"fmt"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

// Agent is one text-generation backend. Responses are raw model text; the
// caller owns JSON extraction and salvage.
type Agent interface {
	Name() string
	CompleteText(ctx context.Context, system, user string) (string, error)
	Preflight(ctx context.Context) error
}

// ResolveAgent picks the generation backend for the configured provider.
// "deterministic" returns a nil agent: the engine then builds everything from
// its own deterministic builders. "auto" walks anthropic, codex_cli, openai
// in order and takes the first agent whose credentials resolve.
func ResolveAgent(cfg config.Config, log *logger.Logger) (Agent, error) {
	switch cfg.AI.Provider {
	case config.ProviderDeterministic:
		return nil, nil
	case config.ProviderOpenAI:
		return NewOpenAIClient(cfg, log)
	case config.ProviderAnthropic:
		return NewAnthropicClient(cfg, log)
	case config.ProviderCodexCLI:
		return NewCodexCLIAgent(cfg, log)
	case config.ProviderAuto:
		if cfg.AI.AnthropicAPIKey != "" {
			return NewAnthropicClient(cfg, log)
		}
		if agent, err := NewCodexCLIAgent(cfg, log); err == nil {
			return agent, nil
		}
		if cfg.AI.OpenAIAPIKey != "" {
			return NewOpenAIClient(cfg, log)
		}
		log.Info("No generation backend available; falling back to deterministic output")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AI.Provider)
	}
}
