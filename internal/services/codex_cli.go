package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

const (
	codexRunTimeout  = 45 * time.Second
	codexPingTimeout = 30 * time.Second
)

// CodexCLIAgent shells out to a local `codex` binary. Prompts go through a
// temp file so shell quoting never touches model input.
type CodexCLIAgent struct {
	log    *logger.Logger
	binary string
	model  string
}

func NewCodexCLIAgent(cfg config.Config, log *logger.Logger) (*CodexCLIAgent, error) {
	binary, err := exec.LookPath("codex")
	if err != nil {
		return nil, fmt.Errorf("codex binary not found: %w", err)
	}
	return &CodexCLIAgent{
		log:    log.With("service", "CodexCLIAgent"),
		binary: binary,
		model:  cfg.AI.CodexModel,
	}, nil
}

func (a *CodexCLIAgent) Name() string { return "codex_cli" }

func (a *CodexCLIAgent) run(ctx context.Context, timeout time.Duration, prompt string, extraFiles ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	promptFile := filepath.Join(os.TempDir(), "senseboard-prompt-"+uuid.New().String()[:8]+".txt")
	if err := os.WriteFile(promptFile, []byte(prompt), 0o600); err != nil {
		return "", fmt.Errorf("write prompt file: %w", err)
	}
	defer os.Remove(promptFile)

	args := []string{"exec", "--skip-git-repo-check"}
	if a.model != "" {
		args = append(args, "--model", a.model)
	}
	for _, f := range extraFiles {
		args = append(args, "--file", f)
	}
	args = append(args, "--prompt-file", promptFile)

	cmd := exec.CommandContext(ctx, a.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("codex run timed out after %s", timeout)
		}
		return "", fmt.Errorf("codex run failed: %w; stderr=%s", err, strings.TrimSpace(stderr.String()))
	}
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("codex returned no output")
	}
	return out, nil
}

func (a *CodexCLIAgent) CompleteText(ctx context.Context, system, user string) (string, error) {
	prompt := user
	if system != "" {
		prompt = system + "\n\n" + user
	}
	return a.run(ctx, codexRunTimeout, prompt)
}

// Transcribe writes the audio blob next to the prompt and asks the CLI to
// transcribe it. The temp file is removed on every path.
func (a *CodexCLIAgent) Transcribe(ctx context.Context, blob []byte, ext string) (string, error) {
	if len(blob) == 0 {
		return "", fmt.Errorf("empty audio blob")
	}
	if ext == "" {
		ext = ".webm"
	}
	audioFile := filepath.Join(os.TempDir(), "senseboard-audio-"+uuid.New().String()[:8]+ext)
	if err := os.WriteFile(audioFile, blob, 0o600); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioFile)

	prompt := "Transcribe the attached audio file verbatim. Reply with the transcript text only."
	return a.run(ctx, codexRunTimeout, prompt, audioFile)
}

// Preflight asks for a trivial completion with a short timeout.
func (a *CodexCLIAgent) Preflight(ctx context.Context) error {
	_, err := a.run(ctx, codexPingTimeout, "Reply with the single word: ok")
	return err
}
