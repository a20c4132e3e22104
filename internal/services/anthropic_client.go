package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient speaks the Messages API. Audio transcription rides the same
// endpoint with a base64 audio content block.
type AnthropicClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewAnthropicClient(cfg config.Config, log *logger.Logger) (*AnthropicClient, error) {
	if cfg.AI.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}
	return &AnthropicClient{
		log:        log.With("service", "AnthropicClient"),
		baseURL:    "https://api.anthropic.com",
		apiKey:     cfg.AI.AnthropicAPIKey,
		model:      cfg.AI.AnthropicModel,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		maxRetries: 3,
	}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic" }

// SetBaseURL points the client at a test server.
func (c *AnthropicClient) SetBaseURL(u string) { c.baseURL = u }

type anthropicMessagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	StopReason string `json:"stop_reason,omitempty"`
}

func (c *AnthropicClient) post(ctx context.Context, reqBody anthropicMessagesRequest) (string, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	raw, err := doWithRetry(ctx, c.log, c.httpClient, "anthropic", c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", anthropicVersion)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp anthropicMessagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("anthropic decode error: %w; raw=%s", err, string(raw))
	}
	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("no text content in response")
	}
	return text, nil
}

func (c *AnthropicClient) CompleteText(ctx context.Context, system, user string) (string, error) {
	return c.post(ctx, anthropicMessagesRequest{
		Model:     c.model,
		MaxTokens: 8192,
		System:    system,
		Messages: []anthropicMessage{
			{Role: "user", Content: user},
		},
	})
}

// Transcribe sends the audio blob as a base64 content block and asks for a
// verbatim transcript.
func (c *AnthropicClient) Transcribe(ctx context.Context, blob []byte, mimeType string) (string, error) {
	if len(blob) == 0 {
		return "", fmt.Errorf("empty audio blob")
	}
	content := []map[string]any{
		{
			"type": "input_audio",
			"source": map[string]any{
				"type":       "base64",
				"media_type": mimeType,
				"data":       base64.StdEncoding.EncodeToString(blob),
			},
		},
		{
			"type": "text",
			"text": "Transcribe this audio verbatim. Reply with the transcript text only, no commentary.",
		},
	}
	return c.post(ctx, anthropicMessagesRequest{
		Model:     c.model,
		MaxTokens: 2048,
		Messages: []anthropicMessage{
			{Role: "user", Content: content},
		},
	})
}

// Preflight sends a one-token message to verify credentials and model.
func (c *AnthropicClient) Preflight(ctx context.Context) error {
	_, err := c.post(ctx, anthropicMessagesRequest{
		Model:     c.model,
		MaxTokens: 1,
		Messages: []anthropicMessage{
			{Role: "user", Content: "ping"},
		},
	})
	var httpErr *providerHTTPError
	if err != nil && errors.As(err, &httpErr) {
		return err
	}
	// An empty text body from a one-token reply still proves the credentials.
	return nil
}
