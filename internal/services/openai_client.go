package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/yungbote/senseboard-backend/internal/config"
	"github.com/yungbote/senseboard-backend/internal/logger"
)

// OpenAIClient speaks the Responses API for generation and the audio
// transcription endpoint for speech.
type OpenAIClient struct {
	log                *logger.Logger
	baseURL            string
	apiKey             string
	model              string
	transcriptionModel string
	httpClient         *http.Client
	maxRetries         int
}

func NewOpenAIClient(cfg config.Config, log *logger.Logger) (*OpenAIClient, error) {
	if cfg.AI.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return &OpenAIClient{
		log:                log.With("service", "OpenAIClient"),
		baseURL:            "https://api.openai.com",
		apiKey:             cfg.AI.OpenAIAPIKey,
		model:              cfg.AI.OpenAIModel,
		transcriptionModel: cfg.AI.OpenAITranscriptionModel,
		httpClient:         &http.Client{Timeout: 90 * time.Second},
		maxRetries:         3,
	}, nil
}

func (c *OpenAIClient) Name() string { return "openai" }

// SetBaseURL points the client at a test server.
func (c *OpenAIClient) SetBaseURL(u string) { c.baseURL = u }

type openAIResponsesRequest struct {
	Model string `json:"model"`
	Input []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"input"`
	Temperature float64 `json:"temperature,omitempty"`
}

type openAIResponsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func (c *OpenAIClient) CompleteText(ctx context.Context, system, user string) (string, error) {
	reqBody := openAIResponsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.2,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	raw, err := doWithRetry(ctx, c.log, c.httpClient, "openai", c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp openAIResponsesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("openai decode error: %w; raw=%s", err, string(raw))
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}

	var text string
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, part := range item.Content {
				if part.Type == "output_text" && part.Text != "" {
					text += part.Text
				}
			}
		}
	}
	if text == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

type openAITranscriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe posts an audio blob to the transcription endpoint and returns
// the recognized text.
func (c *OpenAIClient) Transcribe(ctx context.Context, blob []byte, filename, mimeType string) (string, error) {
	if len(blob) == 0 {
		return "", fmt.Errorf("empty audio blob")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(blob); err != nil {
		return "", err
	}
	if err := writer.WriteField("model", c.transcriptionModel); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	payload := buf.Bytes()
	contentType := writer.FormDataContentType()

	raw, err := doWithRetry(ctx, c.log, c.httpClient, "openai", c.maxRetries, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/transcriptions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var resp openAITranscriptionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("openai transcription decode error: %w; raw=%s", err, string(raw))
	}
	return resp.Text, nil
}

// Preflight verifies the configured model is reachable with the given key.
func (c *OpenAIClient) Preflight(ctx context.Context) error {
	_, err := doWithRetry(ctx, c.log, c.httpClient, "openai", 0, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models/"+c.model, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		return req, nil
	})
	return err
}
