package lm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alexcherry/audiocast/internal/domain"
)

const (
	summarizeInputCap = 12000
	filenameInputCap  = 4000
)

// Client talks to an OpenAI-compatible chat completions server (LM Studio
// and friends). It implements domain.LanguageModel.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new language model client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// ListModels returns the IDs the backend currently serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build models request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("models request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("models request returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}

	ids := make([]string, 0, len(payload.Data))
	for _, model := range payload.Data {
		if model.ID != "" {
			ids = append(ids, model.ID)
		}
	}
	return ids, nil
}

// ValidateModel probes a model with a trivial prompt, falling back from the
// chat endpoint to the legacy completions endpoint. A model is valid when
// either endpoint returns non-empty text.
func (c *Client) ValidateModel(ctx context.Context, modelID string) (domain.ModelValidation, error) {
	var reasons []string

	text, err := c.chat(ctx, modelID, "", "Reply with exactly: ok", 0, 8)
	if err == nil && strings.TrimSpace(text) != "" {
		return domain.ModelValidation{Valid: true}, nil
	}
	if err != nil {
		reasons = append(reasons, "chat/completions: "+err.Error())
	} else {
		reasons = append(reasons, "chat/completions: empty response")
	}

	text, err = c.complete(ctx, modelID, "Reply with exactly: ok")
	if err == nil && strings.TrimSpace(text) != "" {
		return domain.ModelValidation{Valid: true}, nil
	}
	if err != nil {
		reasons = append(reasons, "completions: "+err.Error())
	} else {
		reasons = append(reasons, "completions: empty response")
	}

	reason := strings.Join(reasons, " | ")
	if len(reason) > 1000 {
		reason = reason[:1000]
	}
	return domain.ModelValidation{Valid: false, Reason: reason}, nil
}

// Summarize produces a short plain-text summary of the article.
func (c *Client) Summarize(ctx context.Context, text string, sel domain.LmSelection) (string, error) {
	prompt := "Summarize the following article in 2-4 concise sentences. " +
		"Focus on concrete facts and keep the output plain text.\n\n" +
		"Article:\n" + capText(text, summarizeInputCap)
	return c.chatNonEmpty(ctx, sel.SummaryModelID, prompt)
}

// Filename derives a slug candidate for the audio file name. The
// orchestrator sanitizes whatever comes back.
func (c *Client) Filename(ctx context.Context, text, url string, sel domain.LmSelection) (string, error) {
	prompt := "Generate a short filename slug for an audio file from this article. " +
		"Rules: lowercase, english letters/numbers/hyphen only, 4-10 words, no extension, no extra text.\n\n" +
		"URL: " + url + "\n" +
		"Content:\n" + capText(text, filenameInputCap)
	return c.chatNonEmpty(ctx, sel.FilenameModelID, prompt)
}

func (c *Client) chatNonEmpty(ctx context.Context, modelID, prompt string) (string, error) {
	text, err := c.chat(ctx, modelID, "You are a concise assistant.", prompt, 0.2, 0)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("model %s returned empty response", modelID)
	}
	return text, nil
}

func (c *Client) chat(ctx context.Context, modelID, system, prompt string, temperature float64, maxTokens int) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	payload, err := c.post(ctx, "/chat/completions", chatRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", err
	}
	return extractText(payload), nil
}

func (c *Client) complete(ctx context.Context, modelID, prompt string) (string, error) {
	payload, err := c.post(ctx, "/completions", map[string]any{
		"model":       modelID,
		"prompt":      prompt,
		"temperature": 0,
		"max_tokens":  8,
	})
	if err != nil {
		return "", err
	}
	return extractText(payload), nil
}

func (c *Client) post(ctx context.Context, path string, body any) (map[string]any, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, fmt.Errorf("request returned status %d: %s", resp.StatusCode, string(detail))
	}

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return payload, nil
}

// extractText pulls the generated text out of a completions payload. The
// message content may be a plain string or a list of typed parts depending
// on the model.
func extractText(payload map[string]any) string {
	choices, _ := payload["choices"].([]any)
	if len(choices) == 0 {
		return ""
	}

	first, _ := choices[0].(map[string]any)
	if first == nil {
		return ""
	}

	if message, ok := first["message"].(map[string]any); ok {
		switch content := message["content"].(type) {
		case string:
			return content
		case []any:
			var parts []string
			for _, item := range content {
				part, _ := item.(map[string]any)
				if part == nil || part["type"] != "text" {
					continue
				}
				if text, ok := part["text"].(string); ok {
					parts = append(parts, text)
				}
			}
			return strings.Join(parts, " ")
		}
	}

	if text, ok := first["text"].(string); ok {
		return text
	}
	return ""
}

func capText(text string, limit int) string {
	if len(text) > limit {
		return text[:limit]
	}
	return text
}
