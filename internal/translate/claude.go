package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const defaultClaudeModel = "claude-sonnet-4-5"

// Claude translates through the Anthropic Messages API, sending each batch
// as a JSON array and expecting a JSON array of the same length back.
type Claude struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
	stats      *LatencyStats
	log        *slog.Logger
}

func NewClaude(apiKey, model string, stats *LatencyStats, log *slog.Logger) *Claude {
	if model == "" {
		model = defaultClaudeModel
	}
	return &Claude{
		apiKey:   apiKey,
		model:    model,
		endpoint: "https://api.anthropic.com/v1/messages",
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		stats: stats,
		log:   log,
	}
}

func (c *Claude) Name() string      { return "claude" }
func (c *Claude) MaxBatchSize() int { return 25 }

// Model returns the configured model name.
func (c *Claude) Model() string { return c.model }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

const translationSystemPrompt = `You translate subtitle sentences. The user message is a JSON array of strings in the source language. Respond with ONLY a JSON array of strings of exactly the same length, where element i is the translation of input element i. Keep each translation a single sentence, preserve names, and do not merge or split elements.`

// BuildPrompt renders the user message for a batch.
func BuildPrompt(texts []string, source, target string) (string, error) {
	payload, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("marshal texts: %w", err)
	}
	from := source
	if from == "" || from == "auto" {
		from = "the detected language"
	}
	return fmt.Sprintf("Translate from %s to %s.\n\n%s", from, target, payload), nil
}

func (c *Claude) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	c.log.Debug("claude batch", "items", len(texts), "source", source, "target", target, "model", c.model)
	return withRetry(ctx, c.log, c.Name(), func() ([]string, error) {
		return c.translateBatch(ctx, texts, source, target)
	})
}

func (c *Claude) translateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	prompt, err := BuildPrompt(texts, source, target)
	if err != nil {
		return nil, err
	}
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 4096,
		System:    translationSystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()
	c.stats.Since(c.Name(), start)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("%w: empty response from claude", ErrBatchMismatch)
	}

	text := stripCodeBlock(apiResp.Content[0].Text)

	var out []string
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("%w: parse translations json: %v (raw: %s)", ErrBatchMismatch, err, truncate(text, 200))
	}
	if len(out) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d translations", ErrBatchMismatch, len(texts), len(out))
	}
	return out, nil
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// Close releases resources.
func (c *Claude) Close() {
	c.httpClient.CloseIdleConnections()
}
