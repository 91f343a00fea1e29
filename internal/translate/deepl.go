package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultDeepLURL = "https://api-free.deepl.com/v2/translate"

// DeepL translates through the DeepL REST API.
type DeepL struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	stats      *LatencyStats
	log        *slog.Logger
}

func NewDeepL(apiKey, endpoint string, stats *LatencyStats, log *slog.Logger) *DeepL {
	if endpoint == "" {
		endpoint = defaultDeepLURL
	}
	return &DeepL{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
		stats: stats,
		log:   log,
	}
}

func (d *DeepL) Name() string      { return "deepl" }
func (d *DeepL) MaxBatchSize() int { return 25 }

func (d *DeepL) TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	d.log.Debug("deepl batch", "items", len(texts), "source", source, "target", target)
	return withRetry(ctx, d.log, d.Name(), func() ([]string, error) {
		return d.translateBatch(ctx, texts, source, target)
	})
}

func (d *DeepL) translateBatch(ctx context.Context, texts []string, source, target string) ([]string, error) {
	form := url.Values{}
	for _, t := range texts {
		form.Add("text", t)
	}
	form.Set("target_lang", deeplLangCode(target))
	if source != "" && source != "auto" {
		form.Set("source_lang", deeplSourceCode(source))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	start := time.Now()
	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepl api: %w", err)
	}
	defer resp.Body.Close()
	d.stats.Since(d.Name(), start)

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepl api status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var deeplResp struct {
		Translations []struct {
			Text string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return nil, fmt.Errorf("%w: decode deepl response: %v", ErrBatchMismatch, err)
	}
	if len(deeplResp.Translations) != len(texts) {
		return nil, fmt.Errorf("%w: sent %d texts, got %d translations", ErrBatchMismatch, len(texts), len(deeplResp.Translations))
	}

	out := make([]string, len(texts))
	for i, tr := range deeplResp.Translations {
		out[i] = tr.Text
	}
	return out, nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL target codes.
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"en": "EN-US",
		"pt": "PT-BR",
		"zh": "ZH",
	}
	code = strings.ToLower(code)
	if mapped, ok := mapping[code]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}

// deeplSourceCode converts ISO 639-1 codes to DeepL source codes, which
// carry no regional variant.
func deeplSourceCode(code string) string {
	code = strings.ToUpper(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return code
}
