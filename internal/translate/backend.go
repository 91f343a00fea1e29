// Package translate dispatches sentences to a translation backend in
// concurrent batches and keeps a per-language-pair glossary of results.
package translate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

var (
	// ErrCancelled is returned when translation stops because its context ended.
	ErrCancelled = errors.New("translation cancelled")
	// ErrBatchMismatch is returned when a backend answers a batch with the wrong number of items.
	ErrBatchMismatch = errors.New("backend returned mismatched batch")
	// ErrUnknownBackend is returned by NewBackend for an unregistered name.
	ErrUnknownBackend = errors.New("unknown translation backend")
)

// Backend translates batches of text. Results map 1:1 by position to the
// input texts.
type Backend interface {
	Name() string
	// MaxBatchSize is the largest number of texts accepted per call.
	MaxBatchSize() int
	TranslateBatch(ctx context.Context, texts []string, source, target string) ([]string, error)
}

// BackendConfig carries credentials and endpoints for the built-in backends.
type BackendConfig struct {
	DeepLAPIKey     string
	DeepLAPIURL     string
	AnthropicAPIKey string
	AnthropicModel  string
	Stats           *LatencyStats
	Log             *slog.Logger
}

type backendFactory func(cfg BackendConfig) (Backend, error)

var factories = map[string]backendFactory{
	"deepl": func(cfg BackendConfig) (Backend, error) {
		if cfg.DeepLAPIKey == "" {
			return nil, fmt.Errorf("deepl: API key not configured")
		}
		return NewDeepL(cfg.DeepLAPIKey, cfg.DeepLAPIURL, cfg.Stats, cfg.Log), nil
	},
	"claude": func(cfg BackendConfig) (Backend, error) {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("claude: API key not configured")
		}
		return NewClaude(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.Stats, cfg.Log), nil
	},
	"passthrough": func(BackendConfig) (Backend, error) {
		return Passthrough{}, nil
	},
}

// NewBackend builds the backend registered under name.
func NewBackend(name string, cfg BackendConfig) (Backend, error) {
	f, ok := factories[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return f(cfg)
}

// BackendNames lists registered backend names.
func BackendNames() []string {
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Passthrough returns its input unchanged. Useful for dry runs.
type Passthrough struct{}

func (Passthrough) Name() string      { return "passthrough" }
func (Passthrough) MaxBatchSize() int { return 25 }

func (Passthrough) TranslateBatch(_ context.Context, texts []string, _, _ string) ([]string, error) {
	return append([]string(nil), texts...), nil
}
