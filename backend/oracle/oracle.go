// Package oracle talks to the hosted text-generation models that write roadmaps.
//
// The service treats a model as a black box: one prompt in, one blob of text out.
// All structure is imposed later by the extractor in package services.
package oracle

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"career-roadmap/backend/config"
	"career-roadmap/backend/utils"
)

// Oracle performs a single, non-streaming text completion.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// HTTPError is returned when the provider answers with a non-2xx status.
type HTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s http %d: %s", e.Provider, e.StatusCode, truncate(e.Body, 512))
}

// New builds the client for cfg.Provider and wraps it in a circuit breaker.
// The entry point owns the returned value for the life of the process.
func New(cfg config.OracleConfig, log *utils.Logger) (Oracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("oracle %s: missing api key", cfg.Provider)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	var base Oracle
	switch cfg.Provider {
	case config.ProviderGemini:
		base = NewGeminiClient(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient)
	case config.ProviderOpenAI:
		base = NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, httpClient)
	default:
		return nil, fmt.Errorf("unsupported oracle provider %q", cfg.Provider)
	}

	log.Info("oracle configured", "provider", cfg.Provider, "model", cfg.Model, "timeout", timeout.String())
	return NewBreaker(base, BreakerSettings{
		MaxRequests:      cfg.BreakerMaxRequests,
		Interval:         cfg.BreakerInterval,
		Timeout:          cfg.BreakerTimeout,
		FailureThreshold: cfg.BreakerFailureThreshold,
		MinRequests:      cfg.BreakerMinRequests,
	}, log), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
