// Package aiextract extracts statement line items from table exports with a
// chat model, as an alternative to per-company row configuration.
package aiextract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"finparser/core"
	"finparser/logging"
)

var (
	// ErrNotConfigured is returned when the selected provider has no API key.
	ErrNotConfigured = errors.New("aiextract: LLM provider not configured")

	// ErrEmptyResponse is returned when the model produced no content.
	ErrEmptyResponse = errors.New("aiextract: empty response from model")

	// ErrProviderUnavailable is returned while the circuit breaker is open.
	ErrProviderUnavailable = errors.New("aiextract: LLM provider unavailable")
)

// Completion is a model reply.
type Completion struct {
	Text       string
	Model      string
	TokensUsed int
}

// Provider sends a system and user prompt to a chat model and asks for a
// JSON object in return.
type Provider interface {
	// Name is the extraction method recorded on results, e.g. "openai"
	Name() string
	Complete(ctx context.Context, system, user string) (*Completion, error)
}

// NewProvider builds the provider selected by cfg.LLMProvider, wrapped in a
// circuit breaker. ErrNotConfigured is returned when its key is missing.
func NewProvider(ctx context.Context, cfg *core.Config, logger *logging.Logger) (Provider, error) {
	if !cfg.HasLLM() {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, cfg.LLMProvider)
	}
	httpClient := core.GetHTTPClient(cfg.AITimeout)

	var (
		p   Provider
		err error
	)
	switch cfg.LLMProvider {
	case core.ProviderGemini:
		p, err = NewGeminiProvider(ctx, GeminiConfig{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			HTTPClient: httpClient,
		})
	default:
		p = NewOpenAIProvider(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIAPIBaseURL,
			Model:      cfg.OpenAIModel,
			HTTPClient: httpClient,
		})
	}
	if err != nil {
		return nil, err
	}
	return WithBreaker(p, 3, time.Minute, logger), nil
}

type breakerProvider struct {
	Provider
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker wraps p so that after threshold consecutive failures calls are
// rejected for openTimeout.
func WithBreaker(p Provider, threshold uint32, openTimeout time.Duration, logger *logging.Logger) Provider {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("llm")
	if threshold == 0 {
		threshold = 1
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "llm-" + p.Name(),
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &breakerProvider{Provider: p, breaker: breaker}
}

func (b *breakerProvider) Complete(ctx context.Context, system, user string) (*Completion, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.Provider.Complete(ctx, system, user)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.(*Completion), nil
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return core.GetHTTPClient(0)
}
