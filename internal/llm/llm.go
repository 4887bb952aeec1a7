package llm

import (
	"context"
	"fmt"

	"github.com/nao1215/satyagyan/internal/config"
)

// Request is a single prompt sent to a model.
type Request struct {
	// System sets the role the model plays.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature is the sampling temperature. Zero uses the client default.
	Temperature float64

	// JSON asks the model to answer with a single JSON object.
	JSON bool
}

// Client completes prompts.
type Client interface {
	// Complete returns the model's text answer to req.
	Complete(ctx context.Context, req Request) (string, error)
}

// New builds the client selected by cfg.Provider and wraps it in the
// configured rate limit.
func New(ctx context.Context, cfg *config.Config) (Client, error) {
	var (
		client Client
		err    error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, config.EnvOpenAIAPIKey)
		}
		client = NewOpenAIClient(cfg.OpenAIAPIKey,
			WithModel(cfg.ModelName()),
			WithBaseURL(cfg.OpenAIBaseURL),
			WithTemperature(cfg.Temperature),
		)
	case config.ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: set %s", ErrMissingAPIKey, config.EnvGeminiAPIKey)
		}
		client, err = NewGeminiClient(ctx, cfg.GeminiAPIKey,
			WithModel(cfg.ModelName()),
			WithTemperature(cfg.Temperature),
		)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	return RateLimited(client, cfg.RequestsPerMinute), nil
}

type options struct {
	model       string
	baseURL     string
	temperature float64
}

// Option configures a provider client.
type Option func(*options)

// WithModel sets the model name.
func WithModel(name string) Option {
	return func(o *options) {
		if name != "" {
			o.model = name
		}
	}
}

// WithBaseURL points the OpenAI client at a compatible endpoint.
// It has no effect on Gemini.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = u
		}
	}
}

// WithTemperature sets the temperature used when a request leaves it at zero.
func WithTemperature(t float64) Option {
	return func(o *options) {
		o.temperature = t
	}
}

func newOptions(defaultModel string, opts []Option) options {
	o := options{
		model:       defaultModel,
		temperature: config.DefaultTemperature,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) temperatureFor(req Request) float32 {
	if req.Temperature > 0 {
		return float32(req.Temperature)
	}
	return float32(o.temperature)
}
