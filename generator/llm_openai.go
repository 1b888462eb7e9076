package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"diploma_generator/metrics"
)

const defaultTemperature = 0.7

// OpenAILLM implements LLMClient over the openai-go chat completions API and
// retries HTTP 429 responses itself. The SDK's own retries are disabled so
// every attempt passes through the policy below.
type OpenAILLM struct {
	model       string
	temperature float64
	policy      RetryPolicy
	client      openai.Client
	logger      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewOpenAILLMFromConfig builds a client from explicit settings. Nothing is
// read from the environment here.
func NewOpenAILLMFromConfig(cfg *LLMSettings, logger *slog.Logger) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: llm config is nil", ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai api key missing; provide llm.api_key", ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: llm model is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}

	policy := cfg.Retry
	if policy == (RetryPolicy{}) {
		policy = DefaultRetryPolicy()
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	return &OpenAILLM{
		model:       cfg.Model,
		temperature: temperature,
		policy:      policy.withDefaults(),
		client:      openai.NewClient(opts...),
		logger:      logger.With("component", "llm", "model", cfg.Model),
		sleep:       sleepContext,
		now:         time.Now,
	}, nil
}

// Complete returns the first completion's content, or "" when the service
// returns no choices. Rate-limited attempts are retried up to
// policy.MaxRetries times; every other failure is returned immediately.
func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	retries := 0
	for {
		o.logger.DebugContext(ctx, "llm request", "attempt", retries+1)

		text, err := o.attempt(ctx, prompt)
		if err == nil {
			metrics.LLMRequests.WithLabelValues("success").Inc()
			return text, nil
		}

		if errors.Is(err, ErrCancelled) {
			metrics.LLMRequests.WithLabelValues("cancelled").Inc()
			return "", err
		}

		var rl *RateLimitError
		if !errors.As(err, &rl) {
			metrics.LLMRequests.WithLabelValues("error").Inc()
			return "", err
		}
		metrics.LLMRequests.WithLabelValues("rate_limited").Inc()

		retries++
		if retries > o.policy.MaxRetries {
			o.logger.ErrorContext(ctx, "llm rate limit retries exhausted",
				"retries", o.policy.MaxRetries,
				"status", rl.Status)
			return "", fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, o.policy.MaxRetries, rl)
		}

		delay, source := o.policy.Delay(retries, rl.RetryAfter, o.now())
		o.logger.WarnContext(ctx, "llm rate limit hit, retrying",
			"attempt", retries,
			"delay_seconds", delay.Seconds(),
			"source", source,
			"status", rl.Status)
		metrics.LLMRetries.WithLabelValues(source).Inc()
		metrics.LLMBackoff.Observe(delay.Seconds())

		if err := o.sleep(ctx, delay); err != nil {
			metrics.LLMRequests.WithLabelValues("cancelled").Inc()
			return "", fmt.Errorf("%w: %w", ErrCancelled, err)
		}
	}
}

func (o *OpenAILLM) attempt(ctx context.Context, prompt Prompt) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(prompt.System),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(o.temperature),
	})
	if err != nil {
		return "", classify(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps an SDK error onto RateLimitError, APIError or ErrCancelled.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return &APIError{Err: err}
	}

	body := apiErr.RawJSON()
	if apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("Retry-After")
		}
		return &RateLimitError{
			Status:     apiErr.StatusCode,
			RetryAfter: retryAfter,
			Body:       body,
		}
	}

	return &APIError{
		Status: apiErr.StatusCode,
		Body:   body,
		Err:    err,
	}
}
