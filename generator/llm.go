package generator

import (
	"context"
	"time"
)

// LLMClient generates text for a system+user prompt pair.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the explicit remote-service configuration handed to a client.
type LLMSettings struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	Temperature    float64
	RequestTimeout time.Duration
	Retry          RetryPolicy
}
