package generator

import (
	"context"
	"strings"
)

// MockLLM is a deterministic offline client for local runs; it never calls a
// remote model. The same prompt always yields the same text.
type MockLLM struct{}

func (m MockLLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("Цей розділ згенеровано без звернення до моделі.\n\n")
	for _, line := range strings.Split(prompt.User, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
