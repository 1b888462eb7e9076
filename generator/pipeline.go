package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"diploma_generator/metrics"
)

// Pipeline drives the section catalogue through an LLMClient, one section at
// a time and strictly in catalogue order.
type Pipeline struct {
	llm      LLMClient
	sections []SectionSpec
	system   string
	logger   *slog.Logger

	now   func() time.Time
	newID func() uuid.UUID
}

// PipelineOption customises a Pipeline.
type PipelineOption func(*Pipeline)

// WithSections replaces the default catalogue. The slice is copied.
func WithSections(sections []SectionSpec) PipelineOption {
	return func(p *Pipeline) {
		p.sections = append([]SectionSpec(nil), sections...)
	}
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(system string) PipelineOption {
	return func(p *Pipeline) {
		p.system = system
	}
}

func NewPipeline(llm LLMClient, logger *slog.Logger, opts ...PipelineOption) (*Pipeline, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	p := &Pipeline{
		llm:      llm,
		sections: DefaultSections(),
		system:   DefaultSystemPrompt,
		logger:   logger.With("component", "pipeline"),
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(p)
	}

	if len(p.sections) == 0 {
		return nil, fmt.Errorf("%w: section catalogue is empty", ErrInvalidConfig)
	}
	for i, s := range p.sections {
		if err := validate.Struct(s); err != nil {
			return nil, fmt.Errorf("%w: section %d: %v", ErrInvalidConfig, i+1, err)
		}
	}
	if p.system == "" {
		return nil, fmt.Errorf("%w: system prompt is empty", ErrInvalidConfig)
	}
	return p, nil
}

// Sections returns a copy of the catalogue in generation order.
func (p *Pipeline) Sections() []SectionSpec {
	return append([]SectionSpec(nil), p.sections...)
}

// Generate runs every section for req. The request must already be valid.
// The returned Run is never nil; on failure it is in RunFailed, holds no
// document, and the error is a *SectionError naming the failing section.
func (p *Pipeline) Generate(ctx context.Context, req GenerationRequest) (*Run, error) {
	run := newRun(p.newID(), req, len(p.sections))
	logger := p.logger.With("run_id", run.ID.String())

	run.begin(p.now())
	metrics.RunsInFlight.Inc()
	defer metrics.RunsInFlight.Dec()

	logger.InfoContext(ctx, "generation started",
		"topic", req.Topic,
		"specialty", req.Specialty,
		"pages", req.Pages,
		"sections", run.Total)

	for i, spec := range p.sections {
		run.advance(i)

		text, err := p.generateSection(ctx, spec, req)
		if err != nil {
			serr := &SectionError{Index: i, Title: spec.Title, Err: err}
			run.fail(serr, p.now())
			metrics.Runs.WithLabelValues(string(RunFailed)).Inc()
			logger.ErrorContext(ctx, "generation failed",
				"section", i+1,
				"title", spec.Title,
				"cancelled", run.Cancelled,
				"error", err)
			return run, serr
		}

		run.append(Section{Title: spec.Title, Text: text})
		metrics.SectionsGenerated.Inc()
		logger.InfoContext(ctx, "section generated",
			"section", i+1,
			"title", spec.Title,
			"length", len(text))
	}

	run.complete(p.now())
	metrics.Runs.WithLabelValues(string(RunCompleted)).Inc()
	metrics.RunDuration.Observe(run.Duration().Seconds())
	logger.InfoContext(ctx, "generation completed",
		"duration", run.Duration().String(),
		"length", len(run.Document.Text))

	return run, nil
}

func (p *Pipeline) generateSection(ctx context.Context, spec SectionSpec, req GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	raw, err := p.llm.Complete(ctx, BuildSectionPrompt(p.system, spec, req))
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, ErrCancelled) {
			return "", fmt.Errorf("%w: %w", ErrCancelled, err)
		}
		return "", err
	}
	return normalize(raw), nil
}
