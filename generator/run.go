package generator

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RunState is the lifecycle position of one pipeline run.
type RunState string

const (
	RunIdle       RunState = "idle"
	RunGenerating RunState = "generating"
	RunCompleted  RunState = "completed"
	RunFailed     RunState = "failed"
)

// Run records one pass of the pipeline over the section catalogue.
// A run is owned by the goroutine executing it until Generate returns.
type Run struct {
	ID      uuid.UUID         `json:"id"`
	Request GenerationRequest `json:"request"`
	State   RunState          `json:"state"`
	// Current is the index of the section being generated, or the failing one.
	Current       int       `json:"current"`
	Total         int       `json:"total"`
	FailedSection string    `json:"failed_section,omitempty"`
	Cancelled     bool      `json:"cancelled,omitempty"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Document      *Document `json:"document,omitempty"`

	sections []Section
}

func newRun(id uuid.UUID, req GenerationRequest, total int) *Run {
	return &Run{
		ID:      id,
		Request: req,
		State:   RunIdle,
		Total:   total,
	}
}

func (r *Run) begin(now time.Time) {
	r.State = RunGenerating
	r.StartedAt = now
	r.sections = make([]Section, 0, r.Total)
}

func (r *Run) advance(i int) {
	r.Current = i
}

func (r *Run) append(s Section) {
	r.sections = append(r.sections, s)
}

func (r *Run) complete(now time.Time) {
	r.State = RunCompleted
	r.FinishedAt = now
	r.Current = r.Total
	r.Document = &Document{
		Sections: r.sections,
		Text:     Assemble(r.sections),
	}
	r.sections = nil
}

// fail discards every section generated so far.
func (r *Run) fail(err *SectionError, now time.Time) {
	r.State = RunFailed
	r.FinishedAt = now
	r.FailedSection = err.Title
	r.Cancelled = errors.Is(err, ErrCancelled)
	r.Error = err.Error()
	r.sections = nil
}

// Duration is the wall time of a finished run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
