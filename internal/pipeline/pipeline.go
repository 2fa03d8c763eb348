// Package pipeline runs a document's pages through an ordered sequence of
// processing stages and collects the outcome of one conversion, with
// per-stage timings, under a correlation ID.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/simjak/docling/internal/logger"
	"github.com/simjak/docling/pkg/models"
)

// Stage is one processing step applied to every page of a conversion.
// Stages mutate pages in place; a stage that has nothing to do for a page
// returns nil without touching it.
type Stage interface {
	Name() string
	ProcessPage(ctx context.Context, page *models.Page) error
}

// Status is the terminal state of a conversion.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// ConversionResult accumulates the outcome of converting one document.
type ConversionResult struct {
	// ID correlates log lines and outputs of one conversion run.
	ID string `json:"id"`

	// Input names the source document.
	Input string `json:"input"`

	Pages  []*models.Page `json:"pages"`
	Status Status         `json:"status"`

	// Error carries the failure diagnostic when Status is failure.
	Error string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Timings holds the recorded durations per scope, one entry per
	// recorded span, in recording order. Informational only.
	Timings map[string][]time.Duration `json:"timings,omitempty"`
}

// NewConversionResult starts tracking a conversion of the named input.
func NewConversionResult(input string) *ConversionResult {
	return &ConversionResult{
		ID:        uuid.New().String(),
		Input:     input,
		StartedAt: time.Now(),
		Timings:   make(map[string][]time.Duration),
	}
}

// RecordTiming appends a measured duration under the scope name.
func (r *ConversionResult) RecordTiming(scope string, d time.Duration) {
	r.Timings[scope] = append(r.Timings[scope], d)
}

// Elapsed returns the total wall-clock time of the conversion.
func (r *ConversionResult) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline applies stages to pages in order: every stage runs on a page
// before the next page starts, so page state is complete when it leaves the
// pipeline.
type Pipeline struct {
	stages []Stage
}

// New creates a pipeline from the given stages, applied in argument order.
func New(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Run processes every page through every stage and returns the accumulated
// result. The first stage error aborts the run; the returned result then
// carries StatusFailure and the failure diagnostic alongside the error.
func (p *Pipeline) Run(ctx context.Context, input string, pages []*models.Page) (*ConversionResult, error) {
	res := NewConversionResult(input)
	res.Pages = pages
	log := logger.WithConversion("pipeline", res.ID)

	log.Info().
		Str("input", input).
		Int("pages", len(pages)).
		Int("stages", len(p.stages)).
		Msg("Starting conversion")

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("page", page.Number).Msg("Conversion canceled")
			return fail(res, err)
		}
		for _, stage := range p.stages {
			rec := NewTimeRecorder(res, stage.Name())
			err := stage.ProcessPage(ctx, page)
			rec.Stop()
			if err != nil {
				log.Error().
					Err(err).
					Int("page", page.Number).
					Str("stage", stage.Name()).
					Msg("Stage failed")
				return fail(res, err)
			}
		}
	}

	res.Status = StatusSuccess
	res.FinishedAt = time.Now()
	log.Info().
		Dur("elapsed", res.Elapsed()).
		Int("pages", len(res.Pages)).
		Msg("Conversion completed")
	return res, nil
}

func fail(res *ConversionResult, err error) (*ConversionResult, error) {
	res.Status = StatusFailure
	res.Error = err.Error()
	res.FinishedAt = time.Now()
	return res, err
}
