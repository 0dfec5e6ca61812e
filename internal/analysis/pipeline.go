// Package analysis runs an accepted document through the analysis stages:
// request, format, classify. Each stage either yields a value or a typed
// error that is returned to the caller unchanged.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/medreport/analyzer/internal/models"
	"github.com/medreport/analyzer/internal/report"
)

// ErrNoFile is returned when a run is attempted without an accepted file.
var ErrNoFile = errors.New("no file selected")

// Requester sends a document to the analysis service and returns its text.
type Requester interface {
	Analyze(ctx context.Context, f *models.UploadedFile) (string, error)
}

// Pipeline chains the analysis stages.
type Pipeline struct {
	requester Requester
	logger    *slog.Logger
}

// NewPipeline creates a pipeline around the given requester.
func NewPipeline(requester Requester, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		requester: requester,
		logger:    logger.With("component", "pipeline"),
	}
}

// Run analyzes f. The file is read only here, so callers that captured f at
// submission time are unaffected by later selections.
func (p *Pipeline) Run(ctx context.Context, f *models.UploadedFile) (*models.AnalysisResult, error) {
	if f == nil {
		return nil, ErrNoFile
	}

	start := time.Now()
	logger := p.logger.With("file", f.Name, "mime_type", f.MimeType)

	text, err := p.requester.Analyze(ctx, f)
	if err != nil {
		logger.Warn("analysis request failed", "error", err)
		return nil, fmt.Errorf("requesting analysis: %w", err)
	}

	result := &models.AnalysisResult{
		Text:         text,
		HTML:         report.FormatAnalysis(text),
		Verification: report.Classify(text),
		DurationMs:   time.Since(start).Milliseconds(),
	}

	logger.Info("analysis complete",
		"verification", result.Verification.Label,
		"chars", len(text),
		"duration_ms", result.DurationMs)

	return result, nil
}
