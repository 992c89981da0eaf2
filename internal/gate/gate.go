// Package gate implements the significance assessment: given a metric's
// current report section and freshly retrieved evidence, an LLM decides
// whether the evidence warrants a rewrite and, if so, produces the revised
// section body.
package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/llm"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// ErrGeneration is returned when the model produces an unusable response.
var ErrGeneration = errors.New("assessment generation failed")

// Result is the outcome of one metric's assessment.
type Result struct {
	// Significant reports whether the evidence warrants a rewrite. When
	// false, NewBody and Citation are empty.
	Significant bool
	// NewBody is the proposed replacement for the metric's section body.
	NewBody string
	// Citation attributes the rewrite to the evidence chunk that carried it.
	Citation models.Citation
}

// Gate runs significance assessments.
type Gate struct {
	model llm.LLM
	log   *logger.Logger
}

// New creates a Gate over the given generation backend.
func New(model llm.LLM, log *logger.Logger) *Gate {
	return &Gate{model: model, log: log}
}

// Assess compares the retrieved chunks against the metric's current section
// body. Zero chunks means zero new evidence, which is never significant; the
// model is not consulted in that case.
func (g *Gate) Assess(ctx context.Context, metric models.Metric, currentBody string, chunks []models.Chunk) (Result, error) {
	if len(chunks) == 0 {
		g.log.WithMetric(metric.Name).Debug("no evidence retrieved, skipping assessment")
		return Result{}, nil
	}

	response, err := g.model.Generate(ctx, buildPrompt(metric, currentBody, chunks))
	if err != nil {
		return Result{}, fmt.Errorf("failed to assess metric '%s': %w", metric.Name, err)
	}

	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return Result{}, fmt.Errorf("%w: model returned an empty response for metric '%s'", ErrGeneration, metric.Name)
	}
	if trimmed == NoUpdateMarker {
		g.log.WithMetric(metric.Name).Info("no significant update needed")
		return Result{}, nil
	}

	result := Result{
		Significant: true,
		NewBody:     trimmed,
		Citation:    resolveCitation(trimmed, chunks),
	}
	g.log.WithMetric(metric.Name).WithSource(result.Citation.SourceName).Info("significant update proposed")
	return result, nil
}

// resolveCitation picks the chunk the rewrite is attributed to. If the
// response names the source file of one of the retrieved chunks, that chunk
// wins; otherwise the closest-ranked chunk is cited.
func resolveCitation(response string, chunks []models.Chunk) models.Citation {
	for _, chunk := range chunks {
		if chunk.SourceName != "" && strings.Contains(response, chunk.SourceName) {
			return models.Citation{SourceName: chunk.SourceName, ChunkID: chunk.ID}
		}
	}
	return models.Citation{SourceName: chunks[0].SourceName, ChunkID: chunks[0].ID}
}
