// Package pipeline orchestrates one update run: ingest new documents, index
// their chunks, retrieve evidence per tracked metric, run the significance
// gate, and queue proposed updates for human review.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/archive"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/backend"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/config"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/embedding"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/gate"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/index"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/ingest"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/metrics"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/report"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/retrieve"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/updates"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/ratelimiter"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/retry"
)

// flusher is implemented by indexes that buffer writes. The pipeline flushes
// between the indexing and retrieval phases so retrieval sees the new chunks.
type flusher interface {
	Flush(ctx context.Context) error
}

// Pipeline wires the run's components together. All fields are required
// except where noted.
type Pipeline struct {
	Scanner   *ingest.Scanner
	Chunker   *ingest.Chunker
	Embedder  embedding.Embedding
	Index     index.Index
	Retriever *retrieve.Retriever
	Gate      *gate.Gate
	Report    *report.File
	Store     updates.Store

	// Archive, when set, receives a copy of every successfully indexed
	// source document. Failures are logged and ignored.
	Archive  *archive.DocumentArchive
	InputDir string

	// Limiter, when set, throttles calls into the embedding and generation
	// backends.
	Limiter *ratelimiter.TokenBucket

	MetricsPath string
	Workers     int
	RetryPolicy retry.Policy

	Log *logger.Logger
}

// throttle waits for backend quota when a limiter is configured.
func (p *Pipeline) throttle(ctx context.Context) error {
	if p.Limiter == nil {
		return nil
	}
	return p.Limiter.Wait(ctx)
}

// New assembles a Pipeline from loaded configuration and constructed
// backends.
func New(cfg *config.AppConfig, embedder embedding.Embedding, idx index.Index, model *gate.Gate, store updates.Store, log *logger.Logger) (*Pipeline, error) {
	tokenizer, err := ingest.NewTiktokenTokenizer()
	if err != nil {
		return nil, err
	}
	chunker, err := ingest.NewChunker(cfg.Pipeline.ChunkTokens, cfg.Pipeline.ChunkOverlap, tokenizer)
	if err != nil {
		return nil, err
	}

	policy := retry.DefaultPolicy(backend.IsTransient)
	policy.Attempts = cfg.Pipeline.RetryAttempts

	var limiter *ratelimiter.TokenBucket
	if cfg.Pipeline.BackendRPS > 0 {
		limiter = ratelimiter.NewTokenBucket(cfg.Pipeline.BackendRPS, cfg.Pipeline.Workers)
	}

	return &Pipeline{
		Scanner:     ingest.NewScanner(cfg.Ingest.InputDir, log),
		Chunker:     chunker,
		Embedder:    embedder,
		Index:       idx,
		Retriever:   retrieve.NewRetriever(embedder, idx, cfg.Pipeline.RetrievalK, log),
		Gate:        model,
		Report:      report.NewFile(cfg.Report.Path),
		Store:       store,
		InputDir:    cfg.Ingest.InputDir,
		Limiter:     limiter,
		MetricsPath: cfg.Metrics.Path,
		Workers:     cfg.Pipeline.Workers,
		RetryPolicy: policy,
		Log:         log,
	}, nil
}

// Run executes one full pipeline run. Per-metric failures are recorded in
// the summary and never abort the run; only configuration errors and
// cancellation do.
func (p *Pipeline) Run(ctx context.Context) (models.RunSummary, error) {
	runID := uuid.New().String()
	log := p.Log.WithPayload(map[string]interface{}{"run_id": runID})
	summary := models.RunSummary{
		RunID:        runID,
		StartedAt:    time.Now().UTC(),
		MetricErrors: make(map[string]string),
	}

	trackedMetrics, err := metrics.Load(p.MetricsPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load metric definitions: %w", err)
	}
	log.WithPayload(map[string]interface{}{"metrics": len(trackedMetrics)}).Info("starting pipeline run")

	if err := p.indexDocuments(ctx, runID, &summary); err != nil {
		return summary, err
	}

	if err := p.assessMetrics(ctx, runID, trackedMetrics, &summary); err != nil {
		return summary, err
	}

	summary.FinishedAt = time.Now().UTC()
	log.WithPayload(map[string]interface{}{
		"proposed":  summary.Proposed,
		"no_update": summary.NoUpdate,
		"skipped":   summary.Skipped,
		"errors":    len(summary.MetricErrors),
	}).Info("pipeline run finished")
	return summary, nil
}

// indexDocuments scans the input directory, then chunks, embeds and upserts
// every document. Documents are processed concurrently; a failed document is
// logged and skipped, it never sinks the run.
func (p *Pipeline) indexDocuments(ctx context.Context, runID string, summary *models.RunSummary) error {
	docs, skipped, err := p.Scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan input directory: %w", err)
	}
	summary.DocumentsSkipped = skipped

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			indexed, err := p.indexOne(gctx, runID, doc)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, backend.ErrConfig) || errors.Is(err, context.Canceled) {
					return err
				}
				summary.DocumentsSkipped++
				p.Log.WithSource(doc.SourceName).WithError(err).Warn("failed to index document")
				return nil
			}
			summary.DocumentsIngested++
			summary.ChunksIndexed += indexed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if f, ok := p.Index.(flusher); ok && summary.ChunksIndexed > 0 {
		if err := retry.Do(ctx, p.RetryPolicy, f.Flush); err != nil {
			return fmt.Errorf("failed to flush index: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) indexOne(ctx context.Context, runID string, doc models.Document) (int, error) {
	chunks, err := p.Chunker.Chunk(doc)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var vectors [][]float32
	err = retry.Do(ctx, p.RetryPolicy, func(ctx context.Context) error {
		if err := p.throttle(ctx); err != nil {
			return err
		}
		var embedErr error
		vectors, embedErr = p.Embedder.EmbedBatch(ctx, texts)
		return embedErr
	})
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding count %d does not match chunk count %d", len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}

	err = retry.Do(ctx, p.RetryPolicy, func(ctx context.Context) error {
		return p.Index.Upsert(ctx, chunks)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	if p.Archive != nil {
		path := filepath.Join(p.InputDir, doc.SourceName)
		if err := p.Archive.Store(ctx, runID, doc, path); err != nil {
			p.Log.WithSource(doc.SourceName).WithError(err).Warn("failed to archive source document")
		}
	}
	return len(chunks), nil
}

// assessMetrics retrieves evidence and runs the significance gate for every
// tracked metric, against a single report snapshot taken before the first
// assessment.
func (p *Pipeline) assessMetrics(ctx context.Context, runID string, trackedMetrics []models.Metric, summary *models.RunSummary) error {
	snapshot, err := p.Report.Read()
	if err != nil {
		return err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)

	for _, metric := range trackedMetrics {
		metric := metric
		g.Go(func() error {
			outcome, err := p.assessOne(gctx, runID, metric, snapshot)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
			case errors.Is(err, backend.ErrConfig), errors.Is(err, context.Canceled):
				return err
			case errors.Is(err, index.ErrEmpty):
				summary.Skipped++
				p.Log.WithMetric(metric.Name).Debug("index is empty, nothing to assess")
				return nil
			case errors.Is(err, report.ErrDuplicateSection):
				summary.Skipped++
				summary.MetricErrors[metric.Name] = err.Error()
				p.Log.WithMetric(metric.Name).WithError(err).Warn("metric heading is ambiguous in the report")
				return nil
			default:
				summary.Skipped++
				summary.MetricErrors[metric.Name] = err.Error()
				p.Log.WithMetric(metric.Name).WithError(err).Error("metric assessment failed")
				return nil
			}

			summary.MetricsAssessed++
			if outcome {
				summary.Proposed++
			} else {
				summary.NoUpdate++
			}
			return nil
		})
	}
	return g.Wait()
}

// assessOne runs retrieval and the gate for one metric. It returns true when
// a significant update was proposed.
func (p *Pipeline) assessOne(ctx context.Context, runID string, metric models.Metric, snapshot string) (bool, error) {
	// A metric not yet written into the report is assessed against an
	// empty baseline; the section must exist by the time the proposal is
	// approved.
	baseline := ""
	section, err := report.FindSection(snapshot, metric)
	switch {
	case err == nil:
		baseline = section.Body
	case errors.Is(err, report.ErrSectionNotFound):
	default:
		return false, err
	}

	var chunks []models.Chunk
	err = retry.Do(ctx, p.RetryPolicy, func(ctx context.Context) error {
		if err := p.throttle(ctx); err != nil {
			return err
		}
		var retrieveErr error
		chunks, retrieveErr = p.Retriever.Retrieve(ctx, metric)
		return retrieveErr
	})
	if err != nil {
		return false, err
	}

	var result gate.Result
	err = retry.Do(ctx, p.RetryPolicy, func(ctx context.Context) error {
		if err := p.throttle(ctx); err != nil {
			return err
		}
		var assessErr error
		result, assessErr = p.Gate.Assess(ctx, metric, baseline, chunks)
		return assessErr
	})
	if err != nil {
		return false, err
	}
	if !result.Significant {
		return false, nil
	}

	update := models.ProposedUpdate{
		ID:             uuid.New().String(),
		MetricName:     metric.Name,
		HeadingPattern: metric.HeadingPattern,
		NewBody:        result.NewBody,
		BaselineBody:   baseline,
		Citation:       result.Citation,
		Status:         models.StatusPending,
		RunID:          runID,
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.Store.Add(ctx, update); err != nil {
		return false, fmt.Errorf("failed to queue proposed update: %w", err)
	}
	return true, nil
}
