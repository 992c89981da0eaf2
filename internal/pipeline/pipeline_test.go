package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/gate"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/index"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/ingest"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/report"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/retrieve"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/updates"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/retry"
)

// splitTokenizer is a deterministic word-level ingest.Tokenizer for tests.
type splitTokenizer struct {
	lookup []string
	ids    map[string]int
}

func newSplitTokenizer() *splitTokenizer {
	return &splitTokenizer{ids: make(map[string]int)}
}

func (t *splitTokenizer) Encode(text string) []int {
	var tokens []int
	for _, w := range strings.Fields(text) {
		id, ok := t.ids[w]
		if !ok {
			id = len(t.lookup)
			t.ids[w] = id
			t.lookup = append(t.lookup, w)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (t *splitTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = t.lookup[id]
	}
	return strings.Join(words, " ")
}

// lengthEmbedder embeds any text as a one-dimensional vector of its length,
// which is deterministic and good enough for brute-force retrieval.
type lengthEmbedder struct{}

func (lengthEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text))}, nil
}

func (e lengthEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(context.Background(), t)
	}
	return out, nil
}

// scriptedLLM answers per metric name found in the prompt and records every
// prompt it sees.
type scriptedLLM struct {
	responses map[string]string

	mu      sync.Mutex
	prompts []string
}

func (s *scriptedLLM) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	for metricName, response := range s.responses {
		if strings.Contains(prompt, "**Metric Name:** "+metricName) {
			return response, nil
		}
	}
	return gate.NoUpdateMarker, nil
}

func (s *scriptedLLM) promptFor(metricName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prompts {
		if strings.Contains(p, "**Metric Name:** "+metricName) {
			return p
		}
	}
	return ""
}

const pipelineReport = `# Brand Loyalty Baseline

### A. Churn Rate

Monthly churn remained at 2.1%.

### B. Net Promoter Score

NPS was last measured at 42.
`

const pipelineMetrics = `| Metric | Definition |
| --- | --- |
| **Churn Rate** | Monthly cancellations. |
| **Net Promoter Score** | Standard NPS survey. |
| **Share of Wallet** | Not yet in the report. |
`

func newTestPipeline(t *testing.T, inputDir string, model *scriptedLLM) (*Pipeline, *updates.MemoryStore) {
	t.Helper()
	dir := t.TempDir()

	reportPath := filepath.Join(dir, "baseline.md")
	require.NoError(t, os.WriteFile(reportPath, []byte(pipelineReport), 0o644))
	metricsPath := filepath.Join(dir, "metrics.md")
	require.NoError(t, os.WriteFile(metricsPath, []byte(pipelineMetrics), 0o644))

	log := logger.New("pipeline", "run-test")
	chunker, err := ingest.NewChunker(50, 5, newSplitTokenizer())
	require.NoError(t, err)

	embedder := lengthEmbedder{}
	idx := index.NewMemoryIndex()
	store := updates.NewMemoryStore()

	return &Pipeline{
		Scanner:     ingest.NewScanner(inputDir, log),
		Chunker:     chunker,
		Embedder:    embedder,
		Index:       idx,
		Retriever:   retrieve.NewRetriever(embedder, idx, 5, log),
		Gate:        gate.New(model, log),
		Report:      report.NewFile(reportPath),
		Store:       store,
		MetricsPath: metricsPath,
		Workers:     2,
		RetryPolicy: retry.Policy{Attempts: 1},
		Log:         log,
	}, store
}

func TestRun_ProposesGatedUpdates(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "q2_survey.md"),
		[]byte("Churn analysis for Q2 shows monthly cancellations improved to 1.8 percent."), 0o644))

	model := &scriptedLLM{responses: map[string]string{
		"Churn Rate":         "Monthly churn improved to 1.8% in Q2. Source: q2_survey.md",
		"Net Promoter Score": gate.NoUpdateMarker,
	}}
	p, store := newTestPipeline(t, inputDir, model)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 1, summary.DocumentsIngested)
	assert.GreaterOrEqual(t, summary.ChunksIndexed, 1)
	assert.Equal(t, 3, summary.MetricsAssessed)
	assert.Equal(t, 1, summary.Proposed)
	// Share of Wallet has no report section yet and is assessed against an
	// empty baseline, not treated as an error.
	assert.Equal(t, 2, summary.NoUpdate)
	assert.Zero(t, summary.Skipped)
	assert.Empty(t, summary.MetricErrors)

	pending, err := store.List(context.Background(), models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	update := pending[0]
	assert.Equal(t, "Churn Rate", update.MetricName)
	assert.Equal(t, summary.RunID, update.RunID)
	assert.Contains(t, update.NewBody, "1.8%")
	assert.Contains(t, update.BaselineBody, "2.1%")
	assert.Equal(t, "q2_survey.md", update.Citation.SourceName)
}

func TestRun_MetricWithoutSectionAssessedAgainstEmptyBaseline(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "wallet_study.md"),
		[]byte("Share of wallet reached 34 percent among repeat buyers."), 0o644))

	model := &scriptedLLM{responses: map[string]string{
		"Share of Wallet": "Share of wallet reached 34% among repeat buyers. Source: wallet_study.md",
	}}
	p, store := newTestPipeline(t, inputDir, model)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.MetricErrors)
	assert.Equal(t, 1, summary.Proposed)

	prompt := model.promptFor("Share of Wallet")
	require.NotEmpty(t, prompt)
	assert.Contains(t, prompt, "(no existing text for this metric)")

	pending, err := store.List(context.Background(), models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Share of Wallet", pending[0].MetricName)
	assert.Empty(t, pending[0].BaselineBody)
	assert.Contains(t, pending[0].NewBody, "34%")
}

func TestRun_NoDocumentsMeansNothingAssessed(t *testing.T) {
	model := &scriptedLLM{responses: map[string]string{}}
	p, store := newTestPipeline(t, t.TempDir(), model)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, summary.DocumentsIngested)
	assert.Zero(t, summary.ChunksIndexed)
	assert.Zero(t, summary.MetricsAssessed)
	assert.Zero(t, summary.Proposed)
	// The index is empty, so every metric is skipped without being an error.
	assert.Equal(t, 3, summary.Skipped)
	assert.NotContains(t, summary.MetricErrors, "Churn Rate")

	pending, err := store.List(context.Background(), models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRun_ReportIsNeverModifiedByARun(t *testing.T) {
	inputDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(inputDir, "q2_survey.md"),
		[]byte("Churn improved to 1.8 percent."), 0o644))

	model := &scriptedLLM{responses: map[string]string{
		"Churn Rate": "Monthly churn improved to 1.8% in Q2.",
	}}
	p, _ := newTestPipeline(t, inputDir, model)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	content, err := p.Report.Read()
	require.NoError(t, err)
	assert.Equal(t, pipelineReport, content)
}

func TestRun_UnparseableMetricsFileAbortsRun(t *testing.T) {
	p, _ := newTestPipeline(t, t.TempDir(), &scriptedLLM{})
	p.MetricsPath = filepath.Join(t.TempDir(), "missing.md")

	_, err := p.Run(context.Background())
	assert.Error(t, err)
}
