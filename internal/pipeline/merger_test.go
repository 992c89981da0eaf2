package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/report"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/updates"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

const mergerReport = `# Brand Loyalty Baseline

### A. Repeat Purchase Rate

Held steady at 34% through Q1.

### B. Churn Rate

Monthly churn remained at 2.1%.
`

func newMergerFixture(t *testing.T) (*Merger, *report.File, *updates.MemoryStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "baseline.md")
	require.NoError(t, os.WriteFile(path, []byte(mergerReport), 0o644))
	file := report.NewFile(path)
	store := updates.NewMemoryStore()
	return NewMerger(file, store, nil, logger.New("merge", "run-test")), file, store
}

func proposal(t *testing.T, store *updates.MemoryStore, file *report.File, metricName, newBody string) string {
	t.Helper()
	content, err := file.Read()
	require.NoError(t, err)
	section, err := report.FindSection(content, models.Metric{Name: metricName})
	require.NoError(t, err)

	id := uuid.New().String()
	require.NoError(t, store.Add(context.Background(), models.ProposedUpdate{
		ID:           id,
		MetricName:   metricName,
		NewBody:      newBody,
		BaselineBody: section.Body,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}))
	return id
}

func TestApprove_MergesAndResolves(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	id := proposal(t, store, file, "Churn Rate", "Monthly churn improved to 1.8% in Q2.")

	resolved, err := merger.Approve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, resolved.Status)

	content, err := file.Read()
	require.NoError(t, err)
	assert.Contains(t, content, "improved to 1.8%")
	assert.NotContains(t, content, "2.1%")
	assert.Contains(t, content, "Held steady at 34% through Q1.")
}

func TestApprove_UsesCustomHeadingPattern(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.md")
	content := `# Brand Loyalty Baseline

## Brand Trust

Trust scores held at 61 in the spring wave.

### A. Churn Rate

Monthly churn remained at 2.1%.
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	file := report.NewFile(path)
	store := updates.NewMemoryStore()
	merger := NewMerger(file, store, nil, logger.New("merge", "run-test"))

	metric := models.Metric{Name: "Brand Trust", HeadingPattern: `^## Brand Trust$`}
	section, err := report.FindSection(content, metric)
	require.NoError(t, err)

	id := uuid.New().String()
	require.NoError(t, store.Add(context.Background(), models.ProposedUpdate{
		ID:             id,
		MetricName:     metric.Name,
		HeadingPattern: metric.HeadingPattern,
		NewBody:        "Trust scores rose to 66 in the summer wave.",
		BaselineBody:   section.Body,
		Status:         models.StatusPending,
		CreatedAt:      time.Now(),
	}))

	resolved, err := merger.Approve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, resolved.Status)

	merged, err := file.Read()
	require.NoError(t, err)
	assert.Contains(t, merged, "rose to 66 in the summer wave")
	assert.NotContains(t, merged, "held at 61")
	assert.Contains(t, merged, "Monthly churn remained at 2.1%.")
}

func TestApprove_MissingSectionIsNotFound(t *testing.T) {
	merger, _, store := newMergerFixture(t)

	id := uuid.New().String()
	require.NoError(t, store.Add(context.Background(), models.ProposedUpdate{
		ID:         id,
		MetricName: "Share of Wallet",
		NewBody:    "Share of wallet reached 34% among repeat buyers.",
		Status:     models.StatusPending,
		CreatedAt:  time.Now(),
	}))

	_, err := merger.Approve(context.Background(), id)
	assert.ErrorIs(t, err, report.ErrSectionNotFound)

	// The proposal stays pending so it can be approved once the section
	// heading is added to the report.
	update, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, update.Status)
}

func TestApprove_StaleBaselineConflicts(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	id := proposal(t, store, file, "Churn Rate", "Monthly churn improved to 1.8% in Q2.")

	// The section moves on after the proposal was made.
	content, err := file.Read()
	require.NoError(t, err)
	edited, err := report.ReplaceSection(content, models.Metric{Name: "Churn Rate"}, "Manually corrected to 2.4%.")
	require.NoError(t, err)
	require.NoError(t, file.Write(edited))

	_, err = merger.Approve(context.Background(), id)
	assert.ErrorIs(t, err, ErrMergeConflict)

	// The conflicting update stays pending and the manual edit survives.
	update, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, update.Status)
	content, err = file.Read()
	require.NoError(t, err)
	assert.Contains(t, content, "Manually corrected to 2.4%.")
}

func TestApprove_AlreadyAppliedBodyIsIdempotent(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	newBody := "Monthly churn improved to 1.8% in Q2."
	id := proposal(t, store, file, "Churn Rate", newBody)

	// Simulate a crash after the write but before the resolution: the body
	// is already in the report when the approval is retried.
	content, err := file.Read()
	require.NoError(t, err)
	merged, err := report.ReplaceSection(content, models.Metric{Name: "Churn Rate"}, newBody)
	require.NoError(t, err)
	require.NoError(t, file.Write(merged))

	resolved, err := merger.Approve(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, resolved.Status)
}

func TestApprove_ResolvedUpdateIsRefused(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	id := proposal(t, store, file, "Churn Rate", "new body")

	_, err := merger.Reject(context.Background(), id)
	require.NoError(t, err)

	_, err = merger.Approve(context.Background(), id)
	assert.ErrorIs(t, err, updates.ErrAlreadyResolved)
}

func TestReject_LeavesReportUntouched(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	id := proposal(t, store, file, "Churn Rate", "Monthly churn improved to 1.8% in Q2.")

	resolved, err := merger.Reject(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, resolved.Status)

	content, err := file.Read()
	require.NoError(t, err)
	assert.Equal(t, mergerReport, content)
}

func TestApprove_ConcurrentApprovalsOfDifferentMetricsBothLand(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	churnID := proposal(t, store, file, "Churn Rate", "Churn fell to 1.8%.")
	repeatID := proposal(t, store, file, "Repeat Purchase Rate", "Rose to 37% in Q2.")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{churnID, repeatID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = merger.Approve(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	content, err := file.Read()
	require.NoError(t, err)
	assert.Contains(t, content, "Churn fell to 1.8%.")
	assert.Contains(t, content, "Rose to 37% in Q2.")
}

func TestApprove_ConcurrentApprovalsOfSameMetricOneWins(t *testing.T) {
	merger, file, store := newMergerFixture(t)
	first := proposal(t, store, file, "Churn Rate", "Churn fell to 1.8%.")
	second := proposal(t, store, file, "Churn Rate", "Churn fell to 1.5%.")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first, second} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = merger.Approve(context.Background(), id)
		}(i, id)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrMergeConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)
}
