package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/report"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/updates"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// ErrMergeConflict is returned when the report section changed after the
// update was proposed. The update is stale; the reviewer should re-run the
// pipeline to get a fresh assessment.
var ErrMergeConflict = errors.New("report section changed since the update was proposed")

// Merger applies approved updates to the baseline report. All merges are
// serialized through a single mutex, so two approvals can never interleave
// their read-modify-write cycles.
type Merger struct {
	mu       chan struct{}
	file     *report.File
	store    updates.Store
	archiver updates.Archiver // optional
	log      *logger.Logger
}

// NewMerger creates a Merger. archiver may be nil, in which case resolved
// updates are kept only in the store.
func NewMerger(file *report.File, store updates.Store, archiver updates.Archiver, log *logger.Logger) *Merger {
	m := &Merger{mu: make(chan struct{}, 1), file: file, store: store, archiver: archiver, log: log}
	m.mu <- struct{}{}
	return m
}

// lock acquires the merge mutex, honoring cancellation.
func (m *Merger) lock(ctx context.Context) error {
	select {
	case <-m.mu:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Merger) unlock() {
	m.mu <- struct{}{}
}

// Approve merges the update into the report and marks it approved. The
// merge is conflict-checked: if the target section no longer matches the
// body the assessment compared against, the update is refused with
// ErrMergeConflict and stays pending.
//
// Approving an update whose body is already in the report is an idempotent
// success, so a retried approval after a crashed write cannot conflict with
// itself.
func (m *Merger) Approve(ctx context.Context, id string) (models.ProposedUpdate, error) {
	if err := m.lock(ctx); err != nil {
		return models.ProposedUpdate{}, err
	}
	defer m.unlock()

	update, err := m.store.Get(ctx, id)
	if err != nil {
		return models.ProposedUpdate{}, err
	}
	if update.Status != models.StatusPending {
		return models.ProposedUpdate{}, fmt.Errorf("%w: %s is %s", updates.ErrAlreadyResolved, id, update.Status)
	}

	metric := models.Metric{Name: update.MetricName, HeadingPattern: update.HeadingPattern}
	content, err := m.file.Read()
	if err != nil {
		return models.ProposedUpdate{}, err
	}
	section, err := report.FindSection(content, metric)
	if err != nil {
		return models.ProposedUpdate{}, err
	}

	switch {
	case section.Body == report.NormalizeBody(update.NewBody):
		// Already applied, only the resolution is missing.
	case section.Body == update.BaselineBody:
		merged, err := report.ReplaceSection(content, metric, update.NewBody)
		if err != nil {
			return models.ProposedUpdate{}, err
		}
		if err := m.file.Write(merged); err != nil {
			return models.ProposedUpdate{}, err
		}
	default:
		return models.ProposedUpdate{}, fmt.Errorf("%w: metric '%s'", ErrMergeConflict, update.MetricName)
	}

	resolved, err := m.store.Resolve(ctx, id, models.StatusApproved)
	if err != nil {
		return models.ProposedUpdate{}, err
	}
	m.archive(ctx, resolved)
	m.log.WithMetric(resolved.MetricName).Info("approved update merged into report")
	return resolved, nil
}

// Reject marks the update rejected without touching the report.
func (m *Merger) Reject(ctx context.Context, id string) (models.ProposedUpdate, error) {
	resolved, err := m.store.Resolve(ctx, id, models.StatusRejected)
	if err != nil {
		return models.ProposedUpdate{}, err
	}
	m.archive(ctx, resolved)
	m.log.WithMetric(resolved.MetricName).Info("update rejected")
	return resolved, nil
}

// archive forwards a resolved update to the archiver. Archive failures are
// logged and swallowed: the review decision stands regardless.
func (m *Merger) archive(ctx context.Context, update models.ProposedUpdate) {
	if m.archiver == nil {
		return
	}
	if err := m.archiver.Archive(ctx, update); err != nil {
		m.log.WithMetric(update.MetricName).WithError(err).Warn("failed to archive resolved update")
	}
}
