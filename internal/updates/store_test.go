package updates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

func pendingUpdate(id, metric string, createdAt time.Time) models.ProposedUpdate {
	return models.ProposedUpdate{
		ID:         id,
		MetricName: metric,
		NewBody:    "new body for " + metric,
		Status:     models.StatusPending,
		RunID:      "run-1",
		CreatedAt:  createdAt,
	}
}

func TestMemoryStore_AddAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Add(ctx, pendingUpdate("u1", "Churn Rate", now)))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Churn Rate", got.MetricName)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestMemoryStore_AddRejectsDuplicateID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, pendingUpdate("u1", "Churn Rate", time.Now())))
	assert.Error(t, store.Add(ctx, pendingUpdate("u1", "Churn Rate", time.Now())))
}

func TestMemoryStore_GetUnknownIDFails(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListFiltersByStatusNewestFirst(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, store.Add(ctx, pendingUpdate("old", "Churn Rate", base.Add(-time.Hour))))
	require.NoError(t, store.Add(ctx, pendingUpdate("new", "Net Promoter Score", base)))
	_, err := store.Resolve(ctx, "old", models.StatusRejected)
	require.NoError(t, err)

	pending, err := store.List(ctx, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "new", pending[0].ID)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "old", all[1].ID)
}

func TestMemoryStore_ResolveTransitionsOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, pendingUpdate("u1", "Churn Rate", time.Now())))

	resolved, err := store.Resolve(ctx, "u1", models.StatusApproved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, resolved.Status)
	assert.False(t, resolved.ResolvedAt.IsZero())

	_, err = store.Resolve(ctx, "u1", models.StatusRejected)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestMemoryStore_ResolveRejectsNonTerminalStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, pendingUpdate("u1", "Churn Rate", time.Now())))
	_, err := store.Resolve(ctx, "u1", models.StatusPending)
	assert.Error(t, err)
}
