// Package updates stores proposed report updates while they await review,
// and archives resolved ones for audit.
package updates

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

var (
	// ErrNotFound is returned when no update carries the requested ID.
	ErrNotFound = errors.New("proposed update not found")

	// ErrAlreadyResolved is returned when a reviewer acts on an update that
	// has already been approved or rejected. Review decisions are final.
	ErrAlreadyResolved = errors.New("proposed update already resolved")
)

// Store holds proposed updates. Pending updates live here from the moment
// the pipeline proposes them until a reviewer resolves them.
type Store interface {
	Add(ctx context.Context, update models.ProposedUpdate) error
	Get(ctx context.Context, id string) (models.ProposedUpdate, error)
	// List returns updates filtered by status, newest first. An empty
	// status returns everything.
	List(ctx context.Context, status models.UpdateStatus) ([]models.ProposedUpdate, error)
	// Resolve moves a pending update to approved or rejected. The
	// transition happens at most once.
	Resolve(ctx context.Context, id string, status models.UpdateStatus) (models.ProposedUpdate, error)
}

// MemoryStore is the in-process Store used by single-node deployments and
// tests. Resolved updates are additionally forwarded to an optional Archiver.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]models.ProposedUpdate
	ordered []string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]models.ProposedUpdate)}
}

// Add stores a new proposed update.
func (s *MemoryStore) Add(_ context.Context, update models.ProposedUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[update.ID]; exists {
		return fmt.Errorf("duplicate proposed update id %s", update.ID)
	}
	s.byID[update.ID] = update
	s.ordered = append(s.ordered, update.ID)
	return nil
}

// Get returns the update with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (models.ProposedUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	update, ok := s.byID[id]
	if !ok {
		return models.ProposedUpdate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return update, nil
}

// List returns updates with the given status, newest first.
func (s *MemoryStore) List(_ context.Context, status models.UpdateStatus) ([]models.ProposedUpdate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ProposedUpdate
	for _, id := range s.ordered {
		update := s.byID[id]
		if status == "" || update.Status == status {
			out = append(out, update)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Resolve transitions a pending update to the given terminal status.
func (s *MemoryStore) Resolve(_ context.Context, id string, status models.UpdateStatus) (models.ProposedUpdate, error) {
	if status != models.StatusApproved && status != models.StatusRejected {
		return models.ProposedUpdate{}, fmt.Errorf("invalid resolution status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	update, ok := s.byID[id]
	if !ok {
		return models.ProposedUpdate{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if update.Status != models.StatusPending {
		return models.ProposedUpdate{}, fmt.Errorf("%w: %s is %s", ErrAlreadyResolved, id, update.Status)
	}

	update.Status = status
	update.ResolvedAt = time.Now().UTC()
	s.byID[id] = update
	return update, nil
}

var _ Store = (*MemoryStore)(nil)
