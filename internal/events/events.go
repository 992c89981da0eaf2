// Package events publishes pipeline lifecycle events to Kafka so downstream
// consumers (dashboards, notification bots) can react to runs and review
// decisions without polling the API.
package events

import (
	"context"
	"time"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
)

// Event types carried on the topic.
const (
	TypeRunCompleted   = "run_completed"
	TypeUpdateResolved = "update_resolved"
)

// Event is the wire format of one published event. Exactly one of Summary
// and Update is set, matching the event type.
type Event struct {
	Type       string                 `json:"type"`
	OccurredAt time.Time              `json:"occurred_at"`
	Summary    *models.RunSummary     `json:"summary,omitempty"`
	Update     *models.ProposedUpdate `json:"update,omitempty"`
}

// Publisher emits pipeline events. Publishing is best-effort everywhere it
// is called: a failed publish is logged, never propagated.
type Publisher interface {
	RunCompleted(ctx context.Context, summary models.RunSummary) error
	UpdateResolved(ctx context.Context, update models.ProposedUpdate) error
}

// NopPublisher is used when no Kafka brokers are configured.
type NopPublisher struct{}

func (NopPublisher) RunCompleted(context.Context, models.RunSummary) error      { return nil }
func (NopPublisher) UpdateResolved(context.Context, models.ProposedUpdate) error { return nil }

var _ Publisher = NopPublisher{}
