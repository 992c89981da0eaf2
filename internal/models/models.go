// Package models holds the shared data types carried between pipeline
// components: ingested documents, their chunks, tracked metrics, proposed
// report updates and per-run summaries.
package models

import "time"

// Document is an ingested source document. Immutable once created.
type Document struct {
	ID          string    `json:"id"`
	SourceName  string    `json:"source_name"` // original file name, used for citation
	RawText     string    `json:"raw_text"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// Chunk is a bounded passage of a source document, the unit of retrieval.
// Chunks are created at indexing time and never mutated. The ID is derived
// from (source name, sequence index, content hash), so re-ingesting an
// unchanged document reproduces identical IDs and upserts are idempotent.
type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	SourceName    string    `json:"source_name"`
	SequenceIndex int       `json:"sequence_index"`
	Text          string    `json:"text"`
	TokenCount    int       `json:"token_count"`
	Vector        []float32 `json:"vector,omitempty"`
	ContentHash   string    `json:"content_hash"` // SHA-256 of the normalized text
}

// Metric is one tracked report metric. Loaded from the metric-definition
// source once per run and read-only thereafter.
type Metric struct {
	Name string `json:"name"`
	// HeadingPattern optionally overrides the regular expression used to
	// locate the metric's report section. Empty means the default
	// "### <letter>. <Name>" heading shape.
	HeadingPattern string `json:"heading_pattern,omitempty"`
}

// UpdateStatus is the review state of a ProposedUpdate. The only legal
// transition is pending to approved or rejected, exactly once.
type UpdateStatus string

const (
	StatusPending  UpdateStatus = "pending"
	StatusApproved UpdateStatus = "approved"
	StatusRejected UpdateStatus = "rejected"
)

// Citation attributes a proposed update to the source chunk that carried the
// new information.
type Citation struct {
	SourceName string `json:"source_name" bson:"source_name"`
	ChunkID    string `json:"chunk_id" bson:"chunk_id"`
}

// ProposedUpdate is a candidate section rewrite awaiting human review.
// BaselineBody is the section body the assessment compared against; the merge
// controller checks it against the current on-disk report before writing so
// concurrent approvals cannot clobber each other.
type ProposedUpdate struct {
	ID         string `json:"id" bson:"_id"`
	MetricName string `json:"metric_name" bson:"metric_name"`
	// HeadingPattern is carried over from the metric definition so the
	// merge controller locates the same section the assessment did.
	HeadingPattern string       `json:"heading_pattern,omitempty" bson:"heading_pattern,omitempty"`
	NewBody        string       `json:"new_body" bson:"new_body"`
	BaselineBody   string       `json:"baseline_body" bson:"baseline_body"`
	Citation       Citation     `json:"citation" bson:"citation"`
	Status         UpdateStatus `json:"status" bson:"status"`
	RunID          string       `json:"run_id" bson:"run_id"`
	CreatedAt      time.Time    `json:"created_at" bson:"created_at"`
	ResolvedAt     time.Time    `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// RunSummary is the surfaced outcome of one pipeline run. A partial run with
// some metrics skipped due to errors is a valid, reported outcome.
type RunSummary struct {
	RunID             string            `json:"run_id"`
	StartedAt         time.Time         `json:"started_at"`
	FinishedAt        time.Time         `json:"finished_at"`
	DocumentsIngested int               `json:"documents_ingested"`
	DocumentsSkipped  int               `json:"documents_skipped"`
	ChunksIndexed     int               `json:"chunks_indexed"`
	MetricsAssessed   int               `json:"metrics_assessed"`
	Proposed          int               `json:"proposed"`
	NoUpdate          int               `json:"no_update"`
	Skipped           int               `json:"skipped"`
	MetricErrors      map[string]string `json:"metric_errors,omitempty"` // metric name -> failure reason
}
