package services

import (
	"context"
	"time"

	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// DocumentService is the external document-processing service. It owns all
// binary PDF manipulation the pipeline delegates out.
type DocumentService interface {
	// Autotag runs the structural tagging pass over one chunk.
	Autotag(ctx context.Context, document []byte) ([]byte, error)
	// ApplyEnrichment writes generated text into a document.
	ApplyEnrichment(ctx context.Context, document []byte, enrichment models.Enrichment) ([]byte, error)
}

// GenerativeService produces alt text, link text and titles for a document
// payload.
type GenerativeService interface {
	Generate(ctx context.Context, content []byte, kind models.GenerationKind) (string, error)
}

// The orchestrator sequences the pipeline through these stage contracts only;
// it never reaches into a stage's internals.

// SplitStage turns one input document into chunks plus a manifest.
type SplitStage interface {
	Split(ctx context.Context, job models.Job) (*models.Manifest, error)
}

// ChunkStage is one remediation pass over a single chunk. Implementations
// read and write exactly the keys declared on the artifact, are idempotent,
// and never mutate the key they read from.
type ChunkStage interface {
	Process(ctx context.Context, job models.Job, chunk *models.ChunkArtifact) error
}

// MergeStage recombines all enriched chunks into one document and returns the
// merged key.
type MergeStage interface {
	Merge(ctx context.Context, job models.Job, manifest *models.Manifest) (string, error)
}

// TitleStage promotes the merged document to the final key, best-effort
// enriched with a generated title. A non-empty warning reports a degraded
// (title-less) promotion; the returned error is reserved for failures to
// produce the final document at all.
type TitleStage interface {
	Enrich(ctx context.Context, job models.Job, mergedKey string) (finalKey, warning string, err error)
}

// CheckStage runs one accessibility check over a stored document.
type CheckStage interface {
	Check(ctx context.Context, job models.Job, documentKey string, phase models.Phase) (*models.ComplianceReport, error)
}

// JobLog records the job status trail in a durable store. All methods are
// best-effort from the pipeline's point of view; a logging failure never
// decides a job's fate.
type JobLog interface {
	JobStarted(ctx context.Context, job models.Job) error
	StatusChanged(ctx context.Context, jobID string, state models.JobState) error
	JobFinished(ctx context.Context, jobID string, result *models.JobResult, errDetails string) error
}

// NopJobLog discards the status trail.
type NopJobLog struct{}

func (NopJobLog) JobStarted(context.Context, models.Job) error { return nil }
func (NopJobLog) StatusChanged(context.Context, string, models.JobState) error {
	return nil
}
func (NopJobLog) JobFinished(context.Context, string, *models.JobResult, string) error {
	return nil
}

// RetryConfig bounds the per-chunk, per-stage retry budget for transient
// external-service errors.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

// DefaultRetryConfig matches the upload retry budget the pipeline has always
// run with.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 4, InitialBackoff: time.Second}
}
