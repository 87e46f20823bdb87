package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures. The kind decides propagation:
// transient kinds are retried locally, fatal kinds fail the job, and
// EnrichmentDegraded is recorded as a warning only.
type ErrorKind string

const (
	KindMalformedInput     ErrorKind = "MALFORMED_INPUT"
	KindTransientService   ErrorKind = "TRANSIENT_SERVICE_ERROR"
	KindRemediationFailed  ErrorKind = "REMEDIATION_FAILED"
	KindIncompleteMerge    ErrorKind = "INCOMPLETE_MERGE"
	KindEnrichmentDegraded ErrorKind = "ENRICHMENT_DEGRADED"
)

// PipelineError carries the failure kind, the stage it happened in and, for
// chunk-scoped failures, the offending chunk index.
type PipelineError struct {
	Kind       ErrorKind
	Stage      string
	ChunkIndex int // -1 when not chunk-scoped
	Err        error
}

func (e *PipelineError) Error() string {
	if e.ChunkIndex >= 0 {
		return fmt.Sprintf("%s: %s (chunk %d): %v", e.Stage, e.Kind, e.ChunkIndex, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewError wraps err as a job-scoped pipeline error.
func NewError(kind ErrorKind, stage string, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, ChunkIndex: -1, Err: err}
}

// NewChunkError wraps err as a chunk-scoped pipeline error.
func NewChunkError(kind ErrorKind, stage string, chunkIndex int, err error) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, ChunkIndex: chunkIndex, Err: err}
}

// KindOf returns the kind of the nearest PipelineError in err's chain, or ""
// for unclassified errors.
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ChunkIndexOf returns the chunk index of the nearest chunk-scoped
// PipelineError in err's chain, or -1.
func ChunkIndexOf(err error) int {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.ChunkIndex
	}
	return -1
}

// IsTransient reports whether err is a retryable service error.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransientService
}
