package models

import "fmt"

// Job is one end-to-end remediation request for one input document. It is the
// single source of job context: every stage receives it by value and derives
// nothing on its own.
type Job struct {
	ID         string
	InputKey   string
	FolderPath string
	BaseName   string
}

// JobState is the orchestrator's position in the pipeline state machine.
type JobState string

const (
	StatePreCheck        JobState = "PRE_CHECK"
	StateSplitting       JobState = "SPLITTING"
	StateRemediating     JobState = "REMEDIATING"
	StateMerging         JobState = "MERGING"
	StateTitleGeneration JobState = "TITLE_GENERATION"
	StatePostCheck       JobState = "POST_CHECK"
	StateDone            JobState = "DONE"
	StateFailed          JobState = "FAILED"
)

// ChunkState tracks a chunk's progress through its remediation stages. A
// chunk never reverts to an earlier state.
type ChunkState string

const (
	ChunkSplit      ChunkState = "SPLIT"
	ChunkAutotagged ChunkState = "AUTOTAGGED"
	ChunkEnriched   ChunkState = "ENRICHED"
	ChunkMerged     ChunkState = "MERGED"
)

// ChunkArtifact is one unit of parallel work. The orchestrator wires all three
// keys up front from the key layout; each worker stage reads and writes
// exactly the keys declared here.
type ChunkArtifact struct {
	Index       int
	ChunkKey    string
	AutotagKey  string
	EnrichedKey string
	State       ChunkState
}

// ChunkDescriptor is one manifest entry. Index defines merge order.
type ChunkDescriptor struct {
	Index    int    `json:"chunkIndex"`
	Key      string `json:"chunkKey"`
	FromPage int    `json:"fromPage"`
	ThruPage int    `json:"thruPage"`
}

// Pages is the number of pages covered by the descriptor.
func (d ChunkDescriptor) Pages() int {
	return d.ThruPage - d.FromPage + 1
}

// Manifest is the ordered record of a job's chunks, produced once by the
// splitter and read-only thereafter.
type Manifest struct {
	JobID       string            `json:"jobId"`
	TotalChunks int               `json:"totalChunks"`
	Chunks      []ChunkDescriptor `json:"chunks"`
}

// Validate checks the manifest invariant: at least one chunk, and indices
// contiguous 0..TotalChunks-1 in order with no gaps or duplicates.
func (m *Manifest) Validate() error {
	if m.TotalChunks < 1 {
		return fmt.Errorf("manifest has %d chunks, need at least 1", m.TotalChunks)
	}
	if len(m.Chunks) != m.TotalChunks {
		return fmt.Errorf("manifest lists %d chunks but declares %d", len(m.Chunks), m.TotalChunks)
	}
	for i, c := range m.Chunks {
		if c.Index != i {
			return fmt.Errorf("manifest chunk at position %d has index %d", i, c.Index)
		}
	}
	return nil
}

// RemediationResult is the per-chunk outcome of the remediation fan-out.
type RemediationResult struct {
	ChunkIndex int
	OutputKey  string
	Skipped    bool // never dispatched because the job had already failed
	Err        error
}

// Failed reports whether the chunk terminally failed remediation.
func (r RemediationResult) Failed() bool { return r.Err != nil }

// Phase tags a compliance check as running before or after remediation.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// Finding is a single compliance issue.
type Finding struct {
	Rule        string `json:"rule"`
	Description string `json:"description"`
}

// ComplianceReport is the structured output of an accessibility check. It is
// immutable once written.
type ComplianceReport struct {
	JobID  string    `json:"jobId"`
	Phase  Phase     `json:"phase"`
	Issues []Finding `json:"issues"`
	Passed bool      `json:"passed"`
}

// JobResult is what the orchestrator returns and persists for a job.
type JobResult struct {
	JobID        string            `json:"jobId"`
	State        JobState          `json:"state"`
	FinalKey     string            `json:"finalKey,omitempty"`
	PreCheck     *ComplianceReport `json:"preCheckReport,omitempty"`
	PostCheck    *ComplianceReport `json:"postCheckReport,omitempty"`
	FailedChunks []int             `json:"failedChunks,omitempty"`
	Warnings     []string          `json:"warnings,omitempty"`
}
