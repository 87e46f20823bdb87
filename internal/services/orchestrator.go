package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// Config holds the orchestrator's runtime policy. It is passed in explicitly
// at construction; nothing is read from ambient state. Stage-local policy
// (chunk size, retry budgets) lives with the stages themselves.
type Config struct {
	MaxConcurrency int
	Layout         keys.Layout
}

// Dependencies wires the pipeline stages together. The orchestrator is the
// only component aware of the full sequence; every stage is invoked through
// its contract only.
type Dependencies struct {
	Store    blob.Store
	Splitter SplitStage
	Autotag  ChunkStage
	Enrich   ChunkStage
	Merger   MergeStage
	Titles   TitleStage
	Checker  CheckStage
	Log      JobLog
}

// JobRequest is the invocation event for one remediation job.
type JobRequest struct {
	InputKey string `json:"inputKey"`
	JobID    string `json:"jobId,omitempty"`
}

// Orchestrator drives one job at a time through the pipeline state machine:
// PreCheck, Splitting, Remediating (parallel), Merging, TitleGeneration,
// PostCheck, Done, with Failed reachable from any stage. Artifacts of failed
// jobs are left in place for inspection; nothing is rolled back.
type Orchestrator struct {
	config Config
	deps   Dependencies
}

func NewOrchestrator(config Config, deps Dependencies) (*Orchestrator, error) {
	if deps.Store == nil || deps.Splitter == nil || deps.Autotag == nil || deps.Enrich == nil ||
		deps.Merger == nil || deps.Titles == nil || deps.Checker == nil {
		return nil, fmt.Errorf("orchestrator: all pipeline stages must be provided")
	}
	if deps.Log == nil {
		deps.Log = NopJobLog{}
	}
	if config.MaxConcurrency < 1 {
		config.MaxConcurrency = 4
	}
	return &Orchestrator{config: config, deps: deps}, nil
}

// Run executes one job to its terminal state. The returned result is
// populated even when the job fails.
func (o *Orchestrator) Run(ctx context.Context, req JobRequest) (*models.JobResult, error) {
	folderPath, baseName, err := o.config.Layout.ParseInputKey(req.InputKey)
	if err != nil {
		return &models.JobResult{JobID: req.JobID, State: models.StateFailed},
			models.NewError(models.KindMalformedInput, "intake", err)
	}
	jobID := req.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}
	job := models.Job{
		ID:         jobID,
		InputKey:   req.InputKey,
		FolderPath: folderPath,
		BaseName:   baseName,
	}
	result := &models.JobResult{JobID: jobID, State: models.StatePreCheck}

	logCtx := slog.With("jobId", jobID, "inputKey", req.InputKey)
	logCtx.Info("Job accepted.", "folderPath", folderPath, "baseName", baseName)
	if err := o.deps.Log.JobStarted(ctx, job); err != nil {
		logCtx.Warn("Failed to create job record.", "error", err)
	}

	// Pre-check is informational: the job proceeds regardless of outcome.
	if report, err := o.deps.Checker.Check(ctx, job, job.InputKey, models.PhaseBefore); err != nil {
		logCtx.Warn("Pre-remediation check failed.", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("pre-check did not run: %v", err))
	} else {
		result.PreCheck = report
		o.persistReport(ctx, logCtx, job, result, report)
	}

	if err := o.transition(ctx, logCtx, result, models.StateSplitting); err != nil {
		return o.fail(ctx, logCtx, result, err)
	}
	manifest, err := o.deps.Splitter.Split(ctx, job)
	if err != nil {
		return o.fail(ctx, logCtx, result, classify(err, models.KindMalformedInput))
	}
	if err := manifest.Validate(); err != nil {
		return o.fail(ctx, logCtx, result, models.NewError(models.KindMalformedInput, "split", err))
	}

	if err := o.transition(ctx, logCtx, result, models.StateRemediating); err != nil {
		return o.fail(ctx, logCtx, result, err)
	}
	artifacts := o.buildArtifacts(job, manifest)
	chunkResults := o.remediateAll(ctx, logCtx, job, artifacts)
	for _, r := range chunkResults {
		// Skipped chunks were never dispatched; only true failures are
		// reported to the caller.
		if r.Failed() && !r.Skipped {
			result.FailedChunks = append(result.FailedChunks, r.ChunkIndex)
		}
	}
	if len(result.FailedChunks) > 0 {
		first := result.FailedChunks[0]
		return o.fail(ctx, logCtx, result, models.NewChunkError(models.KindRemediationFailed, "remediate", first,
			fmt.Errorf("%d of %d chunks failed remediation", len(result.FailedChunks), manifest.TotalChunks)))
	}

	if err := o.transition(ctx, logCtx, result, models.StateMerging); err != nil {
		return o.fail(ctx, logCtx, result, err)
	}
	mergedKey, err := o.deps.Merger.Merge(ctx, job, manifest)
	if err != nil {
		return o.fail(ctx, logCtx, result, classify(err, models.KindIncompleteMerge))
	}
	for i := range artifacts {
		artifacts[i].State = models.ChunkMerged
	}

	if err := o.transition(ctx, logCtx, result, models.StateTitleGeneration); err != nil {
		return o.fail(ctx, logCtx, result, err)
	}
	finalKey, warning, err := o.deps.Titles.Enrich(ctx, job, mergedKey)
	if err != nil {
		return o.fail(ctx, logCtx, result, classify(err, models.KindTransientService))
	}
	result.FinalKey = finalKey
	if warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}

	if err := o.transition(ctx, logCtx, result, models.StatePostCheck); err != nil {
		return o.fail(ctx, logCtx, result, err)
	}
	// The post-check outcome is the compliance signal surfaced to the caller;
	// it never re-routes the state machine.
	if report, err := o.deps.Checker.Check(ctx, job, finalKey, models.PhaseAfter); err != nil {
		logCtx.Warn("Post-remediation check failed.", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("post-check did not run: %v", err))
	} else {
		result.PostCheck = report
		o.persistReport(ctx, logCtx, job, result, report)
	}

	result.State = models.StateDone
	if err := o.deps.Log.JobFinished(ctx, jobID, result, ""); err != nil {
		logCtx.Warn("Failed to finalize job record.", "error", err)
	}
	logCtx.Info("Job complete.", "finalKey", finalKey, "warnings", len(result.Warnings))
	return result, nil
}

// buildArtifacts wires every chunk's read and write keys up front so workers
// never derive paths themselves.
func (o *Orchestrator) buildArtifacts(job models.Job, manifest *models.Manifest) []models.ChunkArtifact {
	artifacts := make([]models.ChunkArtifact, manifest.TotalChunks)
	for _, desc := range manifest.Chunks {
		artifacts[desc.Index] = models.ChunkArtifact{
			Index:       desc.Index,
			ChunkKey:    desc.Key,
			AutotagKey:  o.config.Layout.Autotag(job.FolderPath, job.BaseName, desc.Index),
			EnrichedKey: o.config.Layout.Enriched(job.FolderPath, job.BaseName, desc.Index),
			State:       models.ChunkSplit,
		}
	}
	return artifacts
}

// remediateAll fans out to bounded concurrent chunk tasks and joins on all of
// them. The first failure does not cancel siblings already in flight, but no
// new tasks are dispatched once the job has failed.
func (o *Orchestrator) remediateAll(ctx context.Context, logCtx *slog.Logger, job models.Job, artifacts []models.ChunkArtifact) []models.RemediationResult {
	logCtx.Info("Dispatching chunk remediation.", "totalChunks", len(artifacts), "maxConcurrency", o.config.MaxConcurrency)
	results := make([]models.RemediationResult, len(artifacts))
	var failed atomic.Bool

	var eg errgroup.Group
	eg.SetLimit(o.config.MaxConcurrency)
	for i := range artifacts {
		chunk := &artifacts[i]
		eg.Go(func() error {
			if failed.Load() {
				results[chunk.Index] = models.RemediationResult{ChunkIndex: chunk.Index, Skipped: true,
					Err: models.NewChunkError(models.KindRemediationFailed, "remediate", chunk.Index,
						fmt.Errorf("not dispatched: job already failed"))}
				return nil
			}
			res := o.remediateChunk(ctx, job, chunk)
			results[chunk.Index] = res
			if res.Failed() {
				failed.Store(true)
				logCtx.Warn("Chunk remediation failed.", "chunkIndex", chunk.Index, "error", res.Err)
			}
			return nil
		})
	}
	// Fan-in barrier: every dispatched task reports before the job moves on.
	_ = eg.Wait()
	return results
}

// remediateChunk runs both worker stages for one chunk sequentially, autotag
// before enrichment. It touches no other chunk's state.
func (o *Orchestrator) remediateChunk(ctx context.Context, job models.Job, chunk *models.ChunkArtifact) models.RemediationResult {
	if err := o.deps.Autotag.Process(ctx, job, chunk); err != nil {
		return models.RemediationResult{ChunkIndex: chunk.Index, Err: err}
	}
	chunk.State = models.ChunkAutotagged
	if err := o.deps.Enrich.Process(ctx, job, chunk); err != nil {
		return models.RemediationResult{ChunkIndex: chunk.Index, Err: err}
	}
	chunk.State = models.ChunkEnriched
	return models.RemediationResult{ChunkIndex: chunk.Index, OutputKey: chunk.EnrichedKey}
}

// transition advances the state machine. Externally requested cancellation is
// honored here, at stage boundaries only.
func (o *Orchestrator) transition(ctx context.Context, logCtx *slog.Logger, result *models.JobResult, state models.JobState) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("job cancelled before %s: %w", state, err)
	}
	result.State = state
	logCtx.Info("State transition.", "state", state)
	if err := o.deps.Log.StatusChanged(ctx, result.JobID, state); err != nil {
		logCtx.Warn("Failed to record status change.", "error", err)
	}
	return nil
}

func (o *Orchestrator) persistReport(ctx context.Context, logCtx *slog.Logger, job models.Job, result *models.JobResult, report *models.ComplianceReport) {
	reportKey := o.config.Layout.Report(job.FolderPath, job.BaseName, string(report.Phase))
	data, err := json.Marshal(report)
	if err == nil {
		err = o.deps.Store.Put(ctx, reportKey, data)
	}
	if err != nil {
		logCtx.Warn("Failed to persist compliance report.", "reportKey", reportKey, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("compliance report %s not persisted: %v", report.Phase, err))
		return
	}
	logCtx.Info("Compliance report persisted.", "reportKey", reportKey, "passed", report.Passed)
}

// fail records the terminal Failed state. Intermediate artifacts are left in
// place for diagnostic inspection.
func (o *Orchestrator) fail(ctx context.Context, logCtx *slog.Logger, result *models.JobResult, err error) (*models.JobResult, error) {
	result.State = models.StateFailed
	logCtx.Error("Job failed.", "kind", models.KindOf(err), "chunkIndex", models.ChunkIndexOf(err), "error", err)
	if logErr := o.deps.Log.JobFinished(ctx, result.JobID, result, err.Error()); logErr != nil {
		logCtx.Warn("Failed to finalize job record.", "error", logErr)
	}
	return result, err
}

// classify wraps unclassified errors with the stage's default kind so callers
// always see a pipeline error kind.
func classify(err error, fallback models.ErrorKind) error {
	if models.KindOf(err) != "" {
		return err
	}
	return models.NewError(fallback, "pipeline", err)
}
