package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// EnrichWorker runs the alt-text/link-text pass over one chunk. It reads the
// autotag output declared on the artifact (the orchestrator controls stage
// ordering, not the worker), asks the generative service for alt text and
// link text, has the document service apply both, and writes the result to
// the chunk's enriched key.
type EnrichWorker struct {
	store  blob.Store
	docSvc DocumentService
	genSvc GenerativeService
	retry  RetryConfig
}

func NewEnrichWorker(store blob.Store, docSvc DocumentService, genSvc GenerativeService, retryCfg RetryConfig) *EnrichWorker {
	return &EnrichWorker{store: store, docSvc: docSvc, genSvc: genSvc, retry: retryCfg}
}

func (w *EnrichWorker) Process(ctx context.Context, job models.Job, chunk *models.ChunkArtifact) error {
	logCtx := slog.With("jobId", job.ID, "chunkIndex", chunk.Index)
	logCtx.Info("Enriching chunk.", "inputKey", chunk.AutotagKey, "outputKey", chunk.EnrichedKey)

	tagged, err := w.store.Get(ctx, chunk.AutotagKey)
	if err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "enrich", chunk.Index,
			fmt.Errorf("failed to read tagged chunk %s: %w", chunk.AutotagKey, err))
	}

	altText, err := withRetry(ctx, logCtx, "alt-text generation", w.retry, func(ctx context.Context) (string, error) {
		return w.genSvc.Generate(ctx, tagged, models.GenerateAltText)
	})
	if err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "enrich", chunk.Index, err)
	}

	linkText, err := withRetry(ctx, logCtx, "link-text generation", w.retry, func(ctx context.Context) (string, error) {
		return w.genSvc.Generate(ctx, tagged, models.GenerateLinkText)
	})
	if err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "enrich", chunk.Index, err)
	}

	enrichment := models.Enrichment{AltText: altText, LinkText: linkText}
	enriched, err := withRetry(ctx, logCtx, "enrichment apply", w.retry, func(ctx context.Context) ([]byte, error) {
		return w.docSvc.ApplyEnrichment(ctx, tagged, enrichment)
	})
	if err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "enrich", chunk.Index, err)
	}

	if err := w.store.Put(ctx, chunk.EnrichedKey, enriched); err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "enrich", chunk.Index,
			fmt.Errorf("failed to write %s: %w", chunk.EnrichedKey, err))
	}
	logCtx.Info("Enrichment complete.")
	return nil
}
