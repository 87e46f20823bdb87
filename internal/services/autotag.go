package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// AutotagWorker runs the structural accessibility tagging pass over one
// chunk. It reads the chunk key written by the splitter and writes the tagged
// result to the chunk's autotag key; the input key is never mutated, so the
// stage is safe to retry.
type AutotagWorker struct {
	store  blob.Store
	docSvc DocumentService
	retry  RetryConfig
}

func NewAutotagWorker(store blob.Store, docSvc DocumentService, retryCfg RetryConfig) *AutotagWorker {
	return &AutotagWorker{store: store, docSvc: docSvc, retry: retryCfg}
}

func (w *AutotagWorker) Process(ctx context.Context, job models.Job, chunk *models.ChunkArtifact) error {
	logCtx := slog.With("jobId", job.ID, "chunkIndex", chunk.Index)
	logCtx.Info("Autotagging chunk.", "inputKey", chunk.ChunkKey, "outputKey", chunk.AutotagKey)

	data, err := w.store.Get(ctx, chunk.ChunkKey)
	if err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "autotag", chunk.Index,
			fmt.Errorf("failed to read chunk %s: %w", chunk.ChunkKey, err))
	}

	tagged, err := withRetry(ctx, logCtx, "autotag", w.retry, func(ctx context.Context) ([]byte, error) {
		return w.docSvc.Autotag(ctx, data)
	})
	if err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "autotag", chunk.Index, err)
	}

	if err := w.store.Put(ctx, chunk.AutotagKey, tagged); err != nil {
		return models.NewChunkError(models.KindRemediationFailed, "autotag", chunk.Index,
			fmt.Errorf("failed to write %s: %w", chunk.AutotagKey, err))
	}
	logCtx.Info("Autotag complete.")
	return nil
}
