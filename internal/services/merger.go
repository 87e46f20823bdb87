package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// Merger recombines a job's enriched chunks, in manifest order, into one
// document at the job's merged key. Merge is all-or-nothing: a missing or
// corrupt chunk aborts the job with IncompleteMerge and nothing is written.
type Merger struct {
	store  blob.Store
	layout keys.Layout
}

func NewMerger(store blob.Store, layout keys.Layout) *Merger {
	return &Merger{store: store, layout: layout}
}

func (m *Merger) Merge(ctx context.Context, job models.Job, manifest *models.Manifest) (string, error) {
	logCtx := slog.With("jobId", job.ID, "totalChunks", manifest.TotalChunks)
	logCtx.Info("Merging enriched chunks.")

	if err := manifest.Validate(); err != nil {
		return "", models.NewError(models.KindIncompleteMerge, "merge", err)
	}

	tempDir, err := os.MkdirTemp("", "pdf-remediate-merge-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Every chunk is fetched before any merge work happens so a gap is found
	// up front, not halfway through a partial output.
	inFiles := make([]string, manifest.TotalChunks)
	for _, desc := range manifest.Chunks {
		enrichedKey := m.layout.Enriched(job.FolderPath, job.BaseName, desc.Index)
		data, err := m.store.Get(ctx, enrichedKey)
		if err != nil {
			return "", models.NewChunkError(models.KindIncompleteMerge, "merge", desc.Index,
				fmt.Errorf("missing enriched chunk %s: %w", enrichedKey, err))
		}
		localPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%d.pdf", desc.Index))
		if err := os.WriteFile(localPath, data, 0o600); err != nil {
			return "", fmt.Errorf("failed to stage chunk %d locally: %w", desc.Index, err)
		}
		inFiles[desc.Index] = localPath
	}

	mergedPath := filepath.Join(tempDir, "merged.pdf")
	if err := api.MergeCreateFile(inFiles, mergedPath, false, pdfConfig()); err != nil {
		return "", models.NewError(models.KindIncompleteMerge, "merge",
			fmt.Errorf("failed to merge chunks: %w", err))
	}

	merged, err := os.ReadFile(mergedPath)
	if err != nil {
		return "", fmt.Errorf("failed to read merged document: %w", err)
	}
	mergedKey := m.layout.Merged(job.FolderPath, job.BaseName)
	if err := m.store.Put(ctx, mergedKey, merged); err != nil {
		return "", fmt.Errorf("failed to write merged document %s: %w", mergedKey, err)
	}

	logCtx.Info("Merge complete.", "mergedKey", mergedKey)
	return mergedKey, nil
}
