package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// TitleGenerator promotes the merged document to the job's final key,
// best-effort enriched with a generated title. Title generation is not
// mandatory for compliance: if the generative or document service fails, the
// merged document is promoted verbatim and a warning is recorded instead of
// failing the job.
type TitleGenerator struct {
	store  blob.Store
	docSvc DocumentService
	genSvc GenerativeService
	layout keys.Layout
	retry  RetryConfig
}

func NewTitleGenerator(store blob.Store, docSvc DocumentService, genSvc GenerativeService, layout keys.Layout, retryCfg RetryConfig) *TitleGenerator {
	return &TitleGenerator{store: store, docSvc: docSvc, genSvc: genSvc, layout: layout, retry: retryCfg}
}

func (g *TitleGenerator) Enrich(ctx context.Context, job models.Job, mergedKey string) (string, string, error) {
	logCtx := slog.With("jobId", job.ID, "mergedKey", mergedKey)
	finalKey := g.layout.Final(job.FolderPath, job.BaseName)

	merged, err := g.store.Get(ctx, mergedKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to read merged document %s: %w", mergedKey, err)
	}

	titled, warning := g.titledDocument(ctx, logCtx, merged)
	if err := g.store.Put(ctx, finalKey, titled); err != nil {
		return "", "", fmt.Errorf("failed to write final document %s: %w", finalKey, err)
	}

	logCtx.Info("Document promoted to final key.", "finalKey", finalKey, "degraded", warning != "")
	return finalKey, warning, nil
}

// titledDocument returns the merged bytes with a generated title applied, or
// the bytes unchanged plus a warning when generation or application fails.
func (g *TitleGenerator) titledDocument(ctx context.Context, logCtx *slog.Logger, merged []byte) ([]byte, string) {
	title, err := withRetry(ctx, logCtx, "title generation", g.retry, func(ctx context.Context) (string, error) {
		return g.genSvc.Generate(ctx, merged, models.GenerateTitle)
	})
	if err != nil {
		logCtx.Warn("Title generation failed. Promoting document without a title.", "error", err)
		return merged, degradedWarning(err)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		logCtx.Warn("Title generation returned empty text. Promoting document without a title.")
		return merged, degradedWarning(fmt.Errorf("generated title is empty"))
	}

	titled, err := withRetry(ctx, logCtx, "title apply", g.retry, func(ctx context.Context) ([]byte, error) {
		return g.docSvc.ApplyEnrichment(ctx, merged, models.Enrichment{Title: title})
	})
	if err != nil {
		logCtx.Warn("Applying title failed. Promoting document without a title.", "error", err)
		return merged, degradedWarning(err)
	}
	return titled, ""
}

func degradedWarning(err error) string {
	return fmt.Sprintf("%s: title generation failed, document promoted without title: %v",
		models.KindEnrichmentDegraded, err)
}
