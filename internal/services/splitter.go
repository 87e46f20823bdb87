package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// SplitterConfig holds the splitting policy.
type SplitterConfig struct {
	// ChunkSize is the fixed page-group size; the last group may be smaller.
	ChunkSize int
	// UploadWorkers bounds concurrent chunk uploads.
	UploadWorkers int
}

// Splitter divides one input document into page-group chunks and produces the
// job's manifest. Failure is atomic: if the input cannot be read or parsed,
// no chunks and no manifest are written. The manifest is written last, so a
// visible manifest implies a complete chunk set.
type Splitter struct {
	store  blob.Store
	layout keys.Layout
	config SplitterConfig
}

func NewSplitter(store blob.Store, layout keys.Layout, config SplitterConfig) *Splitter {
	if config.ChunkSize < 1 {
		config.ChunkSize = 10
	}
	if config.UploadWorkers < 1 {
		config.UploadWorkers = 10
	}
	return &Splitter{store: store, layout: layout, config: config}
}

func (s *Splitter) Split(ctx context.Context, job models.Job) (*models.Manifest, error) {
	logCtx := slog.With("jobId", job.ID, "inputKey", job.InputKey)
	logCtx.Info("Splitting input document.", "chunkSize", s.config.ChunkSize)

	data, err := s.store.Get(ctx, job.InputKey)
	if err != nil {
		return nil, models.NewError(models.KindMalformedInput, "split",
			fmt.Errorf("failed to read input %s: %w", job.InputKey, err))
	}

	tempDir, err := os.MkdirTemp("", "pdf-remediate-split-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	sourcePath := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(sourcePath, data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage input locally: %w", err)
	}

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(sourcePath, optimizedPath); err != nil {
		return nil, models.NewError(models.KindMalformedInput, "split",
			fmt.Errorf("failed to validate/optimize PDF: %w", err))
	}
	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, models.NewError(models.KindMalformedInput, "split",
			fmt.Errorf("failed to get page count: %w", err))
	}
	if pageCount < 1 {
		return nil, models.NewError(models.KindMalformedInput, "split",
			fmt.Errorf("document has no pages"))
	}

	plan := chunkPlan(pageCount, s.config.ChunkSize)
	manifest := buildManifest(job, s.layout, plan)
	logCtx.Info("Split plan computed.", "pageCount", pageCount, "totalChunks", manifest.TotalChunks)

	localChunks := make([]string, len(plan))
	for i, r := range plan {
		outPath := filepath.Join(tempDir, fmt.Sprintf("chunk_%d.pdf", i))
		selection := []string{fmt.Sprintf("%d-%d", r.from, r.thru)}
		if err := api.TrimFile(optimizedPath, outPath, selection, pdfConfig()); err != nil {
			return nil, models.NewError(models.KindMalformedInput, "split",
				fmt.Errorf("failed to extract pages %d-%d: %w", r.from, r.thru, err))
		}
		localChunks[i] = outPath
	}

	if err := s.uploadChunks(ctx, logCtx, manifest, localChunks); err != nil {
		return nil, err
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	manifestKey := s.layout.Manifest(job.FolderPath, job.BaseName)
	if err := s.store.Put(ctx, manifestKey, manifestJSON); err != nil {
		return nil, fmt.Errorf("failed to write manifest %s: %w", manifestKey, err)
	}

	logCtx.Info("Split complete.", "manifestKey", manifestKey)
	return manifest, nil
}

func (s *Splitter) uploadChunks(ctx context.Context, logCtx *slog.Logger, manifest *models.Manifest, localChunks []string) error {
	logCtx.Info("Starting concurrent upload of chunks.", "totalChunks", manifest.TotalChunks)
	var eg errgroup.Group
	eg.SetLimit(s.config.UploadWorkers)

	for i, desc := range manifest.Chunks {
		localPath := localChunks[i]
		chunkKey := desc.Key
		index := desc.Index
		eg.Go(func() error {
			data, err := os.ReadFile(localPath)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", index, err)
			}
			if err := s.store.Put(ctx, chunkKey, data); err != nil {
				return fmt.Errorf("chunk %d: %w", index, err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("one or more chunks failed to upload: %w", err)
	}
	logCtx.Info("All chunks uploaded successfully.")
	return nil
}

// pageRange is a 1-based inclusive page span.
type pageRange struct {
	from int
	thru int
}

// chunkPlan divides pageCount pages into fixed-size groups. The last group
// may be smaller; a single-page document yields exactly one group.
func chunkPlan(pageCount, chunkSize int) []pageRange {
	plan := make([]pageRange, 0, (pageCount+chunkSize-1)/chunkSize)
	for from := 1; from <= pageCount; from += chunkSize {
		thru := from + chunkSize - 1
		if thru > pageCount {
			thru = pageCount
		}
		plan = append(plan, pageRange{from: from, thru: thru})
	}
	return plan
}

func buildManifest(job models.Job, layout keys.Layout, plan []pageRange) *models.Manifest {
	m := &models.Manifest{
		JobID:       job.ID,
		TotalChunks: len(plan),
		Chunks:      make([]models.ChunkDescriptor, len(plan)),
	}
	for i, r := range plan {
		m.Chunks[i] = models.ChunkDescriptor{
			Index:    i,
			Key:      layout.Chunk(job.FolderPath, job.BaseName, i),
			FromPage: r.from,
			ThruPage: r.thru,
		}
	}
	return m
}

func optimizePDF(inPath, outPath string) error {
	return api.OptimizeFile(inPath, outPath, pdfConfig())
}

func pdfConfig() *model.Configuration {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}
