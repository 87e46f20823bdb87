package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/docsvc"
	"github.com/Lllllllleong/pdfremediationflow/internal/gcp"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/services"
)

var (
	orchestrator *services.Orchestrator
	layout       keys.Layout
	once         sync.Once
	initErr      error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework routes GCS finalize
	// events here.
	functions.CloudEvent("RemediatePDF", remediatePDF)
}

// main is required by the Go Functions Framework.
func main() {}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

func setup(ctx context.Context) (*services.Orchestrator, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	pipelineBucket := gcp.GetEnv("PIPELINE_BUCKET", "")
	if pipelineBucket == "" {
		return nil, fmt.Errorf("PIPELINE_BUCKET environment variable must be set")
	}
	docServiceURL := gcp.GetEnv("DOCSERVICE_URL", "")
	if docServiceURL == "" {
		return nil, fmt.Errorf("DOCSERVICE_URL environment variable must be set")
	}

	chunkSize, err := strconv.Atoi(gcp.GetEnv("CHUNK_SIZE", "10"))
	if err != nil || chunkSize < 1 {
		return nil, fmt.Errorf("CHUNK_SIZE must be a positive integer")
	}
	maxConcurrency, err := strconv.Atoi(gcp.GetEnv("MAX_CONCURRENCY", "4"))
	if err != nil || maxConcurrency < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENCY must be a positive integer")
	}

	layout = keys.DefaultLayout()

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	store := blob.NewGCS(storageClient, pipelineBucket)

	vertexClient, err := gcp.NewVertexClient(ctx, projectID, gcp.GetEnv("VERTEX_AI_REGION", "us-central1"))
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	jobLog := gcp.NewFirestoreJobLog(firestoreClient, gcp.GetEnv("FIRESTORE_COLLECTION", "remediation-jobs"))

	docService := docsvc.New(docServiceURL, 90*time.Second)
	retryCfg := services.DefaultRetryConfig()

	config := services.Config{
		MaxConcurrency: maxConcurrency,
		Layout:         layout,
	}
	deps := services.Dependencies{
		Store:    store,
		Splitter: services.NewSplitter(store, layout, services.SplitterConfig{ChunkSize: chunkSize}),
		Autotag:  services.NewAutotagWorker(store, docService, retryCfg),
		Enrich:   services.NewEnrichWorker(store, docService, vertexClient, retryCfg),
		Merger:   services.NewMerger(store, layout),
		Titles:   services.NewTitleGenerator(store, docService, vertexClient, layout, retryCfg),
		Checker:  services.NewChecker(store),
		Log:      jobLog,
	}

	orch, err := services.NewOrchestrator(config, deps)
	if err != nil {
		return nil, err
	}
	slog.Info("Remediator initialized.", "bucket", pipelineBucket, "chunkSize", chunkSize, "maxConcurrency", maxConcurrency)
	return orch, nil
}

// remediatePDF is the Cloud Function entry point.
func remediatePDF(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		orchestrator, initErr = setup(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Only finalized PDFs under the input root start a job; everything else
	// in the bucket is this pipeline's own output.
	if !strings.HasPrefix(gcsEvent.Name, layout.InputRoot+"/") || !strings.HasSuffix(strings.ToLower(gcsEvent.Name), ".pdf") {
		slog.Info("Ignoring non-input object.", "gcsObject", gcsEvent.Name)
		return nil
	}

	result, err := orchestrator.Run(ctx, services.JobRequest{InputKey: gcsEvent.Name})
	if err != nil {
		// The error is already logged with context inside the orchestrator.
		return err
	}

	compliant := result.PostCheck != nil && result.PostCheck.Passed
	slog.Info("Remediation finished.",
		"jobId", result.JobID,
		"finalKey", result.FinalKey,
		"compliant", compliant,
		"warnings", result.Warnings,
	)
	return nil
}
