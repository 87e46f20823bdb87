package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/gcp"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
	"github.com/Lllllllleong/pdfremediationflow/internal/services"
)

var (
	checker *services.Checker
	once    sync.Once
	initErr error
)

func init() {
	// Register the HTTP function with the framework.
	functions.HTTP("HandleComplianceCheck", handleComplianceCheck)
}

// main is required by the Go Functions Framework.
func main() {}

func setup(ctx context.Context) (*services.Checker, error) {
	pipelineBucket := gcp.GetEnv("PIPELINE_BUCKET", "")
	if pipelineBucket == "" {
		return nil, fmt.Errorf("PIPELINE_BUCKET environment variable must be set")
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return services.NewChecker(blob.NewGCS(storageClient, pipelineBucket)), nil
}

// handleComplianceCheck runs a standalone accessibility check over a stored
// document, outside of any remediation job.
func handleComplianceCheck(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		checker, initErr = setup(context.Background())
	})
	if initErr != nil {
		log.Printf("CRITICAL: Checker initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("ERROR: Could not decode request body: %v", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.DocumentKey == "" {
		http.Error(w, "Bad Request: documentKey is required", http.StatusBadRequest)
		return
	}
	if req.Phase == "" {
		req.Phase = models.PhaseBefore
	}

	report, err := checker.Check(r.Context(), models.Job{ID: req.JobID}, req.DocumentKey, req.Phase)
	if err != nil {
		log.Printf("ERROR: Compliance check failed for %s: %v", req.DocumentKey, err)
		http.Error(w, "Internal Server Error: check failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		log.Printf("ERROR: Failed to write response: %v", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
