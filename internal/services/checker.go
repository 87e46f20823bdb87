package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// Checker runs the accessibility check. It is stateless and identical for the
// pre- and post-remediation phases; it never remediates anything, it only
// reports. A non-compliant document yields a report with passed=false, not an
// error.
type Checker struct {
	store blob.Store
}

func NewChecker(store blob.Store) *Checker {
	return &Checker{store: store}
}

func (c *Checker) Check(ctx context.Context, job models.Job, documentKey string, phase models.Phase) (*models.ComplianceReport, error) {
	logCtx := slog.With("jobId", job.ID, "documentKey", documentKey, "phase", phase)
	logCtx.Info("Running accessibility check.")

	data, err := c.store.Get(ctx, documentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", documentKey, err)
	}

	report := &models.ComplianceReport{
		JobID:  job.ID,
		Phase:  phase,
		Issues: []models.Finding{},
	}

	if err := validatePDF(data); err != nil {
		report.Issues = append(report.Issues, models.Finding{
			Rule:        "valid-pdf",
			Description: fmt.Sprintf("document does not parse as a valid PDF: %v", err),
		})
		logCtx.Warn("Document failed structural validation.", "error", err)
		return report, nil
	}

	report.Issues = append(report.Issues, probeStructure(data)...)
	report.Passed = len(report.Issues) == 0

	logCtx.Info("Accessibility check complete.", "passed", report.Passed, "issueCount", len(report.Issues))
	return report, nil
}

func validatePDF(data []byte) error {
	tempDir, err := os.MkdirTemp("", "pdf-remediate-check-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)
	path := filepath.Join(tempDir, "candidate.pdf")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to stage document locally: %w", err)
	}
	return api.ValidateFile(path, pdfConfig())
}

// probeStructure inspects the raw document for the structural markers an
// accessible PDF carries. Ordering is fixed so reports are comparable across
// phases.
func probeStructure(data []byte) []models.Finding {
	var issues []models.Finding
	probes := []struct {
		marker      string
		rule        string
		description string
	}{
		{"/StructTreeRoot", "tagged-structure", "document has no structure tree; content is not tagged"},
		{"/MarkInfo", "mark-info", "document is not marked as a tagged PDF"},
		{"/Title", "document-title", "document has no title"},
		{"/Lang", "document-language", "document declares no default language"},
	}
	for _, p := range probes {
		if !bytes.Contains(data, []byte(p.marker)) {
			issues = append(issues, models.Finding{Rule: p.rule, Description: p.description})
		}
	}
	return issues
}
