package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

func findingRules(issues []models.Finding) []string {
	rules := make([]string, 0, len(issues))
	for _, f := range issues {
		rules = append(rules, f.Rule)
	}
	return rules
}

func TestProbeStructure(t *testing.T) {
	t.Run("Should flag every missing accessibility marker", func(t *testing.T) {
		issues := probeStructure([]byte("%PDF-1.7 plain content"))
		assert.Equal(t, []string{"tagged-structure", "mark-info", "document-title", "document-language"}, findingRules(issues))
	})

	t.Run("Should pass a document carrying all markers", func(t *testing.T) {
		doc := []byte("%PDF-1.7 /StructTreeRoot 1 0 R /MarkInfo <</Marked true>> /Title (Report) /Lang (en-US)")
		assert.Empty(t, probeStructure(doc))
	})

	t.Run("Should report only the markers that are absent", func(t *testing.T) {
		doc := []byte("%PDF-1.7 /StructTreeRoot 1 0 R /MarkInfo <</Marked true>> /Lang (en)")
		assert.Equal(t, []string{"document-title"}, findingRules(probeStructure(doc)))
	})

	t.Run("Should keep findings in a stable order across phases", func(t *testing.T) {
		doc := []byte("%PDF-1.7")
		assert.Equal(t, findingRules(probeStructure(doc)), findingRules(probeStructure(doc)))
	})
}

func TestChecker(t *testing.T) {
	ctx := context.Background()
	job := models.Job{ID: "job-1"}

	t.Run("Should report unparseable documents as findings rather than errors", func(t *testing.T) {
		store := blob.NewMemory()
		require.NoError(t, store.Put(ctx, "pdf/doc.pdf", []byte("not a pdf at all")))

		c := NewChecker(store)
		report, err := c.Check(ctx, job, "pdf/doc.pdf", models.PhaseBefore)
		require.NoError(t, err)
		assert.False(t, report.Passed)
		assert.Equal(t, models.PhaseBefore, report.Phase)
		assert.Equal(t, "job-1", report.JobID)
		require.NotEmpty(t, report.Issues)
		assert.Equal(t, "valid-pdf", report.Issues[0].Rule)
	})

	t.Run("Should fail when the document is missing", func(t *testing.T) {
		store := blob.NewMemory()
		c := NewChecker(store)
		_, err := c.Check(ctx, job, "pdf/absent.pdf", models.PhaseAfter)
		require.Error(t, err)
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})
}
