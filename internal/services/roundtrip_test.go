package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

// minimalPDF builds a valid PDF with the given number of blank pages. Cross
// reference offsets are computed while writing, so the result always parses.
func minimalPDF(pageCount int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(body)
	}

	buf.WriteString("%PDF-1.7\n")
	kids := make([]string, pageCount)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	obj(fmt.Sprintf("2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n",
		strings.Join(kids, " "), pageCount))
	for i := 0; i < pageCount; i++ {
		obj(fmt.Sprintf("%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n", i+3))
	}

	xrefStart := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefStart)
	return buf.Bytes()
}

func pageCountOf(t *testing.T, data []byte) int {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	count, err := api.PageCountFile(path)
	require.NoError(t, err)
	return count
}

func TestSplitMergeRoundTrip(t *testing.T) {
	ctx := context.Background()
	layout := keys.DefaultLayout()
	job := models.Job{ID: "job-1", InputKey: "pdf/doc.pdf", BaseName: "doc"}

	t.Run("Should split into page groups that reassemble to the input", func(t *testing.T) {
		store := blob.NewMemory()
		input := minimalPDF(3)
		require.Equal(t, 3, pageCountOf(t, input))
		require.NoError(t, store.Put(ctx, job.InputKey, input))

		s := NewSplitter(store, layout, SplitterConfig{ChunkSize: 2})
		manifest, err := s.Split(ctx, job)
		require.NoError(t, err)
		require.NoError(t, manifest.Validate())
		require.Equal(t, 2, manifest.TotalChunks)
		assert.Equal(t, 2, manifest.Chunks[0].Pages())
		assert.Equal(t, 1, manifest.Chunks[1].Pages())

		// Every chunk landed at its derived key with exactly the pages the
		// manifest declares, and together they cover the whole input.
		total := 0
		for _, desc := range manifest.Chunks {
			data, err := store.Get(ctx, desc.Key)
			require.NoError(t, err)
			got := pageCountOf(t, data)
			assert.Equal(t, desc.Pages(), got, "chunk %d", desc.Index)
			total += got

			// Stand in for the remediation pass: promote the chunk untouched.
			require.NoError(t, store.Put(ctx, layout.Enriched("", "doc", desc.Index), data))
		}
		assert.Equal(t, 3, total)

		// The manifest itself is visible once all chunks are.
		_, err = store.Get(ctx, layout.Manifest("", "doc"))
		require.NoError(t, err)

		m := NewMerger(store, layout)
		mergedKey, err := m.Merge(ctx, job, manifest)
		require.NoError(t, err)
		assert.Equal(t, layout.Merged("", "doc"), mergedKey)

		merged, err := store.Get(ctx, mergedKey)
		require.NoError(t, err)
		assert.Equal(t, 3, pageCountOf(t, merged))
	})

	t.Run("Should yield one full size chunk when the document fits the chunk size", func(t *testing.T) {
		store := blob.NewMemory()
		input := minimalPDF(4)
		require.NoError(t, store.Put(ctx, job.InputKey, input))

		s := NewSplitter(store, layout, SplitterConfig{ChunkSize: 10})
		manifest, err := s.Split(ctx, job)
		require.NoError(t, err)
		require.Equal(t, 1, manifest.TotalChunks)

		data, err := store.Get(ctx, manifest.Chunks[0].Key)
		require.NoError(t, err)
		assert.Equal(t, 4, pageCountOf(t, data))
	})
}
