package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

func TestTitleGenerator(t *testing.T) {
	ctx := context.Background()
	layout := keys.DefaultLayout()
	job := models.Job{ID: "job-1", FolderPath: "batch1", BaseName: "report"}
	mergedKey := layout.Merged("batch1", "report")
	finalKey := layout.Final("batch1", "report")

	t.Run("Should stamp the generated title into the final document", func(t *testing.T) {
		store := blob.NewMemory()
		require.NoError(t, store.Put(ctx, mergedKey, []byte("merged")))

		docSvc := &stubDocService{}
		g := NewTitleGenerator(store, docSvc, &stubGenService{}, layout, fastRetry(3))
		gotFinal, warning, err := g.Enrich(ctx, job, mergedKey)
		require.NoError(t, err)
		assert.Equal(t, finalKey, gotFinal)
		assert.Empty(t, warning)
		assert.Equal(t, "Quarterly Revenue Report", docSvc.lastEnrich.Title)

		final, err := store.Get(ctx, finalKey)
		require.NoError(t, err)
		assert.Equal(t, []byte("enriched:merged"), final)
	})

	t.Run("Should promote verbatim with a warning when generation fails", func(t *testing.T) {
		store := blob.NewMemory()
		require.NoError(t, store.Put(ctx, mergedKey, []byte("merged")))

		g := NewTitleGenerator(store, &stubDocService{}, &stubGenService{err: errors.New("model unavailable")}, layout, fastRetry(2))
		gotFinal, warning, err := g.Enrich(ctx, job, mergedKey)
		require.NoError(t, err)
		assert.Equal(t, finalKey, gotFinal)
		assert.Contains(t, warning, string(models.KindEnrichmentDegraded))

		final, err := store.Get(ctx, finalKey)
		require.NoError(t, err)
		assert.Equal(t, []byte("merged"), final)
	})

	t.Run("Should promote verbatim with a warning when stamping fails", func(t *testing.T) {
		store := blob.NewMemory()
		require.NoError(t, store.Put(ctx, mergedKey, []byte("merged")))

		docSvc := &stubDocService{terminalErr: errors.New("corrupt document")}
		g := NewTitleGenerator(store, docSvc, &stubGenService{}, layout, fastRetry(2))
		gotFinal, warning, err := g.Enrich(ctx, job, mergedKey)
		require.NoError(t, err)
		assert.Equal(t, finalKey, gotFinal)
		assert.True(t, strings.Contains(warning, "without title"))

		final, err := store.Get(ctx, finalKey)
		require.NoError(t, err)
		assert.Equal(t, []byte("merged"), final)
	})

	t.Run("Should fail when the merged document is missing", func(t *testing.T) {
		store := blob.NewMemory()
		g := NewTitleGenerator(store, &stubDocService{}, &stubGenService{}, layout, fastRetry(2))
		_, _, err := g.Enrich(ctx, job, mergedKey)
		require.Error(t, err)
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})
}
