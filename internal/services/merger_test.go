package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pdfremediationflow/internal/blob"
	"github.com/Lllllllleong/pdfremediationflow/internal/keys"
	"github.com/Lllllllleong/pdfremediationflow/internal/models"
)

func TestMerger(t *testing.T) {
	ctx := context.Background()
	layout := keys.DefaultLayout()
	job := models.Job{ID: "job-1", BaseName: "doc"}
	manifest := buildManifest(job, layout, []pageRange{{1, 2}, {3, 4}})

	t.Run("Should report IncompleteMerge with the missing chunk index", func(t *testing.T) {
		store := blob.NewMemory()
		require.NoError(t, store.Put(ctx, layout.Enriched("", "doc", 0), []byte("chunk-0")))
		// chunk 1 is absent

		m := NewMerger(store, layout)
		_, err := m.Merge(ctx, job, manifest)
		require.Error(t, err)
		assert.Equal(t, models.KindIncompleteMerge, models.KindOf(err))
		assert.Equal(t, 1, models.ChunkIndexOf(err))

		// All-or-nothing: nothing landed at the merged key.
		_, err = store.Get(ctx, layout.Merged("", "doc"))
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})

	t.Run("Should report IncompleteMerge for corrupt chunk content", func(t *testing.T) {
		store := blob.NewMemory()
		require.NoError(t, store.Put(ctx, layout.Enriched("", "doc", 0), []byte("not a pdf")))
		require.NoError(t, store.Put(ctx, layout.Enriched("", "doc", 1), []byte("still not a pdf")))

		m := NewMerger(store, layout)
		_, err := m.Merge(ctx, job, manifest)
		require.Error(t, err)
		assert.Equal(t, models.KindIncompleteMerge, models.KindOf(err))

		_, err = store.Get(ctx, layout.Merged("", "doc"))
		assert.ErrorIs(t, err, blob.ErrNotFound)
	})

	t.Run("Should reject an invalid manifest", func(t *testing.T) {
		store := blob.NewMemory()
		m := NewMerger(store, layout)
		bad := &models.Manifest{JobID: "job-1", TotalChunks: 2, Chunks: []models.ChunkDescriptor{{Index: 0}}}
		_, err := m.Merge(ctx, job, bad)
		require.Error(t, err)
		assert.Equal(t, models.KindIncompleteMerge, models.KindOf(err))
	})
}
