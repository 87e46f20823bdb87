package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestValidate(t *testing.T) {
	t.Run("Should accept contiguous zero based indices", func(t *testing.T) {
		m := &Manifest{
			JobID:       "j1",
			TotalChunks: 2,
			Chunks: []ChunkDescriptor{
				{Index: 0, Key: "a", FromPage: 1, ThruPage: 2},
				{Index: 1, Key: "b", FromPage: 3, ThruPage: 3},
			},
		}
		require.NoError(t, m.Validate())
	})

	t.Run("Should accept the degenerate single chunk case", func(t *testing.T) {
		m := &Manifest{JobID: "j1", TotalChunks: 1, Chunks: []ChunkDescriptor{{Index: 0, FromPage: 1, ThruPage: 1}}}
		require.NoError(t, m.Validate())
	})

	t.Run("Should reject an empty manifest", func(t *testing.T) {
		m := &Manifest{JobID: "j1"}
		assert.Error(t, m.Validate())
	})

	t.Run("Should reject a count mismatch", func(t *testing.T) {
		m := &Manifest{JobID: "j1", TotalChunks: 2, Chunks: []ChunkDescriptor{{Index: 0}}}
		assert.Error(t, m.Validate())
	})

	t.Run("Should reject gaps", func(t *testing.T) {
		m := &Manifest{JobID: "j1", TotalChunks: 2, Chunks: []ChunkDescriptor{{Index: 0}, {Index: 2}}}
		assert.Error(t, m.Validate())
	})

	t.Run("Should reject duplicates", func(t *testing.T) {
		m := &Manifest{JobID: "j1", TotalChunks: 2, Chunks: []ChunkDescriptor{{Index: 0}, {Index: 0}}}
		assert.Error(t, m.Validate())
	})
}

func TestPipelineError(t *testing.T) {
	t.Run("Should expose kind and chunk index through wrapping", func(t *testing.T) {
		base := errors.New("boom")
		err := fmt.Errorf("remediation: %w", NewChunkError(KindRemediationFailed, "autotag", 3, base))
		assert.Equal(t, KindRemediationFailed, KindOf(err))
		assert.Equal(t, 3, ChunkIndexOf(err))
		assert.ErrorIs(t, err, base)
	})

	t.Run("Should classify transient errors", func(t *testing.T) {
		err := NewError(KindTransientService, "docsvc", errors.New("timeout"))
		assert.True(t, IsTransient(err))
		assert.False(t, IsTransient(NewError(KindMalformedInput, "split", errors.New("bad"))))
		assert.False(t, IsTransient(errors.New("plain")))
	})

	t.Run("Should report empty kind for unclassified errors", func(t *testing.T) {
		assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
		assert.Equal(t, -1, ChunkIndexOf(errors.New("plain")))
	})
}

func TestChunkDescriptorPages(t *testing.T) {
	assert.Equal(t, 2, ChunkDescriptor{FromPage: 1, ThruPage: 2}.Pages())
	assert.Equal(t, 1, ChunkDescriptor{FromPage: 3, ThruPage: 3}.Pages())
}
