// Package cachestore_test tests blob persistence and the audit file.
package cachestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/aligner-corpus/internal/cachestore"
	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func testCorpus() *core.Corpus {
	return &core.Corpus{
		Datapoints: []core.CachedDatapoint{
			{
				Tokens:      []int16{1, 2, 3},
				SpeechCodes: [][]int16{{10, 11}, {12, 13}},
				Waveform:    []float32{0.5, -0.5},
				SourcePath:  "/data/a.wav",
			},
			{
				Tokens:      []int16{4},
				SpeechCodes: [][]int16{{14, 15}},
				Waveform:    []float32{0.25},
				SourcePath:  "/data/b.wav",
			},
		},
		Embeddings:  [][]float32{{0.1, 0.2}, {0.3, 0.4}},
		SourcePaths: []string{"/data/a.wav", "/data/b.wav"},
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	corpus := testCorpus()

	require.False(t, cachestore.Exists(cacheDir))

	err := cachestore.Save(corpus, cacheDir)
	require.NoError(t, err)
	require.True(t, cachestore.Exists(cacheDir))

	loaded, err := cachestore.Load(cacheDir)
	require.NoError(t, err)

	require.Equal(t, corpus.Datapoints, loaded.Datapoints)
	require.Equal(t, corpus.Embeddings, loaded.Embeddings)
	require.Equal(t, corpus.SourcePaths, loaded.SourcePaths)
}

func TestSaveOverwritesPreviousBlob(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	corpus := testCorpus()

	require.NoError(t, cachestore.Save(corpus, cacheDir))

	corpus.Datapoints = corpus.Datapoints[:1]
	corpus.Embeddings = corpus.Embeddings[:1]
	corpus.SourcePaths = corpus.SourcePaths[:1]
	require.NoError(t, cachestore.Save(corpus, cacheDir))

	loaded, err := cachestore.Load(cacheDir)
	require.NoError(t, err)
	assert.Len(t, loaded.Datapoints, 1)

	// No temp files left behind.
	entries, err := os.ReadDir(cacheDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, cachestore.BlobName, entries[0].Name())
}

func TestLoadMissingBlob(t *testing.T) {
	t.Parallel()

	_, err := cachestore.Load(t.TempDir())
	require.Error(t, err)
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()

	data, err := msgpack.Marshal(map[string]any{"version": 99})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cachestore.BlobPath(cacheDir), data, 0o600))

	_, err = cachestore.Load(cacheDir)
	require.ErrorIs(t, err, cachestore.ErrVersionMismatch)
}

func TestLoadRejectsMisalignedCollections(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()

	data, err := msgpack.Marshal(map[string]any{
		"version":      cachestore.FormatVersion,
		"datapoints":   []map[string]any{{"source_path": "/data/a.wav"}},
		"embeddings":   [][]float32{},
		"source_paths": []string{"/data/a.wav"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cachestore.BlobPath(cacheDir), data, 0o600))

	_, err = cachestore.Load(cacheDir)
	require.ErrorIs(t, err, cachestore.ErrCorruptBlob)
}

func TestWriteAudit(t *testing.T) {
	t.Parallel()

	cacheDir := t.TempDir()
	keys := []string{"/data/a.wav", "/data/b.wav"}

	err := cachestore.WriteAudit(cacheDir, keys)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(cacheDir, cachestore.AuditName))
	require.NoError(t, err)
	assert.Equal(t, "/data/a.wav\n/data/b.wav\n", string(data))
}
