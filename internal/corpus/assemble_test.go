package corpus_test

import (
	"testing"

	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/aligner-corpus/internal/corpus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkOf(paths ...string) []core.CachedDatapoint {
	chunk := make([]core.CachedDatapoint, 0, len(paths))

	for i, path := range paths {
		chunk = append(chunk, core.CachedDatapoint{
			Tokens:      []int16{int16(i)},
			SpeechCodes: [][]int16{{int16(i)}},
			Waveform:    make([]float32, (i+1)*10),
			SourcePath:  path,
		})
	}

	return chunk
}

func TestAssembleFlattensChunksInOrder(t *testing.T) {
	t.Parallel()

	chunks := [][]core.CachedDatapoint{
		chunkOf("/data/a.wav", "/data/b.wav"),
		nil,
		chunkOf("/data/c.wav"),
	}

	built, err := corpus.Assemble(chunks, &mockEmbedder{}, testLogger(t))
	require.NoError(t, err)

	require.Len(t, built.Datapoints, 3)
	assert.Equal(t, []string{"/data/a.wav", "/data/b.wav", "/data/c.wav"}, built.SourcePaths)

	for i := range built.Datapoints {
		assert.Equal(t, built.Datapoints[i].SourcePath, built.SourcePaths[i])
		assert.InDelta(t, float32(len(built.Datapoints[i].Waveform)), built.Embeddings[i][0], 0.5)
	}
}

func TestAssembleEmptyPoolIsFatal(t *testing.T) {
	t.Parallel()

	_, err := corpus.Assemble(nil, &mockEmbedder{}, testLogger(t))
	require.ErrorIs(t, err, corpus.ErrEmptyCorpus)

	_, err = corpus.Assemble([][]core.CachedDatapoint{nil, {}}, &mockEmbedder{}, testLogger(t))
	require.ErrorIs(t, err, corpus.ErrEmptyCorpus)
}

func TestAssemblePropagatesEmbedderFailure(t *testing.T) {
	t.Parallel()

	chunks := [][]core.CachedDatapoint{chunkOf("/data/a.wav")}

	_, err := corpus.Assemble(chunks, &mockEmbedder{fail: true}, testLogger(t))
	require.ErrorIs(t, err, errMockEmbed)
}
