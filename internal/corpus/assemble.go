// Package corpus assembles, persists and serves the aligner training corpus.
package corpus

import (
	"errors"
	"fmt"

	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/logger"
	"github.com/schollz/progressbar/v3"
)

// ErrEmptyCorpus indicates that no datapoint survived extraction. This is a
// systemic failure, not a per-sample one: no usable cache can be produced.
var ErrEmptyCorpus = errors.New("assembled corpus is empty")

// Assemble flattens the pooled worker chunks into one ordered corpus and
// runs the sequential speaker-embedding pass over it. Chunk order carries no
// meaning because the key list was shuffled before partitioning. The
// embedding extractor is one shared instance, so the pass is deliberately
// single-threaded; embeddings stay in lockstep with the datapoint list by
// construction.
func Assemble(chunks [][]core.CachedDatapoint, embedder core.Embedder, log *logger.Logger) (*core.Corpus, error) {
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}

	if total == 0 {
		return nil, ErrEmptyCorpus
	}

	datapoints := make([]core.CachedDatapoint, 0, total)
	for _, chunk := range chunks {
		datapoints = append(datapoints, chunk...)
	}

	paths := make([]string, len(datapoints))
	embeddings := make([][]float32, len(datapoints))

	log.Info("Computing speaker embeddings for %d datapoints", len(datapoints))

	bar := progressbar.Default(int64(len(datapoints)), "speaker embeddings")

	for i := range datapoints {
		paths[i] = datapoints[i].SourcePath

		wave := make([]float64, len(datapoints[i].Waveform))
		for j, s := range datapoints[i].Waveform {
			wave[j] = float64(s)
		}

		embedding, err := embedder.Embed(wave)
		if err != nil {
			return nil, fmt.Errorf("failed to embed sample '%s': %w", paths[i], err)
		}

		embeddings[i] = embedding

		_ = bar.Add(1)
	}

	return &core.Corpus{
		Datapoints:  datapoints,
		Embeddings:  embeddings,
		SourcePaths: paths,
	}, nil
}
