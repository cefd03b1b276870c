package corpus

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/book-expert/aligner-corpus/internal/cachestore"
	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/aligner-corpus/internal/extract"
	"github.com/book-expert/aligner-corpus/internal/shuffle"
	"github.com/book-expert/aligner-corpus/internal/worker"
	"github.com/book-expert/logger"
)

var (
	// ErrNoTranscripts indicates that neither a transcript map nor a factory
	// was supplied.
	ErrNoTranscripts = errors.New("no transcript map or factory supplied")
	// ErrCacheDirEmpty indicates a missing cache directory setting.
	ErrCacheDirEmpty = errors.New("cache directory cannot be empty")
	// ErrNilEmbedder indicates a missing embedding extractor.
	ErrNilEmbedder = errors.New("embedder cannot be nil")
)

// BuildOptions configures one corpus construction run.
type BuildOptions struct {
	// Transcripts maps each audio file path to its transcript. When nil,
	// TranscriptsFactory is invoked instead - and only when no valid cache
	// exists, so an expensive corpus scan is skipped on cache hits.
	Transcripts        map[string]string
	TranscriptsFactory func() (map[string]string, error)

	CacheDir            string
	Workers             int
	MinSeconds          float64
	MaxSeconds          float64
	ExpectedSampleRate  int
	RebuildCache        bool
	Verbose             bool
	PhoneInput          bool
	AllowUnknownSymbols bool

	// Rand seeds the deterministic shuffle. Nil falls back to a time-seeded
	// source.
	Rand *rand.Rand

	// FrontendFactory and CodecFactory produce per-worker instances; the
	// embedder and resampler are shared.
	FrontendFactory core.FrontendFactory
	CodecFactory    core.CodecFactory
	Embedder        core.Embedder
	Resampler       core.Resampler

	Log *logger.Logger
}

// Build returns the corpus for opts, loading it from cache when a valid blob
// exists and RebuildCache is unset, and otherwise running the full
// construction pipeline: audit file, shuffle, worker pool, assembly,
// embedding pass, save.
func Build(opts BuildOptions) (*core.Corpus, error) {
	if opts.CacheDir == "" {
		return nil, ErrCacheDirEmpty
	}

	err := os.MkdirAll(opts.CacheDir, 0o750)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache directory '%s': %w", opts.CacheDir, err)
	}

	if cachestore.Exists(opts.CacheDir) && !opts.RebuildCache {
		loaded, loadErr := cachestore.Load(opts.CacheDir)
		if loadErr != nil {
			return nil, fmt.Errorf("failed to load corpus cache: %w", loadErr)
		}

		opts.Log.Info("Prepared an aligner dataset with %d datapoints in %s (from cache).",
			len(loaded.Datapoints), opts.CacheDir)

		return loaded, nil
	}

	return build(opts)
}

func build(opts BuildOptions) (*core.Corpus, error) {
	if opts.Embedder == nil {
		return nil, ErrNilEmbedder
	}

	transcripts, err := materializeTranscripts(opts)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(transcripts))
	for key := range transcripts {
		keys = append(keys, key)
	}

	// Map iteration order is random; sort so the seeded shuffle below is the
	// only source of ordering.
	sort.Strings(keys)

	err = cachestore.WriteAudit(opts.CacheDir, keys)
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffle.Strings(rng, keys)

	opts.Log.Info("Building dataset cache: %d candidate files across %d workers", len(keys), opts.Workers)

	pool, err := worker.NewPool(runnerFactory(opts, transcripts), opts.Workers, opts.Log)
	if err != nil {
		return nil, err
	}

	chunks, err := pool.Run(keys)
	if err != nil {
		return nil, fmt.Errorf("worker pool failed: %w", err)
	}

	built, err := Assemble(chunks, opts.Embedder, opts.Log)
	if err != nil {
		return nil, err
	}

	err = cachestore.Save(built, opts.CacheDir)
	if err != nil {
		return nil, err
	}

	opts.Log.Info("Prepared an aligner dataset with %d datapoints in %s.", len(built.Datapoints), opts.CacheDir)

	return built, nil
}

func materializeTranscripts(opts BuildOptions) (map[string]string, error) {
	if opts.Transcripts != nil {
		return opts.Transcripts, nil
	}

	if opts.TranscriptsFactory == nil {
		return nil, ErrNoTranscripts
	}

	transcripts, err := opts.TranscriptsFactory()
	if err != nil {
		return nil, fmt.Errorf("transcript factory failed: %w", err)
	}

	return transcripts, nil
}

// runnerFactory wires one extractor per worker, with worker-owned frontend
// and codec instances behind it.
func runnerFactory(opts BuildOptions, transcripts map[string]string) worker.RunnerFactory {
	return func() (worker.Runner, error) {
		textFrontend, err := opts.FrontendFactory()
		if err != nil {
			return nil, fmt.Errorf("failed to build worker frontend: %w", err)
		}

		speechCodec, err := opts.CodecFactory()
		if err != nil {
			return nil, fmt.Errorf("failed to build worker codec: %w", err)
		}

		return extract.New(extract.Params{
			Transcripts:         transcripts,
			Frontend:            textFrontend,
			Codec:               speechCodec,
			Resampler:           opts.Resampler,
			MinSeconds:          opts.MinSeconds,
			MaxSeconds:          opts.MaxSeconds,
			ExpectedSampleRate:  opts.ExpectedSampleRate,
			PhoneInput:          opts.PhoneInput,
			AllowUnknownSymbols: opts.AllowUnknownSymbols,
			Verbose:             opts.Verbose,
			Log:                 opts.Log,
		})
	}
}
