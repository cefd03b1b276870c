// main package for the aligner-corpus builder.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/book-expert/aligner-corpus/internal/audioio"
	"github.com/book-expert/aligner-corpus/internal/codec"
	"github.com/book-expert/aligner-corpus/internal/config"
	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/aligner-corpus/internal/corpus"
	"github.com/book-expert/aligner-corpus/internal/embed"
	"github.com/book-expert/aligner-corpus/internal/frontend"
	"github.com/book-expert/aligner-corpus/internal/objectstore"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

const mirrorTimeout = 2 * time.Minute

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "aligner-corpus.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := log.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	built, err := buildCorpus(cfg, log)
	if err != nil {
		log.Error("Corpus construction failed: %v", err)

		return err
	}

	log.System("Corpus ready: %d datapoints in %s", len(built.Datapoints), cfg.Paths.CacheDir)

	if cfg.NATS.URL != "" {
		err = pushToMirror(cfg, log)
		if err != nil {
			log.Error("Failed to mirror cache blob: %v", err)

			return err
		}
	}

	return nil
}

func buildCorpus(cfg *config.Config, log *logger.Logger) (*core.Corpus, error) {
	opts := corpus.BuildOptions{
		TranscriptsFactory: func() (map[string]string, error) {
			return loadTranscripts(cfg.Paths.TranscriptsFile)
		},
		CacheDir:            cfg.Paths.CacheDir,
		Workers:             cfg.Corpus.Workers,
		MinSeconds:          cfg.Corpus.MinSeconds,
		MaxSeconds:          cfg.Corpus.MaxSeconds,
		ExpectedSampleRate:  cfg.Corpus.ExpectedSampleRate,
		RebuildCache:        cfg.Corpus.RebuildCache,
		Verbose:             cfg.Corpus.Verbose,
		PhoneInput:          cfg.Corpus.PhoneInput,
		AllowUnknownSymbols: cfg.Corpus.AllowUnknownSymbols,
		FrontendFactory: func() (core.TextFrontend, error) {
			return frontend.Load(cfg.Frontend.InventoryPath)
		},
		CodecFactory: codecFactory(cfg, log),
		Resampler:    audioio.Resampler{},
		Log:          log,
	}

	embedder, err := embed.New(embed.Config{
		BinaryPath: cfg.Embedding.BinaryPath,
		ModelPath:  cfg.Embedding.ModelPath,
		Device:     cfg.Corpus.Device,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding extractor: %w", err)
	}

	opts.Embedder = embedder

	built, err := corpus.Build(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build corpus for language '%s': %w", cfg.Corpus.Language, err)
	}

	return built, nil
}

func codecFactory(cfg *config.Config, log *logger.Logger) core.CodecFactory {
	return func() (core.Codec, error) {
		speechCodec, err := codec.New(codec.Config{
			BinaryPath: cfg.Codec.BinaryPath,
			ModelPath:  cfg.Codec.ModelPath,
			Device:     cfg.Corpus.Device,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create codec: %w", err)
		}

		return speechCodec, nil
	}
}

func pushToMirror(cfg *config.Config, log *logger.Logger) error {
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at '%s': %w", cfg.NATS.URL, err)
	}

	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to open JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.CacheObjectStoreBucket)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	err = store.PushBlob(ctx, cfg.Paths.CacheDir, cfg.Corpus.Language)
	if err != nil {
		return err
	}

	log.Info("Mirrored cache blob for '%s' to bucket '%s'", cfg.Corpus.Language, cfg.NATS.CacheObjectStoreBucket)

	return nil
}

// loadTranscripts reads a path<TAB>transcript file into the transcript map.
// Blank lines and lines starting with '#' are ignored.
func loadTranscripts(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcripts file '%s': %w", path, err)
	}

	defer func() {
		_ = file.Close()
	}()

	transcripts := make(map[string]string)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		audioPath, transcript, found := strings.Cut(line, "\t")
		if !found {
			continue
		}

		transcripts[audioPath] = transcript
	}

	err = scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcripts file '%s': %w", path, err)
	}

	return transcripts, nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "aligner-corpus exited with error: %v\n", err)
		os.Exit(1)
	}
}
