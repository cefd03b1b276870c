// main package for the cache-mirror tool, which pushes a built corpus cache
// blob to the NATS mirror or fetches one onto a fresh host.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/aligner-corpus/internal/config"
	"github.com/book-expert/aligner-corpus/internal/objectstore"
	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"
)

const transferTimeout = 2 * time.Minute

var (
	errUsage               = errors.New("usage: cache-mirror <push|fetch>")
	errMirrorNotConfigured = errors.New("no NATS mirror configured: set the nats url in the project TOML")
)

func run() error {
	if len(os.Args) != 2 {
		return errUsage
	}

	direction := os.Args[1]
	if direction != "push" && direction != "fetch" {
		return errUsage
	}

	log, err := logger.New(os.TempDir(), "cache-mirror.log")
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() {
		_ = log.Close()
	}()

	cfg, err := config.Load(log)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cfg.NATS.URL == "" {
		return errMirrorNotConfigured
	}

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

	ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
	defer cancel()

	if direction == "push" {
		err = store.PushBlob(ctx, cfg.Paths.CacheDir, cfg.Corpus.Language)
		if err != nil {
			return err
		}

		log.System("Pushed cache blob for '%s' from %s", cfg.Corpus.Language, cfg.Paths.CacheDir)

		return nil
	}

	err = store.FetchBlob(ctx, cfg.Paths.CacheDir, cfg.Corpus.Language)
	if err != nil {
		return err
	}

	log.System("Fetched cache blob for '%s' into %s", cfg.Corpus.Language, cfg.Paths.CacheDir)

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache-mirror exited with error: %v\n", err)
		os.Exit(1)
	}
}
