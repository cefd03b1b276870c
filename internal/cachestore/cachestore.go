// Package cachestore persists a built corpus as a single versioned msgpack
// blob and writes the advisory audit file of candidate keys.
package cachestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	// BlobName is the file name of the versioned corpus blob.
	BlobName = "aligner_train_cache.msgpack"
	// AuditName is the file name of the plaintext candidate-key list.
	AuditName = "files_used.txt"
	// FormatVersion identifies the blob layout.
	FormatVersion = 1
)

var (
	// ErrVersionMismatch indicates a blob written by an incompatible layout.
	ErrVersionMismatch = errors.New("cache blob format version mismatch")
	// ErrCorruptBlob indicates a blob whose parallel collections disagree in
	// length.
	ErrCorruptBlob = errors.New("cache blob collections are misaligned")
)

// blob is the serialized form of a corpus. Reserved keeps the second slot of
// the four-slot layout alive across round trips even though nothing is
// stored in it.
type blob struct {
	Version     int                    `msgpack:"version"`
	Datapoints  []core.CachedDatapoint `msgpack:"datapoints"`
	Reserved    []byte                 `msgpack:"reserved"`
	Embeddings  [][]float32            `msgpack:"embeddings"`
	SourcePaths []string               `msgpack:"source_paths"`
}

// BlobPath returns the location of the corpus blob under cacheDir.
func BlobPath(cacheDir string) string {
	return filepath.Join(cacheDir, BlobName)
}

// Exists reports whether a corpus blob is present under cacheDir.
func Exists(cacheDir string) bool {
	info, err := os.Stat(BlobPath(cacheDir))

	return err == nil && !info.IsDir()
}

// Save writes the corpus blob with write-then-rename discipline so that a
// prior successful write is never partially overwritten by a failed one.
func Save(corpus *core.Corpus, cacheDir string) error {
	data, err := msgpack.Marshal(blob{
		Version:     FormatVersion,
		Datapoints:  corpus.Datapoints,
		Reserved:    nil,
		Embeddings:  corpus.Embeddings,
		SourcePaths: corpus.SourcePaths,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache blob: %w", err)
	}

	tmpPath := filepath.Join(cacheDir, "."+uuid.NewString()+".tmp")

	err = os.WriteFile(tmpPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write cache blob: %w", err)
	}

	err = os.Rename(tmpPath, BlobPath(cacheDir))
	if err != nil {
		_ = os.Remove(tmpPath)

		return fmt.Errorf("failed to finalize cache blob: %w", err)
	}

	return nil
}

// Load reads a corpus blob back. Loading is device-agnostic: the blob holds
// plain numeric slices with no accelerator placement.
func Load(cacheDir string) (*core.Corpus, error) {
	data, err := os.ReadFile(BlobPath(cacheDir))
	if err != nil {
		return nil, fmt.Errorf("failed to read cache blob: %w", err)
	}

	var b blob

	err = msgpack.Unmarshal(data, &b)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cache blob: %w", err)
	}

	if b.Version != FormatVersion {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, b.Version, FormatVersion)
	}

	if len(b.Embeddings) != len(b.Datapoints) || len(b.SourcePaths) != len(b.Datapoints) {
		return nil, fmt.Errorf("%w: %d datapoints, %d embeddings, %d paths",
			ErrCorruptBlob, len(b.Datapoints), len(b.Embeddings), len(b.SourcePaths))
	}

	return &core.Corpus{
		Datapoints:  b.Datapoints,
		Embeddings:  b.Embeddings,
		SourcePaths: b.SourcePaths,
	}, nil
}

// WriteAudit records every candidate key, one per line, before filtering.
// The file is advisory and never read back programmatically.
func WriteAudit(cacheDir string, keys []string) error {
	var builder strings.Builder

	for _, key := range keys {
		builder.WriteString(key)
		builder.WriteByte('\n')
	}

	path := filepath.Join(cacheDir, AuditName)

	err := os.WriteFile(path, []byte(builder.String()), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write audit file '%s': %w", path, err)
	}

	return nil
}
