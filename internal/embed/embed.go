// Package embed adapts an external speaker-embedding binary to the
// core.Embedder interface.
package embed

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/book-expert/aligner-corpus/internal/audioio"
	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

var (
	// ErrBinaryPathEmpty indicates that the embedding binary path is empty.
	ErrBinaryPathEmpty = errors.New("embedding binary path cannot be empty")
	// ErrModelPathEmpty indicates that the embedding model path is empty.
	ErrModelPathEmpty = errors.New("embedding model path cannot be empty")
	// ErrEmptyEmbedding indicates that the binary produced no vector.
	ErrEmptyEmbedding = errors.New("embedding binary produced an empty vector")
)

// Config holds the embedding extractor invocation settings.
type Config struct {
	BinaryPath string
	ModelPath  string
	Device     string
}

// ExecEmbedder implements core.Embedder by calling the configured embedding
// binary. The assembler uses exactly one shared instance sequentially; the
// type makes no concurrency promises.
type ExecEmbedder struct {
	cfg Config
	log *logger.Logger
}

// New creates a new ExecEmbedder.
func New(cfg Config, log *logger.Logger) (*ExecEmbedder, error) {
	if cfg.BinaryPath == "" {
		return nil, ErrBinaryPathEmpty
	}

	if cfg.ModelPath == "" {
		return nil, ErrModelPathEmpty
	}

	return &ExecEmbedder{cfg: cfg, log: log}, nil
}

// Embed computes a fixed-length speaker embedding from a waveform at the
// canonical sample rate.
func (e *ExecEmbedder) Embed(wave []float64) ([]float32, error) {
	scratch := filepath.Join(os.TempDir(), "embed-"+uuid.NewString())

	wavePath := scratch + ".wav"
	vectorPath := scratch + ".vec"

	defer e.removeScratch(wavePath, vectorPath)

	err := audioio.WriteWAV(wavePath, wave, core.CanonicalSampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to stage waveform for embedding: %w", err)
	}

	args := []string{
		"-m", e.cfg.ModelPath,
		"--audio", wavePath,
		"--embedding", vectorPath,
		"--device", e.cfg.Device,
	}

	// #nosec G204 -- binary and model paths come from validated configuration
	cmd := exec.Command(e.cfg.BinaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("embedding binary execution failed: %w - output: %s", err, string(output))
	}

	return readVector(vectorPath)
}

func (e *ExecEmbedder) removeScratch(paths ...string) {
	for _, path := range paths {
		removeErr := os.Remove(path)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && e.log != nil {
			e.log.Warn("Failed to remove scratch file '%s': %v", path, removeErr)
		}
	}
}

func readVector(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding output '%s': %w", path, err)
	}

	fields := strings.FieldsFunc(strings.TrimSpace(string(data)), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})

	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrEmptyEmbedding, path)
	}

	vector := make([]float32, len(fields))

	for i, field := range fields {
		value, parseErr := strconv.ParseFloat(field, 32)
		if parseErr != nil {
			return nil, fmt.Errorf("failed to parse embedding component %d: %w", i, parseErr)
		}

		vector[i] = float32(value)
	}

	return vector, nil
}
