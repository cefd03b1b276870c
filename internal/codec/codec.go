// Package codec adapts an external discrete speech codec binary to the
// core.Codec interface. Waveforms travel to the binary as temp WAV files and
// code/feature matrices come back as comma-separated text files.
package codec

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/book-expert/aligner-corpus/internal/audioio"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
)

var (
	// ErrBinaryPathEmpty indicates that the codec binary path is empty.
	ErrBinaryPathEmpty = errors.New("codec binary path cannot be empty")
	// ErrModelPathEmpty indicates that the codec model path is empty.
	ErrModelPathEmpty = errors.New("codec model path cannot be empty")
	// ErrEmptyMatrix indicates that the binary produced an empty matrix.
	ErrEmptyMatrix = errors.New("codec produced an empty matrix")
	// ErrRaggedMatrix indicates rows of unequal width in the produced matrix.
	ErrRaggedMatrix = errors.New("codec produced a ragged matrix")
)

// Config holds the codec invocation settings.
type Config struct {
	BinaryPath string
	ModelPath  string
	Device     string
}

// ExecCodec implements core.Codec by calling the configured codec binary.
// Instances are not safe for concurrent use; every pool worker and dataset
// view constructs its own through a core.CodecFactory.
type ExecCodec struct {
	cfg Config
	log *logger.Logger
}

// New creates a new ExecCodec.
func New(cfg Config, log *logger.Logger) (*ExecCodec, error) {
	if cfg.BinaryPath == "" {
		return nil, ErrBinaryPathEmpty
	}

	if cfg.ModelPath == "" {
		return nil, ErrModelPathEmpty
	}

	return &ExecCodec{cfg: cfg, log: log}, nil
}

// Encode converts a waveform into a [time][codebook depth] code matrix.
func (c *ExecCodec) Encode(wave []float64, sampleRate int) ([][]int16, error) {
	scratch := filepath.Join(os.TempDir(), "codec-"+uuid.NewString())

	wavePath := scratch + ".wav"
	codesPath := scratch + ".codes"

	defer c.removeScratch(wavePath, codesPath)

	err := audioio.WriteWAV(wavePath, wave, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("failed to stage waveform for codec: %w", err)
	}

	args := []string{
		"encode",
		"-m", c.cfg.ModelPath,
		"--audio", wavePath,
		"--codes", codesPath,
		"--device", c.cfg.Device,
	}

	err = c.run(args)
	if err != nil {
		return nil, err
	}

	return readCodeMatrix(codesPath)
}

// Decode converts a cached code matrix back into continuous feature frames.
func (c *ExecCodec) Decode(codes [][]int16) ([][]float32, error) {
	scratch := filepath.Join(os.TempDir(), "codec-"+uuid.NewString())

	codesPath := scratch + ".codes"
	featuresPath := scratch + ".features"

	defer c.removeScratch(codesPath, featuresPath)

	err := writeCodeMatrix(codesPath, codes)
	if err != nil {
		return nil, err
	}

	args := []string{
		"decode",
		"-m", c.cfg.ModelPath,
		"--codes", codesPath,
		"--features", featuresPath,
		"--device", c.cfg.Device,
	}

	err = c.run(args)
	if err != nil {
		return nil, err
	}

	return readFeatureMatrix(featuresPath)
}

func (c *ExecCodec) run(args []string) error {
	// #nosec G204 -- binary and model paths come from validated configuration
	cmd := exec.Command(c.cfg.BinaryPath, args...)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("codec binary execution failed: %w - output: %s", err, string(output))
	}

	return nil
}

func (c *ExecCodec) removeScratch(paths ...string) {
	for _, path := range paths {
		removeErr := os.Remove(path)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) && c.log != nil {
			c.log.Warn("Failed to remove scratch file '%s': %v", path, removeErr)
		}
	}
}

func writeCodeMatrix(path string, codes [][]int16) error {
	var builder strings.Builder

	for _, row := range codes {
		for i, v := range row {
			if i > 0 {
				builder.WriteByte(',')
			}

			builder.WriteString(strconv.Itoa(int(v)))
		}

		builder.WriteByte('\n')
	}

	err := os.WriteFile(path, []byte(builder.String()), 0o600)
	if err != nil {
		return fmt.Errorf("failed to stage code matrix for codec: %w", err)
	}

	return nil
}

func readCodeMatrix(path string) ([][]int16, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	matrix := make([][]int16, len(rows))

	for i, fields := range rows {
		row := make([]int16, len(fields))

		for j, field := range fields {
			value, parseErr := strconv.ParseInt(field, 10, 16)
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse code at row %d: %w", i, parseErr)
			}

			row[j] = int16(value)
		}

		matrix[i] = row
	}

	return matrix, nil
}

func readFeatureMatrix(path string) ([][]float32, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	matrix := make([][]float32, len(rows))

	for i, fields := range rows {
		row := make([]float32, len(fields))

		for j, field := range fields {
			value, parseErr := strconv.ParseFloat(field, 32)
			if parseErr != nil {
				return nil, fmt.Errorf("failed to parse feature at row %d: %w", i, parseErr)
			}

			row[j] = float32(value)
		}

		matrix[i] = row
	}

	return matrix, nil
}

func readRows(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read codec output '%s': %w", path, err)
	}

	var rows [][]string

	width := -1

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")

		if width == -1 {
			width = len(fields)
		} else if len(fields) != width {
			return nil, fmt.Errorf("%w: '%s'", ErrRaggedMatrix, path)
		}

		rows = append(rows, fields)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: '%s'", ErrEmptyMatrix, path)
	}

	return rows, nil
}
