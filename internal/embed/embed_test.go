// Package embed_test tests the exec-based speaker-embedding adapter.
package embed_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/aligner-corpus/internal/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeBinary(t *testing.T, payload string) string {
	t.Helper()

	script := `#!/bin/sh
out=""
prev=""
for arg in "$@"; do
    if [ "$prev" = "--embedding" ]; then
        out="$arg"
    fi
    prev="$arg"
done
printf '` + payload + `' > "$out"
`

	path := filepath.Join(t.TempDir(), "fake-embedder")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o700))

	return path
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := embed.New(embed.Config{BinaryPath: "", ModelPath: "m", Device: "cpu"}, nil)
	require.ErrorIs(t, err, embed.ErrBinaryPathEmpty)

	_, err = embed.New(embed.Config{BinaryPath: "b", ModelPath: "", Device: "cpu"}, nil)
	require.ErrorIs(t, err, embed.ErrModelPathEmpty)
}

func TestEmbedParsesVector(t *testing.T) {
	t.Parallel()

	bin := writeFakeBinary(t, `0.5,-0.25,1.0\n`)

	e, err := embed.New(embed.Config{BinaryPath: bin, ModelPath: "model.bin", Device: "cpu"}, nil)
	require.NoError(t, err)

	vector, err := e.Embed([]float64{0.0, 0.1, -0.1})
	require.NoError(t, err)

	assert.Equal(t, []float32{0.5, -0.25, 1.0}, vector)
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	t.Parallel()

	bin := writeFakeBinary(t, ``)

	e, err := embed.New(embed.Config{BinaryPath: bin, ModelPath: "model.bin", Device: "cpu"}, nil)
	require.NoError(t, err)

	_, err = e.Embed([]float64{0.0})
	require.ErrorIs(t, err, embed.ErrEmptyEmbedding)
}

func TestEmbedReportsBinaryFailure(t *testing.T) {
	t.Parallel()

	failing := filepath.Join(t.TempDir(), "failing-embedder")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\nexit 7\n"), 0o700))

	e, err := embed.New(embed.Config{BinaryPath: failing, ModelPath: "model.bin", Device: "cpu"}, nil)
	require.NoError(t, err)

	_, err = e.Embed([]float64{0.0})
	require.Error(t, err)
}
