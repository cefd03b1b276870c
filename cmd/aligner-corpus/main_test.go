// Tests for the transcripts file loader.
package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTranscripts(t *testing.T) {
	t.Parallel()

	content := "# corpus listing\n" +
		"/data/a.wav\thello there\n" +
		"\n" +
		"/data/b.wav\tsecond line\twith a tab inside\n" +
		"not-a-valid-line\n"

	path := filepath.Join(t.TempDir(), "transcripts.tsv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	transcripts, err := loadTranscripts(path)
	require.NoError(t, err)

	assert.Len(t, transcripts, 2)
	assert.Equal(t, "hello there", transcripts["/data/a.wav"])
	assert.Equal(t, "second line\twith a tab inside", transcripts["/data/b.wav"])
}

func TestLoadTranscriptsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := loadTranscripts(filepath.Join(t.TempDir(), "absent.tsv"))
	require.Error(t, err)
}
