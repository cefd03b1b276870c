// Package shuffle_test tests the deterministic key shuffle.
package shuffle_test

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/book-expert/aligner-corpus/internal/shuffle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringsIsAPermutation(t *testing.T) {
	t.Parallel()

	keys := []string{"a", "b", "c", "d", "e", "f", "g", "b"}
	original := append([]string(nil), keys...)

	shuffle.Strings(rand.New(rand.NewSource(7)), keys)

	sortedKeys := append([]string(nil), keys...)
	sortedOriginal := append([]string(nil), original...)
	sort.Strings(sortedKeys)
	sort.Strings(sortedOriginal)

	require.Equal(t, sortedOriginal, sortedKeys)
}

func TestStringsShortListsAreNoOps(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))

	var empty []string

	shuffle.Strings(rng, empty)
	assert.Empty(t, empty)

	single := []string{"only"}
	shuffle.Strings(rng, single)
	assert.Equal(t, []string{"only"}, single)
}

func TestStringsIsDeterministicPerSeed(t *testing.T) {
	t.Parallel()

	first := []string{"a", "b", "c", "d", "e", "f"}
	second := append([]string(nil), first...)

	shuffle.Strings(rand.New(rand.NewSource(42)), first)
	shuffle.Strings(rand.New(rand.NewSource(42)), second)

	require.Equal(t, first, second)
}
