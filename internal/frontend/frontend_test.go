// Package frontend_test tests the symbol-inventory text frontend.
package frontend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/book-expert/aligner-corpus/internal/frontend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testInventory() frontend.Inventory {
	return frontend.Inventory{
		Placeholder: 1,
		Symbols: map[string]int16{
			" ": 2,
			"a": 3,
			"b": 4,
			"c": 5,
		},
	}
}

func TestEncodeStrict(t *testing.T) {
	t.Parallel()

	f, err := frontend.New(testInventory())
	require.NoError(t, err)

	ids, err := f.Encode("ab c", false, true)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4, 2, 5}, ids)
}

func TestEncodeLowercasesAndCollapsesWhitespace(t *testing.T) {
	t.Parallel()

	f, err := frontend.New(testInventory())
	require.NoError(t, err)

	ids, err := f.Encode("  Ab \t\n c ", false, true)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4, 2, 5}, ids)
}

func TestEncodeStrictFailsOnUnknownSymbol(t *testing.T) {
	t.Parallel()

	f, err := frontend.New(testInventory())
	require.NoError(t, err)

	_, err = f.Encode("abz", false, true)
	require.ErrorIs(t, err, core.ErrUnknownSymbol)
}

func TestEncodePermissiveSubstitutesPlaceholder(t *testing.T) {
	t.Parallel()

	f, err := frontend.New(testInventory())
	require.NoError(t, err)

	ids, err := f.Encode("abz", false, false)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4, 1}, ids)
}

func TestEncodePhoneInputSkipsLowercasing(t *testing.T) {
	t.Parallel()

	inv := testInventory()
	inv.Symbols["A"] = 6

	f, err := frontend.New(inv)
	require.NoError(t, err)

	ids, err := f.Encode("A b", true, true)
	require.NoError(t, err)
	assert.Equal(t, []int16{6, 2, 4}, ids)
}

func TestEncodeMalformedText(t *testing.T) {
	t.Parallel()

	f, err := frontend.New(testInventory())
	require.NoError(t, err)

	_, err = f.Encode("   ", false, true)
	require.ErrorIs(t, err, core.ErrMalformedText)

	_, err = f.Encode("ab\xff", false, false)
	require.ErrorIs(t, err, core.ErrMalformedText)
}

func TestLoadInventoryFile(t *testing.T) {
	t.Parallel()

	tomlData := `
placeholder = 1

[symbols]
" " = 2
"a" = 3
"b" = 4
`

	path := filepath.Join(t.TempDir(), "inventory.toml")
	require.NoError(t, os.WriteFile(path, []byte(tomlData), 0o600))

	f, err := frontend.Load(path)
	require.NoError(t, err)

	ids, err := f.Encode("ab", false, true)
	require.NoError(t, err)
	assert.Equal(t, []int16{3, 4}, ids)
}

func TestNewRejectsBadInventories(t *testing.T) {
	t.Parallel()

	_, err := frontend.New(frontend.Inventory{Placeholder: 1, Symbols: nil})
	require.ErrorIs(t, err, frontend.ErrEmptyInventory)

	_, err = frontend.New(frontend.Inventory{
		Placeholder: 3,
		Symbols:     map[string]int16{"a": 3},
	})
	require.ErrorIs(t, err, frontend.ErrReservedPlaceholder)
}
