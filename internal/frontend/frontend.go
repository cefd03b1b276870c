// Package frontend provides the symbol-inventory text frontend that turns
// transcripts into token id sequences.
package frontend

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/book-expert/aligner-corpus/internal/core"
	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrEmptyInventory indicates an inventory file without any symbols.
	ErrEmptyInventory = errors.New("symbol inventory is empty")
	// ErrReservedPlaceholder indicates that the placeholder id collides with
	// an inventory symbol id.
	ErrReservedPlaceholder = errors.New("placeholder id collides with a symbol id")
)

// Inventory is the on-disk shape of a symbol inventory file.
type Inventory struct {
	// Placeholder is the id substituted for out-of-inventory symbols in
	// permissive mode.
	Placeholder int16 `toml:"placeholder"`
	// Symbols maps a single-rune symbol to its token id.
	Symbols map[string]int16 `toml:"symbols"`
}

// Frontend encodes transcripts against a fixed symbol inventory. A Frontend
// is cheap to construct; pool workers and dataset views each build their own.
type Frontend struct {
	symbols     map[string]int16
	placeholder int16
}

// New creates a frontend from an in-memory inventory.
func New(inv Inventory) (*Frontend, error) {
	if len(inv.Symbols) == 0 {
		return nil, ErrEmptyInventory
	}

	symbols := make(map[string]int16, len(inv.Symbols))
	for symbol, id := range inv.Symbols {
		if id == inv.Placeholder {
			return nil, fmt.Errorf("%w: %q = %d", ErrReservedPlaceholder, symbol, id)
		}

		symbols[symbol] = id
	}

	return &Frontend{symbols: symbols, placeholder: inv.Placeholder}, nil
}

// Load reads a TOML inventory file and builds a frontend from it.
func Load(path string) (*Frontend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read symbol inventory '%s': %w", path, err)
	}

	var inv Inventory

	err = toml.Unmarshal(data, &inv)
	if err != nil {
		return nil, fmt.Errorf("failed to parse symbol inventory '%s': %w", path, err)
	}

	return New(inv)
}

// Encode converts text into token ids. Strict mode fails on the first symbol
// missing from the inventory; permissive mode substitutes the placeholder id.
func (f *Frontend) Encode(text string, phoneInput bool, strict bool) ([]int16, error) {
	prepared := f.prepare(text, phoneInput)
	if prepared == "" {
		return nil, fmt.Errorf("%w: nothing left to encode", core.ErrMalformedText)
	}

	ids := make([]int16, 0, len(prepared))

	for _, r := range prepared {
		if r == '�' {
			return nil, fmt.Errorf("%w: invalid rune in transcript", core.ErrMalformedText)
		}

		id, ok := f.symbols[string(r)]
		if !ok {
			if strict {
				return nil, fmt.Errorf("%w: %q", core.ErrUnknownSymbol, string(r))
			}

			id = f.placeholder
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// prepare normalizes transcript text. Phone input is an already-phonemized
// symbol string; only whitespace is collapsed for it.
func (f *Frontend) prepare(text string, phoneInput bool) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	if phoneInput {
		return collapsed
	}

	return strings.ToLower(collapsed)
}
