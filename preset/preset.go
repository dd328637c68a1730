// Package preset manages chain snapshots: two in-memory A/B slots for quick
// comparison, JSON import/export for sharing, and loudness matching so that
// recalling a snapshot does not win a comparison just by being louder.
package preset

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-master/chain"
)

var (
	// ErrInvalidPreset is returned when an imported document is not a
	// recognizable preset.
	ErrInvalidPreset = errors.New("preset: invalid preset document")

	// ErrEmptySlot is returned when recalling a slot that was never captured.
	ErrEmptySlot = errors.New("preset: slot is empty")
)

// Preset is a named snapshot of the full chain state plus the integrated
// loudness measured at capture time. The loudness field drives gain
// matching on recall; zero means "not measured".
type Preset struct {
	Name string `json:"name,omitempty"`
	chain.State
	Lufs float64 `json:"lufs,omitempty"`
}

// requiredKeys are the top-level sections an imported document must carry
// to count as a preset. Extra keys are ignored for forward compatibility.
var requiredKeys = []string{"eq", "compressor", "limiter"}

// Parse decodes and validates a preset document. Unknown top-level keys are
// tolerated; missing required sections are not. Out-of-range parameter
// values are clamped, never rejected.
func Parse(data []byte) (Preset, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Preset{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}

	for _, key := range requiredKeys {
		if _, ok := probe[key]; !ok {
			return Preset{}, fmt.Errorf("%w: missing %q section", ErrInvalidPreset, key)
		}
	}

	p := Preset{State: chain.DefaultState()}
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("%w: %w", ErrInvalidPreset, err)
	}

	p.State.Clamp()

	return p, nil
}

// Encode serializes p as indented JSON.
func (p Preset) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("preset: encode: %w", err)
	}

	return data, nil
}
