package preset

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-master/chain"
)

// Slot identifies one of the two in-memory comparison slots.
type Slot int

const (
	SlotA Slot = iota
	SlotB

	slotCount // sentinel for validation
)

var slotNames = [slotCount]string{"A", "B"}

// String returns "A" or "B".
func (s Slot) String() string {
	if s >= 0 && s < slotCount {
		return slotNames[s]
	}

	return fmt.Sprintf("Slot(%d)", int(s))
}

// Valid reports whether s names a real slot.
func (s Slot) Valid() bool {
	return s >= 0 && s < slotCount
}

// Console is the control surface the manager drives. The live engine
// implements it; tests substitute a fake.
type Console interface {
	State() chain.State
	Apply(st chain.State)
	IntegratedLUFS() float64
	SetGainMatchOffset(dB float64)
}

// Manager holds the A/B slots and the gain-match switch. All methods are
// safe for concurrent use from the control side; none touch the audio
// thread directly.
type Manager struct {
	mu       sync.Mutex
	console  Console
	slots    [slotCount]*Preset
	matching bool
}

// NewManager creates a manager driving the given console. Gain matching
// starts enabled.
func NewManager(console Console) *Manager {
	return &Manager{console: console, matching: true}
}

// Capture snapshots the console's current state and integrated loudness
// into the given slot.
func (m *Manager) Capture(slot Slot, name string) error {
	if !slot.Valid() {
		return fmt.Errorf("preset: unknown slot %d", int(slot))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := &Preset{
		Name:  name,
		State: m.console.State(),
		Lufs:  m.console.IntegratedLUFS(),
	}

	m.slots[slot] = p

	return nil
}

// Recall applies the slot's stored state to the console. With matching
// enabled and both loudness readings available, the gain-match offset is
// set to currentLUFS minus the stored LUFS so the recalled state plays at
// the loudness the session currently has.
func (m *Manager) Recall(slot Slot) error {
	if !slot.Valid() {
		return fmt.Errorf("preset: unknown slot %d", int(slot))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.slots[slot]
	if p == nil {
		return fmt.Errorf("%w: %s", ErrEmptySlot, slot)
	}

	offset := 0.0

	if m.matching && p.Lufs != 0 {
		current := m.console.IntegratedLUFS()
		if current != 0 {
			offset = core.Clamp(current-p.Lufs, chain.MinGainMatchDB, chain.MaxGainMatchDB)
		}
	}

	m.console.Apply(p.State)
	m.console.SetGainMatchOffset(offset)

	return nil
}

// Slot returns a copy of the stored preset, or false for an empty slot.
func (m *Manager) Slot(slot Slot) (Preset, bool) {
	if !slot.Valid() {
		return Preset{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := m.slots[slot]
	if p == nil {
		return Preset{}, false
	}

	return *p, true
}

// SetMatching toggles loudness matching. Disabling it zeroes the current
// offset immediately so the chain returns to its unmatched gain.
func (m *Manager) SetMatching(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.matching = enabled
	if !enabled {
		m.console.SetGainMatchOffset(0)
	}
}

// Matching reports whether loudness matching is enabled.
func (m *Manager) Matching() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.matching
}

// Export serializes the given slot as a shareable JSON document.
func (m *Manager) Export(slot Slot) ([]byte, error) {
	p, ok := m.Slot(slot)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEmptySlot, slot)
	}

	return p.Encode()
}

// Import parses and validates a JSON document into the given slot. The
// document is not applied until the slot is recalled.
func (m *Manager) Import(slot Slot, data []byte) error {
	if !slot.Valid() {
		return fmt.Errorf("preset: unknown slot %d", int(slot))
	}

	p, err := Parse(data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[slot] = &p

	return nil
}
