package preset

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/cwbudde/algo-master/chain"
)

func validDoc(t *testing.T) []byte {
	t.Helper()

	p := Preset{Name: "test", State: chain.DefaultState(), Lufs: -16}

	data, err := p.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	return data
}

func TestParseRoundTrip(t *testing.T) {
	st := chain.DefaultState()
	st.EQ.Air = 4.5
	st.Limiter.SoftClip = true

	data, err := Preset{Name: "bright", State: st, Lufs: -12.5}.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Parse(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got.Name != "bright" || got.Lufs != -12.5 || got.State != st {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestParseRejectsMissingSections(t *testing.T) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(validDoc(t), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	delete(doc, "compressor")

	broken, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, err := Parse(broken); !errors.Is(err, ErrInvalidPreset) {
		t.Fatalf("err = %v, want ErrInvalidPreset", err)
	}
}

func TestParseRejectsNonJSON(t *testing.T) {
	if _, err := Parse([]byte("{broken")); !errors.Is(err, ErrInvalidPreset) {
		t.Fatalf("err = %v, want ErrInvalidPreset", err)
	}
}

func TestParseClampsOutOfRangeValues(t *testing.T) {
	doc := []byte(`{
		"eq": {"sub": 0, "low": 0, "mid": 99, "high": 0, "air": 0},
		"compressor": {"threshold": -18, "ratio": 2, "attack": 0.01, "release": 0.25},
		"limiter": {"threshold": -3, "ceiling": 7, "release": 250}
	}`)

	p, err := Parse(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if p.State.EQ.Mid != chain.MaxBandGainDB {
		t.Fatalf("mid = %v, want clamp to %v", p.State.EQ.Mid, chain.MaxBandGainDB)
	}

	if p.State.Limiter.CeilingDB != chain.MaxLimCeilingDB {
		t.Fatalf("ceiling = %v, want clamp to %v", p.State.Limiter.CeilingDB, chain.MaxLimCeilingDB)
	}
}

func TestParseToleratesUnknownKeys(t *testing.T) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(validDoc(t), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	doc["future_section"] = json.RawMessage(`{"x": 1}`)

	extended, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if _, err := Parse(extended); err != nil {
		t.Fatalf("parse with unknown key: %v", err)
	}
}

// fakeConsole records what the manager tells it to do.
type fakeConsole struct {
	state  chain.State
	lufs   float64
	offset float64
}

func (c *fakeConsole) State() chain.State            { return c.state }
func (c *fakeConsole) Apply(st chain.State)          { c.state = st }
func (c *fakeConsole) IntegratedLUFS() float64       { return c.lufs }
func (c *fakeConsole) SetGainMatchOffset(dB float64) { c.offset = dB }

func TestCaptureAndRecall(t *testing.T) {
	console := &fakeConsole{state: chain.DefaultState(), lufs: -20}
	m := NewManager(console)

	if err := m.Capture(SlotA, "first"); err != nil {
		t.Fatalf("capture: %v", err)
	}

	// Change the live state, then recall the snapshot.
	changed := console.state
	changed.EQ.Sub = -6
	console.Apply(changed)

	if err := m.Recall(SlotA); err != nil {
		t.Fatalf("recall: %v", err)
	}

	if console.state.EQ.Sub != 0 {
		t.Fatalf("sub = %v, want recalled 0", console.state.EQ.Sub)
	}
}

func TestRecallComputesGainMatchOffset(t *testing.T) {
	// Preset captured at -20 LUFS; session now plays at -14 LUFS. The
	// recalled state gets a +6 dB offset so it holds the current loudness.
	console := &fakeConsole{state: chain.DefaultState(), lufs: -20}
	m := NewManager(console)

	if err := m.Capture(SlotB, "quiet"); err != nil {
		t.Fatalf("capture: %v", err)
	}

	console.lufs = -14

	if err := m.Recall(SlotB); err != nil {
		t.Fatalf("recall: %v", err)
	}

	if console.offset != 6 {
		t.Fatalf("offset = %v, want 6", console.offset)
	}
}

func TestRecallClampsExtremeOffset(t *testing.T) {
	console := &fakeConsole{state: chain.DefaultState(), lufs: -60}
	m := NewManager(console)

	if err := m.Capture(SlotA, "very quiet"); err != nil {
		t.Fatalf("capture: %v", err)
	}

	console.lufs = -10

	if err := m.Recall(SlotA); err != nil {
		t.Fatalf("recall: %v", err)
	}

	if console.offset != chain.MaxGainMatchDB {
		t.Fatalf("offset = %v, want clamp to %v", console.offset, chain.MaxGainMatchDB)
	}
}

func TestDisablingMatchingZeroesOffset(t *testing.T) {
	console := &fakeConsole{state: chain.DefaultState(), lufs: -20}
	m := NewManager(console)

	if err := m.Capture(SlotA, ""); err != nil {
		t.Fatalf("capture: %v", err)
	}

	console.lufs = -14

	if err := m.Recall(SlotA); err != nil {
		t.Fatalf("recall: %v", err)
	}

	m.SetMatching(false)

	if console.offset != 0 {
		t.Fatalf("offset = %v after disabling matching, want 0", console.offset)
	}

	// With matching off, recalls apply no offset.
	if err := m.Recall(SlotA); err != nil {
		t.Fatalf("recall: %v", err)
	}

	if console.offset != 0 {
		t.Fatalf("offset = %v, want 0", console.offset)
	}
}

func TestRecallEmptySlot(t *testing.T) {
	m := NewManager(&fakeConsole{})

	if err := m.Recall(SlotA); !errors.Is(err, ErrEmptySlot) {
		t.Fatalf("err = %v, want ErrEmptySlot", err)
	}
}

func TestImportExport(t *testing.T) {
	console := &fakeConsole{state: chain.DefaultState(), lufs: -18}
	m := NewManager(console)

	if err := m.Import(SlotA, validDoc(t)); err != nil {
		t.Fatalf("import: %v", err)
	}

	out, err := m.Export(SlotA)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	p, err := Parse(out)
	if err != nil {
		t.Fatalf("reparse export: %v", err)
	}

	if p.Name != "test" || p.Lufs != -16 {
		t.Fatalf("exported preset = %+v", p)
	}
}

func TestImportRejectsInvalidDocument(t *testing.T) {
	m := NewManager(&fakeConsole{})

	if err := m.Import(SlotA, []byte(`{"eq": {}}`)); !errors.Is(err, ErrInvalidPreset) {
		t.Fatalf("err = %v, want ErrInvalidPreset", err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	if err := store.Save("warm", validDoc(t)); err != nil {
		t.Fatalf("save: %v", err)
	}

	doc, err := store.Load("warm")
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := Parse(doc); err != nil {
		t.Fatalf("parse loaded doc: %v", err)
	}

	names, err := store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	if len(names) != 1 || names[0] != "warm" {
		t.Fatalf("names = %v, want [warm]", names)
	}
}
