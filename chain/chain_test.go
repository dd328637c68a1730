package chain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/cwbudde/algo-master/internal/testutil"
)

// bypassedState returns a state with every stage defeated, so the chain is
// a pure pass-through apart from the output smoother.
func bypassedState() State {
	st := DefaultState()
	st.Compressor.Bypass = true
	st.Saturation.Bypass = true
	st.Stereo.Bypass = true
	st.Limiter.Bypass = true

	return st
}

func TestSetBandGainClampsOnWrite(t *testing.T) {
	c := New(48000)

	c.SetBandGain(BandSub, 40)
	if got := c.State().EQ.Sub; got != MaxBandGainDB {
		t.Fatalf("sub gain = %v, want clamp to %v", got, MaxBandGainDB)
	}

	c.SetBandGain(BandAir, -100)
	if got := c.State().EQ.Air; got != MinBandGainDB {
		t.Fatalf("air gain = %v, want clamp to %v", got, MinBandGainDB)
	}

	c.SetBandGain(BandMid, math.NaN())
	if got := c.State().EQ.Mid; got != 0 {
		t.Fatalf("NaN gain applied: got %v, want 0", got)
	}
}

func TestSettersClampEveryField(t *testing.T) {
	c := New(48000)

	c.SetCompressor(CompressorState{ThresholdDB: -99, Ratio: 99, AttackSec: 0, ReleaseSec: 99, MakeupDB: 99})
	comp := c.State().Compressor

	if comp.ThresholdDB != MinCompThresholdDB {
		t.Errorf("threshold = %v, want %v", comp.ThresholdDB, MinCompThresholdDB)
	}

	if comp.Ratio != MaxCompRatio {
		t.Errorf("ratio = %v, want %v", comp.Ratio, MaxCompRatio)
	}

	if comp.AttackSec != MinCompAttackSec {
		t.Errorf("attack = %v, want %v", comp.AttackSec, MinCompAttackSec)
	}

	c.SetLimiter(LimiterState{ThresholdDB: 5, CeilingDB: 5, ReleaseMs: 5})
	lim := c.State().Limiter

	if lim.ThresholdDB != MaxLimThresholdDB || lim.CeilingDB != MaxLimCeilingDB || lim.ReleaseMs != MinLimReleaseMs {
		t.Errorf("limiter state not clamped: %+v", lim)
	}

	c.SetStereo(StereoState{Width: 5, Pan: -5})
	stereo := c.State().Stereo

	if stereo.Width != MaxStereoWidth || stereo.Pan != MinStereoPan {
		t.Errorf("stereo state not clamped: %+v", stereo)
	}

	c.SetGainMatchOffset(100)
	if got := c.GainMatchOffset(); got != MaxGainMatchDB {
		t.Errorf("gain match offset = %v, want %v", got, MaxGainMatchDB)
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	st := DefaultState()
	st.EQ.Mid = 3.5
	st.Compressor.Bypass = true
	st.Limiter.SoftClip = true
	st.Stereo.Pan = -0.25

	data, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got State
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got != st {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, st)
	}
}

func TestApplyStateClampsOutOfRangeDocument(t *testing.T) {
	c := New(48000)

	st := DefaultState()
	st.EQ.Sub = 1000
	st.Compressor.Ratio = -3
	c.ApplyState(st)

	got := c.State()

	if got.EQ.Sub != MaxBandGainDB {
		t.Errorf("sub = %v, want %v", got.EQ.Sub, MaxBandGainDB)
	}

	if got.Compressor.Ratio != MinCompRatio {
		t.Errorf("ratio = %v, want %v", got.Compressor.Ratio, MinCompRatio)
	}
}

func TestBypassedChainIsTransparent(t *testing.T) {
	c := New(48000)
	c.ApplyState(bypassedState())

	left, right := testutil.StereoSine(440, 48000, 0.25, 4800)

	want := make([]float64, len(left))
	copy(want, left)

	c.Process(left, right)

	for i := range left {
		if math.Abs(left[i]-want[i]) > 1e-12 {
			t.Fatalf("sample %d: got %v, want %v", i, left[i], want[i])
		}
	}
}

func TestVolumeScalesOutput(t *testing.T) {
	c := New(48000)
	c.ApplyState(bypassedState())
	c.SetVolume(0.5)

	// Process enough audio for the output ramp to settle.
	left := testutil.DC(0.4, 48000)
	right := testutil.DC(0.4, 48000)
	c.Process(left, right)

	testutil.RequireNear(t, left[len(left)-1], 0.2, 1e-6)
}

func TestMuteSilencesOutput(t *testing.T) {
	c := New(48000)
	c.ApplyState(bypassedState())
	c.SetMuted(true)

	left := testutil.DC(0.4, 48000)
	right := testutil.DC(0.4, 48000)
	c.Process(left, right)

	if got := math.Abs(left[len(left)-1]); got > 1e-9 {
		t.Fatalf("muted output = %v, want ~0", got)
	}
}

func TestGainMatchOffsetAppliesAfterTap(t *testing.T) {
	c := New(48000)
	c.ApplyState(bypassedState())
	c.SetGainMatchOffset(6)

	var tapped float64
	c.SetTap(func(l, r []float64) { tapped = l[len(l)-1] })

	left := testutil.DC(0.1, 48000)
	right := testutil.DC(0.1, 48000)
	c.Process(left, right)

	// The tap sees the pre-gain signal; the output is ~6 dB louder.
	testutil.RequireNear(t, tapped, 0.1, 1e-12)
	testutil.RequireNear(t, left[len(left)-1], 0.1*math.Pow(10, 6.0/20), 1e-6)
}

func TestMonoCollapse(t *testing.T) {
	c := New(48000)

	st := bypassedState()
	st.Stereo.Bypass = false
	st.Stereo.Mono = true
	c.ApplyState(st)

	left := testutil.Sine(440, 48000, 0.3, 4800)
	right := testutil.Sine(620, 48000, 0.3, 4800)
	c.Process(left, right)

	for i := range left {
		if left[i] != right[i] {
			t.Fatalf("sample %d: left %v != right %v after mono collapse", i, left[i], right[i])
		}
	}
}

func TestPanHardLeftSilencesRight(t *testing.T) {
	c := New(48000)

	st := bypassedState()
	st.Stereo.Bypass = false
	st.Stereo.Pan = -1
	c.ApplyState(st)

	left := testutil.DC(0.3, 4800)
	right := testutil.DC(0.3, 4800)
	c.Process(left, right)

	if right[4799] != 0 {
		t.Fatalf("right = %v, want 0 at hard left pan", right[4799])
	}

	if left[4799] == 0 {
		t.Fatal("left silenced by hard left pan")
	}
}

func TestCompressorReducesLoudPeaks(t *testing.T) {
	c := New(48000)

	st := bypassedState()
	st.Compressor.Bypass = false
	st.Compressor.ThresholdDB = -20
	st.Compressor.Ratio = 4
	c.ApplyState(st)

	left := testutil.DC(0.5, 48000)
	right := testutil.DC(0.5, 48000)
	c.Process(left, right)

	// -6 dBFS input against a -20 dB threshold at 4:1 must come out
	// quieter than it went in.
	if got := left[len(left)-1]; got >= 0.5 {
		t.Fatalf("compressed output %v, want < 0.5", got)
	}
}

func TestEQBoostRaisesBandLevel(t *testing.T) {
	c := New(48000)

	st := bypassedState()
	st.EQ.Mid = 6
	c.ApplyState(st)

	left, right := testutil.StereoSine(1000, 48000, 0.05, 48000)
	c.Process(left, right)

	// Steady-state peak of a 1 kHz tone through a +6 dB peak filter
	// centered at 1 kHz.
	peak := testutil.MaxAbs(left[24000:])
	gotDB := 20 * math.Log10(peak/0.05)

	testutil.RequireNear(t, gotDB, 6, 0.2)
}

func TestResponseCurveMatchesBandGains(t *testing.T) {
	c := New(48000)
	c.SetBandGain(BandMid, 6)

	resp := c.ResponseCurveDB([]float64{20, 1000, 20000})

	testutil.RequireNear(t, resp[1], 6, 0.3)

	if math.Abs(resp[0]) > 1 {
		t.Fatalf("response at 20 Hz = %v dB, want near flat", resp[0])
	}
}

func TestResponseCurveFlatByDefault(t *testing.T) {
	c := New(48000)

	for i, db := range c.ResponseCurveDB([]float64{50, 500, 5000, 15000}) {
		if math.Abs(db) > 1e-9 {
			t.Fatalf("flat response[%d] = %v, want 0", i, db)
		}
	}
}

func TestParseBand(t *testing.T) {
	cases := []struct {
		in   string
		want Band
		ok   bool
	}{
		{"sub", BandSub, true},
		{"air", BandAir, true},
		{"treble", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseBand(tc.in)

		if ok != tc.ok {
			t.Errorf("ParseBand(%q) ok = %v, want %v", tc.in, ok, tc.ok)
			continue
		}

		if tc.ok && got != tc.want {
			t.Errorf("ParseBand(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestResetPreservesParameters(t *testing.T) {
	c := New(48000)
	c.SetBandGain(BandLow, -3)

	left, right := testutil.StereoSine(440, 48000, 0.2, 4800)
	c.Process(left, right)

	c.Reset()

	if got := c.State().EQ.Low; got != -3 {
		t.Fatalf("band gain after reset = %v, want -3", got)
	}
}
