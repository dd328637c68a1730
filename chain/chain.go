// Package chain implements the mastering signal graph: five fixed EQ bands,
// a stereo-linked compressor, tanh saturation, stereo imaging, the output
// limiter, an analysis tap, and a smoothed output gain.
//
// The graph is built once and never rebuilt; every parameter write updates
// the corresponding live stage. Control-side setters clamp their inputs to
// the documented ranges, never fail, and publish each value through an
// atomic cell that the audio side picks up at the next block boundary. No
// setter allocates or blocks on the audio thread's behalf.
package chain

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-master/limiter"
)

// Tap receives the processed block after the limiter and before the output
// gain. It runs on the audio thread and must not allocate or block.
type Tap func(left, right []float64)

// Chain owns the ordered DSP stages for one stereo signal path.
//
// Setters may be called from any single control goroutine while Process runs
// on the audio thread. State() reflects the control-side view.
type Chain struct {
	sampleRate float64

	bands  [bandCount]*bandStage
	comp   compStage
	sat    satStage
	stereo stereoStage
	lim    *limiter.Limiter
	out    outStage

	pendingLimThreshold atomicFloat
	pendingLimCeiling   atomicFloat
	pendingLimRelease   atomicFloat
	limSoftClip         atomic.Bool
	limBypass           atomic.Bool

	appliedLimThreshold float64
	appliedLimCeiling   float64
	appliedLimRelease   float64

	tap      Tap
	limadapt [2][]float64

	// Control-side copy of the applied state, kept for State() and
	// ResponseCurveDB. Written only by the control side.
	ctl State

	volume float64
	muted  bool
	offset float64
}

// New creates a chain at the given sample rate with DefaultState applied
// and unity volume. A non-positive sample rate falls back to 48 kHz.
func New(sampleRate float64) *Chain {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		sampleRate = 48000
	}

	c := &Chain{
		sampleRate: sampleRate,
		lim:        limiter.New(sampleRate),
	}

	for b := Band(0); b < bandCount; b++ {
		c.bands[b] = newBandStage(b, sampleRate)
	}

	c.SetVolume(1)
	c.ApplyState(DefaultState())
	c.out.init(sampleRate)
	c.applyPending()

	return c
}

// SampleRate returns the processing sample rate.
func (c *Chain) SampleRate() float64 { return c.sampleRate }

// State returns the control-side snapshot of all stage parameters.
func (c *Chain) State() State { return c.ctl }

// SetTap installs the post-limiter analysis tap. Install before processing
// starts; the tap reference is not synchronized.
func (c *Chain) SetTap(tap Tap) { c.tap = tap }

// SetBandGain sets one EQ band gain in dB, clamped to [-24, 24]. The new
// coefficients apply at the next block with no smoothing.
func (c *Chain) SetBandGain(b Band, dB float64) {
	if !b.Valid() {
		return
	}

	dB = core.Clamp(finiteOr(dB, 0), MinBandGainDB, MaxBandGainDB)

	switch b {
	case BandSub:
		c.ctl.EQ.Sub = dB
	case BandLow:
		c.ctl.EQ.Low = dB
	case BandMid:
		c.ctl.EQ.Mid = dB
	case BandHigh:
		c.ctl.EQ.High = dB
	case BandAir:
		c.ctl.EQ.Air = dB
	}

	c.bands[b].pendingGain.Store(dB)
}

// SetCompressor updates the dynamics stage. All fields clamp to their
// documented ranges.
func (c *Chain) SetCompressor(st CompressorState) {
	st.ThresholdDB = core.Clamp(finiteOr(st.ThresholdDB, MinCompThresholdDB), MinCompThresholdDB, MaxCompThresholdDB)
	st.Ratio = core.Clamp(finiteOr(st.Ratio, MinCompRatio), MinCompRatio, MaxCompRatio)
	st.AttackSec = core.Clamp(finiteOr(st.AttackSec, MinCompAttackSec), MinCompAttackSec, MaxCompAttackSec)
	st.ReleaseSec = core.Clamp(finiteOr(st.ReleaseSec, MinCompReleaseSec), MinCompReleaseSec, MaxCompReleaseSec)
	st.MakeupDB = core.Clamp(finiteOr(st.MakeupDB, 0), MinCompMakeupDB, MaxCompMakeupDB)

	c.ctl.Compressor = st

	c.comp.pendingThreshold.Store(st.ThresholdDB)
	c.comp.pendingRatio.Store(st.Ratio)
	c.comp.pendingAttack.Store(st.AttackSec)
	c.comp.pendingRelease.Store(st.ReleaseSec)
	c.comp.pendingMakeup.Store(st.MakeupDB)
	c.comp.bypass.Store(st.Bypass)
}

// SetLimiter updates the limiter stage. All fields clamp to their
// documented ranges.
func (c *Chain) SetLimiter(st LimiterState) {
	st.ThresholdDB = core.Clamp(finiteOr(st.ThresholdDB, MinLimThresholdDB), MinLimThresholdDB, MaxLimThresholdDB)
	st.CeilingDB = core.Clamp(finiteOr(st.CeilingDB, MaxLimCeilingDB), MinLimCeilingDB, MaxLimCeilingDB)
	st.ReleaseMs = core.Clamp(finiteOr(st.ReleaseMs, MinLimReleaseMs), MinLimReleaseMs, MaxLimReleaseMs)

	c.ctl.Limiter = st

	c.pendingLimThreshold.Store(st.ThresholdDB)
	c.pendingLimCeiling.Store(st.CeilingDB)
	c.pendingLimRelease.Store(st.ReleaseMs)
	c.limSoftClip.Store(st.SoftClip)
	c.limBypass.Store(st.Bypass)
}

// SetSaturation updates the saturation stage. Drive and mix clamp to [0, 1].
func (c *Chain) SetSaturation(st SaturationState) {
	st.Drive = core.Clamp(finiteOr(st.Drive, 0), MinSatDrive, MaxSatDrive)
	st.Mix = core.Clamp(finiteOr(st.Mix, 0), MinSatMix, MaxSatMix)

	c.ctl.Saturation = st

	c.sat.pendingDrive.Store(st.Drive)
	c.sat.pendingMix.Store(st.Mix)
	c.sat.bypass.Store(st.Bypass)
}

// SetStereo updates the stereo imaging stage. Width clamps to [0, 2], pan
// to [-1, 1].
func (c *Chain) SetStereo(st StereoState) {
	st.Width = core.Clamp(finiteOr(st.Width, 1), MinStereoWidth, MaxStereoWidth)
	st.Pan = core.Clamp(finiteOr(st.Pan, 0), MinStereoPan, MaxStereoPan)

	c.ctl.Stereo = st

	c.stereo.pendingWidth.Store(st.Width)
	c.stereo.pendingPan.Store(st.Pan)
	c.stereo.mono.Store(st.Mono)
	c.stereo.bypass.Store(st.Bypass)
}

// SetOutput updates the output trim stage. Trim clamps to [-12, 12] dB.
func (c *Chain) SetOutput(st OutputState) {
	st.TrimDB = core.Clamp(finiteOr(st.TrimDB, 0), MinOutputTrimDB, MaxOutputTrimDB)

	c.ctl.Output = st

	c.out.pendingTrim.Store(st.TrimDB)
	c.out.bypass.Store(st.Bypass)
}

// SetVolume sets the host volume, clamped to [0, 1]. The change ramps over
// the output smoothing window.
func (c *Chain) SetVolume(v float64) {
	v = core.Clamp(finiteOr(v, 0), 0, 1)
	c.volume = v
	c.out.pendingVolume.Store(v)
}

// SetMuted mutes or unmutes the output, ramped like a volume change.
func (c *Chain) SetMuted(muted bool) {
	c.muted = muted
	c.out.muted.Store(muted)
}

// SetGainMatchOffset sets the loudness-match output offset in dB, clamped
// to [-12, 12]. Zero disables matching.
func (c *Chain) SetGainMatchOffset(dB float64) {
	dB = core.Clamp(finiteOr(dB, 0), MinGainMatchDB, MaxGainMatchDB)
	c.offset = dB
	c.out.pendingOffset.Store(dB)
}

// Volume returns the control-side volume.
func (c *Chain) Volume() float64 { return c.volume }

// Muted returns the control-side mute flag.
func (c *Chain) Muted() bool { return c.muted }

// GainMatchOffset returns the active loudness-match offset in dB.
func (c *Chain) GainMatchOffset() float64 { return c.offset }

// ApplyState replaces every stage parameter at once, clamping each field.
// Used by preset recall and by the offline renderer.
func (c *Chain) ApplyState(st State) {
	st.Clamp()

	c.SetBandGain(BandSub, st.EQ.Sub)
	c.SetBandGain(BandLow, st.EQ.Low)
	c.SetBandGain(BandMid, st.EQ.Mid)
	c.SetBandGain(BandHigh, st.EQ.High)
	c.SetBandGain(BandAir, st.EQ.Air)
	c.SetCompressor(st.Compressor)
	c.SetLimiter(st.Limiter)
	c.SetSaturation(st.Saturation)
	c.SetStereo(st.Stereo)
	c.SetOutput(st.Output)
}

// applyPending moves published parameters into the live stages. Called once
// per block on the audio side.
func (c *Chain) applyPending() {
	for b := Band(0); b < bandCount; b++ {
		c.bands[b].apply(b, c.sampleRate)
	}

	c.comp.apply(c.sampleRate)
	c.sat.apply()
	c.stereo.apply()
	c.out.apply()

	threshold := c.pendingLimThreshold.Load()
	ceiling := c.pendingLimCeiling.Load()
	release := c.pendingLimRelease.Load()

	if threshold != c.appliedLimThreshold {
		c.lim.SetThreshold(threshold)
		c.appliedLimThreshold = threshold
	}

	if ceiling != c.appliedLimCeiling {
		c.lim.SetCeiling(ceiling)
		c.appliedLimCeiling = ceiling
	}

	if release != c.appliedLimRelease {
		c.lim.SetRelease(release)
		c.appliedLimRelease = release
	}

	c.lim.SetSoftClip(c.limSoftClip.Load())
	c.lim.SetBypass(c.limBypass.Load())
}

// Process runs one block through the full chain in place. Both slices must
// have equal length. Runs on the audio thread; does not allocate.
func (c *Chain) Process(left, right []float64) {
	c.applyPending()

	eqBypassed := c.allBandsFlat()
	if !eqBypassed {
		for b := Band(0); b < bandCount; b++ {
			c.bands[b].left.ProcessBlock(left)
			c.bands[b].right.ProcessBlock(right)
		}
	}

	for i := range left {
		l, r := c.comp.processSample(left[i], right[i])
		l = c.sat.processSample(l)
		r = c.sat.processSample(r)
		l, r = c.stereo.processSample(l, r)
		left[i], right[i] = l, r
	}

	c.limadapt[0], c.limadapt[1] = left, right
	c.lim.Process(c.limadapt[:])

	if c.tap != nil {
		c.tap(left, right)
	}

	for i := range left {
		left[i], right[i] = c.out.processSample(left[i], right[i])
	}
}

// allBandsFlat reports whether every band gain is exactly 0 dB, in which
// case the EQ pass is skipped entirely.
func (c *Chain) allBandsFlat() bool {
	for b := Band(0); b < bandCount; b++ {
		if c.bands[b].appliedGain != 0 {
			return false
		}
	}

	return true
}

// Reset clears all stage state (filter delay lines, envelopes) without
// touching parameters.
func (c *Chain) Reset() {
	for b := Band(0); b < bandCount; b++ {
		c.bands[b].reset()
	}

	c.comp.reset()
	c.lim.Reset()
}

// ResponseCurveDB returns the combined EQ magnitude response in dB at the
// given frequencies, computed from the control-side band gains.
func (c *Chain) ResponseCurveDB(freqs []float64) []float64 {
	gains := [bandCount]float64{c.ctl.EQ.Sub, c.ctl.EQ.Low, c.ctl.EQ.Mid, c.ctl.EQ.High, c.ctl.EQ.Air}

	var coeffs [bandCount]biquad.Coefficients
	for b := Band(0); b < bandCount; b++ {
		coeffs[b] = bandCoefficients(b, gains[b], c.sampleRate)
	}

	out := make([]float64, len(freqs))

	for i, f := range freqs {
		f = core.Clamp(f, 1, c.sampleRate*0.49)

		db := 0.0
		for b := range coeffs {
			db += coeffs[b].MagnitudeDB(f, c.sampleRate)
		}

		out[i] = db
	}

	return out
}

// finiteOr replaces NaN/Inf with a fallback before clamping.
func finiteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}

	return v
}
