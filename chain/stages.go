package chain

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

// log2Of10Div20 converts dB to the log2 domain: log2(10) / 20.
const log2Of10Div20 = 0.166096404744

// bandStage is one EQ band: a fixed filter shape with a live gain. Both
// channels share coefficients but keep independent delay-line state.
type bandStage struct {
	pendingGain atomicFloat

	appliedGain float64
	left        *biquad.Section
	right       *biquad.Section
}

func newBandStage(b Band, sampleRate float64) *bandStage {
	s := &bandStage{}
	c := bandCoefficients(b, 0, sampleRate)
	s.left = biquad.NewSection(c)
	s.right = biquad.NewSection(c)

	return s
}

func bandCoefficients(b Band, gainDB, sampleRate float64) biquad.Coefficients {
	f := bandFilters[b]

	switch f.kind {
	case bandKindLowShelf:
		return design.LowShelf(f.freq, gainDB, f.q, sampleRate)
	case bandKindHighShelf:
		return design.HighShelf(f.freq, gainDB, f.q, sampleRate)
	default:
		return design.Peak(f.freq, gainDB, f.q, sampleRate)
	}
}

// apply swaps in new coefficients when the gain changed. Delay-line state is
// preserved so gain moves do not click.
func (s *bandStage) apply(b Band, sampleRate float64) {
	gain := s.pendingGain.Load()
	if gain == s.appliedGain {
		return
	}

	c := bandCoefficients(b, gain, sampleRate)
	s.left.Coefficients = c
	s.right.Coefficients = c
	s.appliedGain = gain
}

func (s *bandStage) reset() {
	s.left.Reset()
	s.right.Reset()
}

// compStage is a stereo-linked soft compressor: peak envelope follower and a
// hard-knee log2-domain gain computer.
type compStage struct {
	pendingThreshold atomicFloat
	pendingRatio     atomicFloat
	pendingAttack    atomicFloat
	pendingRelease   atomicFloat
	pendingMakeup    atomicFloat
	bypass           atomic.Bool

	appliedThreshold float64
	appliedRatio     float64
	appliedAttack    float64
	appliedRelease   float64
	appliedMakeup    float64

	attackCoeff   float64
	releaseCoeff  float64
	thresholdLog2 float64
	ratioFactor   float64
	makeupLin     float64

	envelope float64
}

func (s *compStage) apply(sampleRate float64) {
	threshold := s.pendingThreshold.Load()
	ratio := s.pendingRatio.Load()
	attack := s.pendingAttack.Load()
	release := s.pendingRelease.Load()
	makeup := s.pendingMakeup.Load()

	if threshold == s.appliedThreshold && ratio == s.appliedRatio &&
		attack == s.appliedAttack && release == s.appliedRelease &&
		makeup == s.appliedMakeup {
		return
	}

	s.appliedThreshold = threshold
	s.appliedRatio = ratio
	s.appliedAttack = attack
	s.appliedRelease = release
	s.appliedMakeup = makeup

	s.attackCoeff = 1.0 - math.Exp(-math.Ln2/(attack*sampleRate))
	s.releaseCoeff = math.Exp(-math.Ln2 / (release * sampleRate))
	s.thresholdLog2 = threshold * log2Of10Div20
	s.ratioFactor = 1.0 - 1.0/ratio
	s.makeupLin = math.Pow(10, makeup/20)
}

func (s *compStage) processSample(l, r float64) (float64, float64) {
	if s.bypass.Load() {
		return l, r
	}

	level := math.Abs(l)
	if ar := math.Abs(r); ar > level {
		level = ar
	}

	if level > s.envelope {
		s.envelope += (level - s.envelope) * s.attackCoeff
	} else {
		s.envelope = level + (s.envelope-level)*s.releaseCoeff
	}

	gain := s.makeupLin

	if s.envelope > 0 {
		overshoot := math.Log2(s.envelope) - s.thresholdLog2
		if overshoot > 0 {
			gain *= math.Exp2(-overshoot * s.ratioFactor)
		}
	}

	return l * gain, r * gain
}

func (s *compStage) reset() {
	s.envelope = 0
}

// satStage blends a tanh waveshaper with the dry signal.
type satStage struct {
	pendingDrive atomicFloat
	pendingMix   atomicFloat
	bypass       atomic.Bool

	drive float64
	mix   float64
}

func (s *satStage) apply() {
	s.drive = s.pendingDrive.Load()
	s.mix = s.pendingMix.Load()
}

func (s *satStage) processSample(x float64) float64 {
	if s.bypass.Load() {
		return x
	}

	shaped := math.Tanh(x * (1 + 6*s.drive))

	return x + s.mix*(shaped-x)
}

// stereoStage applies the cross-channel width blend, pan, and mono collapse.
// The width matrix is a gain blend, intentionally not a normalized mid/side
// encode/decode.
type stereoStage struct {
	pendingWidth atomicFloat
	pendingPan   atomicFloat
	mono         atomic.Bool
	bypass       atomic.Bool

	same  float64 // own-channel gain: (1+width)/2
	cross float64 // opposite-channel gain: (1-width)/2
	gainL float64
	gainR float64
}

func (s *stereoStage) apply() {
	width := s.pendingWidth.Load()
	pan := s.pendingPan.Load()

	s.same = (1 + width) / 2
	s.cross = (1 - width) / 2

	s.gainL = 1.0
	s.gainR = 1.0

	if pan > 0 {
		s.gainL = 1 - pan
	} else if pan < 0 {
		s.gainR = 1 + pan
	}
}

func (s *stereoStage) processSample(l, r float64) (float64, float64) {
	if s.bypass.Load() {
		return l, r
	}

	if s.mono.Load() {
		m := (l + r) * 0.5
		return m * s.gainL, m * s.gainR
	}

	wl := s.same*l + s.cross*r
	wr := s.same*r + s.cross*l

	return wl * s.gainL, wr * s.gainR
}

// outStage applies the final gain: volume x trim x gain-match offset, with a
// short one-pole ramp so volume, mute, and trim changes do not step audibly.
type outStage struct {
	pendingVolume atomicFloat
	pendingTrim   atomicFloat
	pendingOffset atomicFloat
	muted         atomic.Bool
	bypass        atomic.Bool

	target     float64
	gain       float64
	smoothCoef float64
}

// outputSmoothSeconds is the ramp time constant of the output gain.
const outputSmoothSeconds = 0.015

func (s *outStage) init(sampleRate float64) {
	s.smoothCoef = 1.0 - math.Exp(-1.0/(outputSmoothSeconds*sampleRate))
	s.gain = s.computeTarget()
}

func (s *outStage) computeTarget() float64 {
	if s.muted.Load() {
		return 0
	}

	g := s.pendingVolume.Load()
	if !s.bypass.Load() {
		g *= math.Pow(10, s.pendingTrim.Load()/20)
	}

	return g * math.Pow(10, s.pendingOffset.Load()/20)
}

func (s *outStage) apply() {
	s.target = s.computeTarget()
}

func (s *outStage) processSample(l, r float64) (float64, float64) {
	s.gain += (s.target - s.gain) * s.smoothCoef

	return l * s.gain, r * s.gain
}
