// Package limiter implements the peak limiter applied at the end of the
// mastering chain: instant-attack gain reduction with an exponential release
// envelope, a hard output ceiling, and an optional tanh soft clip.
//
// The same unit runs in the live graph and in the offline renderer, so for
// identical input and parameters the output is identical.
package limiter

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
)

// Parameter ranges. Setters clamp silently instead of rejecting.
const (
	MinThresholdDB = -12.0
	MaxThresholdDB = 0.0
	MinCeilingDB   = -6.0
	MaxCeilingDB   = 0.0
	MinReleaseMs   = 10.0
	MaxReleaseMs   = 1000.0

	defaultThresholdDB = -3.0
	defaultCeilingDB   = -0.3
	defaultReleaseMs   = 250.0
)

// Option configures a Limiter at construction.
type Option func(*Limiter)

// WithThreshold sets the limiting threshold in dB.
func WithThreshold(dB float64) Option {
	return func(l *Limiter) { l.SetThreshold(dB) }
}

// WithCeiling sets the output ceiling in dB.
func WithCeiling(dB float64) Option {
	return func(l *Limiter) { l.SetCeiling(dB) }
}

// WithRelease sets the release time in milliseconds.
func WithRelease(ms float64) Option {
	return func(l *Limiter) { l.SetRelease(ms) }
}

// WithSoftClip enables the tanh soft clip stage.
func WithSoftClip(enabled bool) Option {
	return func(l *Limiter) { l.SetSoftClip(enabled) }
}

// Limiter is a per-block stereo (or N-channel) peak limiter.
//
// All parameters are settable at block granularity; the envelope carries
// across blocks so a parameter move causes at most one block of transition.
// Not thread-safe; the owner serializes parameter writes against Process.
type Limiter struct {
	sampleRate float64

	thresholdLin float64
	ceilingLin   float64
	releaseCoeff float64
	softClip     bool
	bypass       bool

	env float64
}

// New creates a limiter for the given sample rate. A non-positive sample
// rate falls back to 48 kHz.
func New(sampleRate float64, opts ...Option) *Limiter {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		sampleRate = 48000
	}

	l := &Limiter{sampleRate: sampleRate, env: 1}
	l.SetThreshold(defaultThresholdDB)
	l.SetCeiling(defaultCeilingDB)
	l.SetRelease(defaultReleaseMs)

	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}

	return l
}

// SetThreshold sets the limiting threshold in dB, clamped to [-12, 0].
func (l *Limiter) SetThreshold(dB float64) {
	dB = sanitize(dB, defaultThresholdDB)
	l.thresholdLin = core.DBToLinear(core.Clamp(dB, MinThresholdDB, MaxThresholdDB))
}

// SetCeiling sets the hard output ceiling in dB, clamped to [-6, 0].
func (l *Limiter) SetCeiling(dB float64) {
	dB = sanitize(dB, defaultCeilingDB)
	l.ceilingLin = core.DBToLinear(core.Clamp(dB, MinCeilingDB, MaxCeilingDB))
}

// SetRelease sets the release time in milliseconds, clamped to [10, 1000].
func (l *Limiter) SetRelease(ms float64) {
	ms = sanitize(ms, defaultReleaseMs)
	sec := core.Clamp(ms, MinReleaseMs, MaxReleaseMs) * 0.001
	l.releaseCoeff = math.Exp(-1.0 / (l.sampleRate * sec))
}

// SetSoftClip enables or disables the tanh soft clip stage.
func (l *Limiter) SetSoftClip(enabled bool) {
	l.softClip = enabled
}

// SetBypass makes the limiter a pass-through.
func (l *Limiter) SetBypass(bypass bool) {
	l.bypass = bypass
}

// Ceiling returns the ceiling as a linear gain.
func (l *Limiter) Ceiling() float64 { return l.ceilingLin }

// Process limits a block of channel slices in place. All channels must have
// equal length; the gain envelope is linked across channels.
func (l *Limiter) Process(channels [][]float64) {
	if len(channels) == 0 {
		return
	}

	if l.bypass {
		l.env = 1
		return
	}

	frames := len(channels[0])

	for i := 0; i < frames; i++ {
		peak := 0.0

		for _, ch := range channels {
			s := sanitizeSample(ch[i])
			ch[i] = s

			if a := math.Abs(s); a > peak {
				peak = a
			}
		}

		target := 1.0
		if peak > l.thresholdLin {
			target = l.thresholdLin / peak
		}

		if target < l.env {
			// Instant attack.
			l.env = target
		} else {
			l.env = target + (l.env-target)*l.releaseCoeff
		}

		for _, ch := range channels {
			s := ch[i] * l.env

			if s > l.ceilingLin {
				s = l.ceilingLin
			} else if s < -l.ceilingLin {
				s = -l.ceilingLin
			}

			if l.softClip {
				s = math.Tanh(s/l.ceilingLin) * l.ceilingLin
			}

			ch[i] = s
		}
	}
}

// Reset clears the gain envelope.
func (l *Limiter) Reset() {
	l.env = 1
}

// sanitize replaces a non-finite parameter with its default.
func sanitize(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// sanitizeSample clamps non-finite input samples before processing.
func sanitizeSample(s float64) float64 {
	if math.IsNaN(s) {
		return 0
	}

	if math.IsInf(s, 1) {
		return 1
	}

	if math.IsInf(s, -1) {
		return -1
	}

	return s
}
