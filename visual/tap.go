package visual

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

const (
	defaultFFTSize = 2048
	minSpectrumDB  = -130.0
	spectrumSmooth = 0.7

	// scopeLength is the number of recent samples kept per channel for the
	// oscilloscope and vectorscope.
	scopeLength = 2048
)

// fftPlan is the slice of the FFT backend the tap needs.
type fftPlan interface {
	Forward(dst, src []complex128) error
}

// SpectrumTap captures recent output samples into a ring buffer on the
// audio side and computes windowed FFT frames on demand on the visualizer
// side.
//
// The ring is written without locks: the visualizer reads a possibly torn
// frame, which is acceptable for a display approximation (one tick of
// staleness at worst).
type SpectrumTap struct {
	sampleRate float64
	fftSize    int

	ring  []float64
	write int

	win     []float64
	winGain float64
	plan    fftPlan

	in  []complex128
	out []complex128

	// Scratch for the split-parts magnitude kernel.
	re  []float64
	im  []float64
	mag []float64

	db    []float64
	ready bool
}

// NewSpectrumTap creates a tap with a 2048-point FFT and a 4-term
// Blackman-Harris window.
func NewSpectrumTap(sampleRate float64) (*SpectrumTap, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("visual: spectrum tap sample rate must be > 0: %f", sampleRate)
	}

	win := window.Generate(window.TypeBlackmanHarris4Term, defaultFFTSize, window.WithPeriodic())
	if len(win) != defaultFFTSize {
		return nil, fmt.Errorf("visual: invalid analyzer window size: %d", defaultFFTSize)
	}

	sum := 0.0
	for _, w := range win {
		sum += w
	}

	plan, err := algofft.NewPlan64(defaultFFTSize)
	if err != nil {
		return nil, fmt.Errorf("visual: spectrum tap fft plan: %w", err)
	}

	t := &SpectrumTap{
		sampleRate: sampleRate,
		fftSize:    defaultFFTSize,
		ring:       make([]float64, defaultFFTSize),
		win:        win,
		winGain:    sum / float64(defaultFFTSize),
		plan:       plan,
		in:         make([]complex128, defaultFFTSize),
		out:        make([]complex128, defaultFFTSize),
		re:         make([]float64, defaultFFTSize/2+1),
		im:         make([]float64, defaultFFTSize/2+1),
		mag:        make([]float64, defaultFFTSize/2+1),
		db:         make([]float64, defaultFFTSize/2+1),
	}

	for i := range t.db {
		t.db[i] = minSpectrumDB
	}

	return t, nil
}

// Push appends the mono mix of a processed block. Audio side; no
// allocation.
func (t *SpectrumTap) Push(left, right []float64) {
	for i := range left {
		t.ring[t.write] = (left[i] + right[i]) * 0.5

		t.write++
		if t.write >= t.fftSize {
			t.write = 0
		}
	}
}

// update recomputes the smoothed dB bins from the current ring content.
// Visualizer side.
func (t *SpectrumTap) update() {
	const eps = 1e-12

	read := t.write
	for i := 0; i < t.fftSize; i++ {
		t.in[i] = complex(t.ring[read]*t.win[i], 0)

		read++
		if read >= t.fftSize {
			read = 0
		}
	}

	if err := t.plan.Forward(t.out, t.in); err != nil {
		return
	}

	norm := float64(t.fftSize) * math.Max(t.winGain, eps)

	last := len(t.db) - 1
	for k := 0; k <= last; k++ {
		t.re[k] = real(t.out[k])
		t.im[k] = imag(t.out[k])
	}

	vecmath.Magnitude(t.mag, t.re, t.im)

	for k := 0; k <= last; k++ {
		mag := t.mag[k] / norm

		if k > 0 && k < last {
			mag *= 2
		}

		valDB := 20 * math.Log10(math.Max(eps, mag))
		if valDB < minSpectrumDB {
			valDB = minSpectrumDB
		}

		if !t.ready {
			t.db[k] = valDB
			continue
		}

		t.db[k] = spectrumSmooth*t.db[k] + (1-spectrumSmooth)*valDB
	}

	t.ready = true
}

// BinDB returns the smoothed magnitude in dB at the given frequency,
// linearly interpolated between bins.
func (t *SpectrumTap) BinDB(freq float64) float64 {
	lastBin := len(t.db) - 1
	if !t.ready || lastBin < 1 {
		return minSpectrumDB
	}

	nyquist := t.sampleRate * 0.5
	if freq < 0 {
		freq = 0
	} else if freq > nyquist {
		freq = nyquist
	}

	binHz := t.sampleRate / float64(t.fftSize)

	bin := freq / binHz
	if bin <= 0 {
		return t.db[0]
	}

	if bin >= float64(lastBin) {
		return t.db[lastBin]
	}

	base := int(bin)
	frac := bin - float64(base)

	return t.db[base] + frac*(t.db[base+1]-t.db[base])
}

// ScopeTap keeps the most recent samples of one channel for time-domain
// display. Same single-writer lock-free contract as SpectrumTap.
type ScopeTap struct {
	ring  []float64
	write int
}

// NewScopeTap creates a scope tap.
func NewScopeTap() *ScopeTap {
	return &ScopeTap{ring: make([]float64, scopeLength)}
}

// Push appends a block. Audio side; no allocation.
func (t *ScopeTap) Push(samples []float64) {
	for _, s := range samples {
		t.ring[t.write] = s

		t.write++
		if t.write >= len(t.ring) {
			t.write = 0
		}
	}
}

// Snapshot copies the most recent len(dst) samples, oldest first.
func (t *ScopeTap) Snapshot(dst []float64) {
	n := len(dst)
	if n > len(t.ring) {
		n = len(t.ring)
	}

	read := t.write - n
	if read < 0 {
		read += len(t.ring)
	}

	for i := 0; i < n; i++ {
		dst[i] = t.ring[read]

		read++
		if read >= len(t.ring) {
			read = 0
		}
	}
}
