// Package testutil provides deterministic signal generators and tolerance
// assertions shared by the engine's tests.
package testutil

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-master/track"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate

	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}

	return out
}

// StereoSine generates a sine wave duplicated onto two channels.
func StereoSine(freqHz, sampleRate, amplitude float64, length int) (left, right []float64) {
	left = Sine(freqHz, sampleRate, amplitude, length)
	right = make([]float64, length)
	copy(right, left)

	return left, right
}

// SineTrack builds a stereo track buffer carrying a sine wave, for render
// and playback tests.
func SineTrack(t *testing.T, freqHz, sampleRate, amplitude float64, length int) *track.Buffer {
	t.Helper()

	buf, err := track.New(sampleRate, 2, length)
	if err != nil {
		t.Fatalf("track.New: %v", err)
	}

	step := 2 * math.Pi * freqHz / sampleRate
	for i := 0; i < length; i++ {
		s := amplitude * math.Sin(step*float64(i))
		buf.Data[0][i] = s
		buf.Data[1][i] = s
	}

	return buf
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}

	return out
}

// RequireNear fails t if got and want differ by more than eps.
func RequireNear(t *testing.T, got, want, eps float64) {
	t.Helper()

	if math.Abs(got-want) > eps {
		t.Fatalf("got %v, want %v (diff %v > eps %v)", got, want, math.Abs(got-want), eps)
	}
}

// RequireFinite fails t if any element is NaN or Inf.
func RequireFinite(t *testing.T, data []float64) {
	t.Helper()

	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("index %d: non-finite value %v", i, v)
		}
	}
}

// MaxAbs returns the largest absolute value in data.
func MaxAbs(data []float64) float64 {
	peak := 0.0

	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}

	return peak
}
