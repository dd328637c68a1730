// Package track defines the decoded-audio buffer shared between the live
// engine, the offline renderer, and the CLI. Decoding itself is a
// collaborator concern; this package only carries its output.
package track

import "fmt"

// Buffer holds decoded PCM audio as one sample slice per channel.
// Samples are float64 in [-1, 1] at the buffer's native sample rate.
type Buffer struct {
	SampleRate float64
	Data       [][]float64
}

// New allocates a buffer with the given channel count and length.
func New(sampleRate float64, channels, frames int) (*Buffer, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("track: sample rate must be > 0: %f", sampleRate)
	}

	if channels <= 0 {
		return nil, fmt.Errorf("track: channel count must be > 0: %d", channels)
	}

	if frames < 0 {
		return nil, fmt.Errorf("track: frame count must be >= 0: %d", frames)
	}

	data := make([][]float64, channels)
	for i := range data {
		data[i] = make([]float64, frames)
	}

	return &Buffer{SampleRate: sampleRate, Data: data}, nil
}

// Channels returns the channel count.
func (b *Buffer) Channels() int {
	return len(b.Data)
}

// Frames returns the per-channel sample count.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}

	return len(b.Data[0])
}

// Duration returns the buffer duration in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}

	return float64(b.Frames()) / b.SampleRate
}

// Clone returns a deep copy. Rendering operates on clones so the source
// buffer is never mutated.
func (b *Buffer) Clone() *Buffer {
	out := &Buffer{
		SampleRate: b.SampleRate,
		Data:       make([][]float64, len(b.Data)),
	}

	for i, ch := range b.Data {
		out.Data[i] = make([]float64, len(ch))
		copy(out.Data[i], ch)
	}

	return out
}

// StereoView returns left and right channel slices. Mono buffers return the
// single channel twice, so stereo processors can run unchanged.
func (b *Buffer) StereoView() (left, right []float64) {
	switch len(b.Data) {
	case 0:
		return nil, nil
	case 1:
		return b.Data[0], b.Data[0]
	default:
		return b.Data[0], b.Data[1]
	}
}
