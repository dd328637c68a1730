// Package render implements the offline export pipeline: it rebuilds the
// live chain topology over a decoded buffer, runs the identical limiter, and
// optionally normalizes the result to a target loudness before encoding.
//
// The deterministic path is bit-reproducible for identical (buffer, state)
// inputs. When it is unavailable or fails, a realtime capture fallback plays
// the track through the live graph while recording its output tap; that path
// is bounded by wall-clock track duration and is not reproducible.
package render

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-master/chain"
	"github.com/cwbudde/algo-master/meter"
	"github.com/cwbudde/algo-master/track"
)

// Error taxonomy for export operations. Render faults trigger the capture
// fallback before they are surfaced; decode faults are scoped to a single
// track.
var (
	ErrRender             = errors.New("render: deterministic render failed")
	ErrDecode             = errors.New("render: cannot decode source")
	ErrCaptureUnavailable = errors.New("render: no realtime capture path available")
)

// renderBlockSize is the offline processing block length in frames.
const renderBlockSize = 4096

// Options controls the post-render normalization pass.
type Options struct {
	Normalize  bool
	TargetLUFS float64
}

// Render processes src through a freshly built chain configured with st and
// returns the rendered copy. The source buffer is never mutated.
//
// The context is checked between blocks; cancellation abandons the render.
func Render(ctx context.Context, src *track.Buffer, st chain.State, opts Options) (*track.Buffer, error) {
	if src == nil || src.Channels() == 0 || src.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty source buffer", ErrRender)
	}

	if src.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid sample rate %f", ErrRender, src.SampleRate)
	}

	out := src.Clone()

	left := out.Data[0]

	var right []float64
	if out.Channels() > 1 {
		right = out.Data[1]
	} else {
		// Mono runs through the stereo graph as a duplicated channel.
		right = make([]float64, len(left))
		copy(right, left)
	}

	c := chain.New(src.SampleRate)
	c.ApplyState(st)

	frames := len(left)
	for off := 0; off < frames; off += renderBlockSize {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRender, err)
		}

		end := off + renderBlockSize
		if end > frames {
			end = frames
		}

		c.Process(left[off:end], right[off:end])
	}

	if out.Channels() == 1 {
		// Collapse the duplicated pair back to one channel.
		for i := range left {
			left[i] = (left[i] + right[i]) * 0.5
		}
	}

	if opts.Normalize {
		Normalize(out, opts.TargetLUFS)
	}

	return out, nil
}

// Normalize scales buf so its whole-buffer mean-square loudness hits
// targetLUFS, then hard-clamps every sample to [-1, 1] so the gain can
// never introduce clipping.
func Normalize(buf *track.Buffer, targetLUFS float64) {
	measured := meter.LUFS(meter.MeanSquare(buf.Data))
	if measured <= meter.LUFSFloor {
		// Silence stays silence.
		return
	}

	delta := targetLUFS - measured
	gain := math.Pow(10, delta/20)

	for _, ch := range buf.Data {
		for i, s := range ch {
			s *= gain

			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}

			ch[i] = s
		}
	}
}
