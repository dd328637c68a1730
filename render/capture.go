package render

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-master/chain"
	"github.com/cwbudde/algo-master/track"
)

// Player replays a source buffer through a live signal chain and reports the
// post-chain (pre-output-gain) audio via the tap callback. It is the fallback
// exporter for sessions whose chain state cannot be reproduced offline.
type Player interface {
	Play(ctx context.Context, src *track.Buffer, tap chain.Tap) error
}

// Capture records the tap output of a real-time playback pass into a new
// buffer. Unlike Render it reflects whatever the live chain actually did,
// including any control changes made while playing.
//
// A cancelled context discards the partial recording and returns the context
// error. A nil player returns ErrCaptureUnavailable.
func Capture(ctx context.Context, player Player, src *track.Buffer, opts Options) (*track.Buffer, error) {
	if player == nil {
		return nil, ErrCaptureUnavailable
	}

	if src == nil || src.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty source", ErrRender)
	}

	out, err := track.New(src.SampleRate, 2, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRender, err)
	}

	err = player.Play(ctx, src, func(left, right []float64) {
		out.Data[0] = append(out.Data[0], left...)
		out.Data[1] = append(out.Data[1], right...)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: playback capture: %w", ErrRender, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.Normalize {
		Normalize(out, opts.TargetLUFS)
	}

	return out, nil
}
