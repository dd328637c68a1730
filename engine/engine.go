// Package engine owns the live signal path: it pulls samples from the
// loaded track, runs them through the chain on the backend's audio thread,
// and fans the post-limiter tap out to the meter and the visualizer taps.
//
// Control methods may be called from any goroutine; parameter changes reach
// the audio thread through the chain's lock-free cells and take effect at
// the next block boundary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/cwbudde/algo-master/chain"
	"github.com/cwbudde/algo-master/meter"
	"github.com/cwbudde/algo-master/render"
	"github.com/cwbudde/algo-master/track"
	"github.com/cwbudde/algo-master/visual"
)

// ErrInitialization is returned when the audio backend cannot be brought
// up. The engine stays usable for offline work after this error.
var ErrInitialization = errors.New("engine: audio initialization failed")

const (
	defaultSampleRate = 48000.0
	defaultBlockSize  = 512
)

// playback is the audio thread's view of the loaded track. Swapping in a
// new playback atomically replaces track and position together.
type playback struct {
	buf  *track.Buffer
	pos  int
	loop bool

	done     chan struct{}
	doneOnce sync.Once
}

func (p *playback) finish() {
	p.doneOnce.Do(func() { close(p.done) })
}

// Option configures an Engine.
type Option func(*Engine)

// WithSampleRate overrides the output sample rate.
func WithSampleRate(sampleRate float64) Option {
	return func(e *Engine) {
		if sampleRate > 0 {
			e.sampleRate = sampleRate
		}
	}
}

// WithBlockSize overrides the callback block length in frames.
func WithBlockSize(frames int) Option {
	return func(e *Engine) {
		if frames > 0 {
			e.blockSize = frames
		}
	}
}

// WithLogger attaches a structured logger for lifecycle events.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine is the top-level mastering processor.
type Engine struct {
	sampleRate float64
	blockSize  int
	log        *slog.Logger

	run     Runtime
	ch      *chain.Chain
	met     *meter.Meter
	spec    *visual.SpectrumTap
	scopeL  *visual.ScopeTap
	scopeR  *visual.ScopeTap
	capture atomic.Pointer[chain.Tap]

	cur     atomic.Pointer[playback]
	playing atomic.Bool

	mu      sync.Mutex
	started bool

	scratchL []float64
	scratchR []float64
}

// New builds an engine over the given runtime. A nil runtime yields an
// offline-only engine: rendering and state control work, playback and
// realtime capture do not.
func New(run Runtime, opts ...Option) (*Engine, error) {
	e := &Engine{
		sampleRate: defaultSampleRate,
		blockSize:  defaultBlockSize,
		run:        run,
		log:        slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.ch = chain.New(e.sampleRate)
	e.met = meter.New(meter.WithSampleRate(e.sampleRate))
	e.scopeL = visual.NewScopeTap()
	e.scopeR = visual.NewScopeTap()

	spec, err := visual.NewSpectrumTap(e.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("engine: spectrum tap: %w", err)
	}

	e.spec = spec

	e.scratchL = make([]float64, e.blockSize)
	e.scratchR = make([]float64, e.blockSize)

	e.ch.SetTap(e.tap)

	return e, nil
}

// tap runs on the audio thread after the limiter, before output gain.
func (e *Engine) tap(left, right []float64) {
	e.met.Process(left, right)
	e.spec.Push(left, right)
	e.scopeL.Push(left)
	e.scopeR.Push(right)

	if rec := e.capture.Load(); rec != nil {
		(*rec)(left, right)
	}
}

// Chain exposes the live chain for parameter control.
func (e *Engine) Chain() *chain.Chain { return e.ch }

// Meter exposes the loudness meter for snapshot polling.
func (e *Engine) Meter() *meter.Meter { return e.met }

// Spectrum returns the spectrum analyzer tap.
func (e *Engine) Spectrum() *visual.SpectrumTap { return e.spec }

// Scopes returns the left and right oscilloscope taps.
func (e *Engine) Scopes() (left, right *visual.ScopeTap) { return e.scopeL, e.scopeR }

// SampleRate returns the configured output sample rate.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// Start brings the audio backend up. Idempotent.
func (e *Engine) Start() error {
	if e.run == nil {
		return fmt.Errorf("%w: no audio runtime", ErrInitialization)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return nil
	}

	if err := e.run.Start(e.sampleRate, e.blockSize, e.process); err != nil {
		e.log.Error("audio start failed", "err", err)

		return err
	}

	e.started = true
	e.log.Info("audio started", "sample_rate", e.sampleRate, "block_size", e.blockSize)

	return nil
}

// Suspend tears the stream down while keeping track and position, so a
// later Resume continues where playback left off.
func (e *Engine) Suspend() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}

	e.started = false

	if err := e.run.Stop(); err != nil {
		return err
	}

	e.log.Info("audio suspended")

	return nil
}

// Resume restarts a suspended stream.
func (e *Engine) Resume() error {
	return e.Start()
}

// Close releases the audio backend. The engine cannot be restarted after
// Close.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.started = false

	if e.run == nil {
		return nil
	}

	return e.run.Close()
}

// LoadTrack replaces the current track and rewinds to its start. The swap
// is atomic with respect to the audio thread.
func (e *Engine) LoadTrack(buf *track.Buffer, loop bool) {
	pb := &playback{buf: buf, loop: loop, done: make(chan struct{})}

	if old := e.cur.Swap(pb); old != nil {
		old.finish()
	}
}

// SetPlaying starts or pauses track playback. Pausing keeps the position.
func (e *Engine) SetPlaying(playing bool) {
	e.playing.Store(playing)
}

// Playing reports whether the track is advancing.
func (e *Engine) Playing() bool { return e.playing.Load() }

// process is the audio callback. It must not allocate or block.
func (e *Engine) process(out [][]float32) {
	if len(out) < 2 || len(out[0]) == 0 {
		return
	}

	n := len(out[0])
	if n > len(e.scratchL) {
		// Backend delivered a larger block than configured. Grow once.
		e.scratchL = make([]float64, n)
		e.scratchR = make([]float64, n)
	}

	left := e.scratchL[:n]
	right := e.scratchR[:n]

	e.fill(left, right)
	e.ch.Process(left, right)

	for i := 0; i < n; i++ {
		out[0][i] = float32(left[i])
		out[1][i] = float32(right[i])
	}
}

// fill pulls the next block of track samples, zero-padding past the end.
func (e *Engine) fill(left, right []float64) {
	pb := e.cur.Load()

	if pb == nil || pb.buf == nil || !e.playing.Load() {
		for i := range left {
			left[i] = 0
			right[i] = 0
		}

		return
	}

	srcL, srcR := pb.buf.StereoView()
	frames := len(srcL)

	for i := range left {
		if pb.pos >= frames {
			if pb.loop && frames > 0 {
				pb.pos = 0
			} else {
				left[i] = 0
				right[i] = 0
				pb.finish()
				e.playing.Store(false)

				continue
			}
		}

		left[i] = srcL[pb.pos]
		right[i] = srcR[pb.pos]
		pb.pos++
	}
}

// State, Apply, IntegratedLUFS, and SetGainMatchOffset form the preset
// console surface.

func (e *Engine) State() chain.State { return e.ch.State() }

func (e *Engine) Apply(st chain.State) { e.ch.ApplyState(st) }

func (e *Engine) IntegratedLUFS() float64 { return e.met.Integrated() }

func (e *Engine) SetGainMatchOffset(dB float64) { e.ch.SetGainMatchOffset(dB) }

// Play replays src through the live graph in real time, feeding the tap
// callback with the post-limiter signal. It blocks until the track ends or
// the context is cancelled. This is the capture fallback's transport.
func (e *Engine) Play(ctx context.Context, src *track.Buffer, tap chain.Tap) error {
	e.mu.Lock()
	started := e.started
	e.mu.Unlock()

	if !started {
		return fmt.Errorf("%w: audio not started", render.ErrCaptureUnavailable)
	}

	e.capture.Store(&tap)
	defer e.capture.Store(nil)

	pb := &playback{buf: src, done: make(chan struct{})}

	prev := e.cur.Swap(pb)
	wasPlaying := e.playing.Swap(true)

	defer func() {
		e.playing.Store(wasPlaying)
		e.cur.Store(prev)
		pb.finish()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-pb.done:
		return nil
	}
}

// ExportWAV renders src with the current chain state and writes it as a
// 16-bit WAV. The deterministic offline path is tried first; if it fails,
// a realtime capture pass through the live graph is attempted before the
// error is surfaced.
func (e *Engine) ExportWAV(ctx context.Context, w io.Writer, src *track.Buffer, opts render.Options) error {
	buf, err := render.Render(ctx, src, e.ch.State(), opts)
	if err != nil {
		e.log.Warn("deterministic render failed, trying realtime capture", "err", err)

		buf, err = render.Capture(ctx, e, src, opts)
		if err != nil {
			return fmt.Errorf("engine: export: %w", err)
		}
	}

	return render.EncodeWAV(w, buf)
}
