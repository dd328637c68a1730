// Package visual implements the frame-budgeted visualizer: analysis taps
// fed by the audio side and a cooperative render loop that degrades its
// drawing work under load and disables itself entirely rather than starve
// the audio callback.
package visual

import (
	"time"
)

// Mode selects the active draw algorithm.
type Mode int

// Available visualizer modes.
const (
	ModeSpectrum Mode = iota
	ModeOscilloscope
	ModeVectorscope
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSpectrum:
		return "spectrum"
	case ModeOscilloscope:
		return "oscilloscope"
	case ModeVectorscope:
		return "vectorscope"
	default:
		return "unknown"
	}
}

// Surface is the drawable handed to the scheduler by the host. The
// scheduler only draws into it and queries its pixel size.
type Surface interface {
	Size() (width, height int)
	Clear()
	FillRect(x, y, w, h int)
	Line(x0, y0, x1, y1 int)
	Point(x, y int)
}

const (
	targetFPS = 60.0

	// fpsSmoothing is the EMA weight kept on the previous estimate.
	fpsSmoothing = 0.9

	// Background-pass divisor thresholds.
	fullRateFPS    = 45.0
	reducedRateFPS = 30.0

	// Auto-disable: sustained time below lowFPSThreshold before the loop
	// shuts itself down.
	lowFPSThreshold = 32.0
	disableAfter    = 4 * time.Second
)

// SchedulerOption mutates scheduler construction.
type SchedulerOption func(*Scheduler)

// WithMode sets the initial draw mode.
func WithMode(m Mode) SchedulerOption {
	return func(s *Scheduler) { s.mode = m }
}

// WithOnDisable sets the callback invoked exactly once when the loop
// auto-disables.
func WithOnDisable(fn func()) SchedulerOption {
	return func(s *Scheduler) { s.onDisable = fn }
}

// Scheduler drives the visualizer from any host tick source: a timer
// goroutine, a vsync callback, or a test loop. It is independent of the
// audio callback and only reads the analysis taps.
//
// Not safe for concurrent use; drive it from one goroutine.
type Scheduler struct {
	surface  Surface
	spectrum *SpectrumTap
	left     *ScopeTap
	right    *ScopeTap

	mode Mode

	lastTick time.Time
	emaFPS   float64
	ticks    int

	lowFPSAccum time.Duration
	disabled    bool
	onDisable   func()

	drawCount int
	scratch   []float64
	scratchR  []float64
}

// NewScheduler creates a scheduler over a surface and the three taps.
func NewScheduler(surface Surface, spectrum *SpectrumTap, left, right *ScopeTap, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		surface:  surface,
		spectrum: spectrum,
		left:     left,
		right:    right,
		emaFPS:   targetFPS,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// SetMode switches the draw algorithm.
func (s *Scheduler) SetMode(m Mode) {
	if m >= ModeSpectrum && m <= ModeVectorscope {
		s.mode = m
	}
}

// Mode returns the active draw mode.
func (s *Scheduler) Mode() Mode { return s.mode }

// FPS returns the exponential moving average of the frame rate.
func (s *Scheduler) FPS() float64 { return s.emaFPS }

// Disabled reports whether the loop auto-disabled.
func (s *Scheduler) Disabled() bool { return s.disabled }

// DrawCount returns the number of background draw passes performed.
func (s *Scheduler) DrawCount() int { return s.drawCount }

// Stop disables the loop without signalling the host.
func (s *Scheduler) Stop() {
	s.disabled = true
}

// Tick runs one scheduled frame. now is the host clock; Tick returns false
// once the loop has stopped and should no longer be scheduled.
//
// Frames arriving faster than the 60 fps ceiling are skipped without
// drawing. Each accepted frame always runs the cheap critical pass (surface
// clear); the expensive background pass runs every Nth frame, where N grows
// as the frame rate degrades. When the rate stays below ~32 fps for ~4 s
// cumulatively, the loop stops and signals the host exactly once.
func (s *Scheduler) Tick(now time.Time) bool {
	if s.disabled {
		return false
	}

	if s.lastTick.IsZero() {
		s.lastTick = now
		return true
	}

	elapsed := now.Sub(s.lastTick)
	if elapsed < time.Second/time.Duration(targetFPS) {
		// Ahead of the frame budget; reschedule without drawing.
		return true
	}

	s.lastTick = now

	instant := float64(time.Second) / float64(elapsed)
	s.emaFPS = s.emaFPS*fpsSmoothing + instant*(1-fpsSmoothing)

	if s.emaFPS < lowFPSThreshold {
		s.lowFPSAccum += elapsed

		if s.lowFPSAccum > disableAfter {
			s.disabled = true

			if s.onDisable != nil {
				s.onDisable()
			}

			return false
		}
	} else {
		s.lowFPSAccum = 0
	}

	s.ticks++

	// Critical pass: always cheap, always done.
	s.surface.Clear()

	if s.ticks%s.backgroundDivisor() == 0 {
		s.draw()
		s.drawCount++
	}

	return true
}

// backgroundDivisor maps the fps estimate to how often the expensive pass
// runs: every frame above 45 fps, every 2nd between 30 and 45, every 3rd
// below 30.
func (s *Scheduler) backgroundDivisor() int {
	switch {
	case s.emaFPS > fullRateFPS:
		return 1
	case s.emaFPS >= reducedRateFPS:
		return 2
	default:
		return 3
	}
}

func (s *Scheduler) draw() {
	switch s.mode {
	case ModeSpectrum:
		s.drawSpectrum()
	case ModeOscilloscope:
		s.drawOscilloscope()
	case ModeVectorscope:
		s.drawVectorscope()
	}
}
