// Package meter implements loudness, peak, and correlation metering for the
// mastering chain.
//
// Loudness uses the simplified mean-square formula
//
//	lufs = -0.691 + 10*log10(meanSquare)
//
// with a -120 floor, applied independently to a 400 ms momentary window, a
// 3000 ms short-term window, and an unbounded integrated mean. There is no
// K-weighting prefilter and no BS.1770 gating: the formula is a deliberate
// approximation and is preserved exactly for behavioral parity with the
// product it meters.
package meter

import (
	"math"
	"sync/atomic"
)

const (
	momentaryDuration = 0.4
	shortTermDuration = 3.0

	// reportDuration is the snapshot cadence, measured in processed audio
	// rather than wall clock.
	reportDuration = 0.05

	// LUFSFloor is reported for silent (zero mean-square) windows.
	LUFSFloor = -120.0
)

// Snapshot is one immutable meter report.
type Snapshot struct {
	Peak           float64 // max |sample| since the previous report, linear
	RMS            float64 // momentary-window RMS, linear
	LufsMomentary  float64
	LufsShort      float64
	LufsIntegrated float64
	Correlation    float64 // [-1, 1]; 0 when either channel is silent
}

// MeterOption mutates a meter configuration.
type MeterOption func(*Meter)

// WithSampleRate sets the metering sample rate.
func WithSampleRate(sampleRate float64) MeterOption {
	return func(m *Meter) {
		if sampleRate > 0 {
			m.sampleRate = sampleRate
		}
	}
}

// Meter maintains incrementally updated rolling mean-square sums over ring
// buffers, so each sample costs one subtract and one add per window.
//
// Process runs on the audio/analysis side; Latest may be called from any
// other goroutine and returns the most recent immutable snapshot.
type Meter struct {
	sampleRate float64

	momWindow   []float64
	shortWindow []float64
	momIdx      int
	shortIdx    int
	momFilled   int
	shortFilled int
	momSum      float64
	shortSum    float64

	integratedSum   float64
	integratedCount int64

	sumLR float64
	sumLL float64
	sumRR float64

	peak float64

	samplesToReport int
	reportInterval  int

	latest atomic.Pointer[Snapshot]
}

// New creates a meter. The default sample rate is 48 kHz.
func New(opts ...MeterOption) *Meter {
	m := &Meter{sampleRate: 48000}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.momWindow = make([]float64, int(math.Round(momentaryDuration*m.sampleRate)))
	m.shortWindow = make([]float64, int(math.Round(shortTermDuration*m.sampleRate)))
	m.reportInterval = max(int(math.Round(reportDuration*m.sampleRate)), 1)
	m.samplesToReport = m.reportInterval
	m.latest.Store(&Snapshot{
		LufsMomentary:  LUFSFloor,
		LufsShort:      LUFSFloor,
		LufsIntegrated: LUFSFloor,
	})

	return m
}

// SampleRate returns the metering sample rate.
func (m *Meter) SampleRate() float64 { return m.sampleRate }

// Process meters one block. Both slices must have equal length; pass the
// same slice twice for mono. Runs on the audio thread; does not allocate
// except for the bounded-rate snapshot publications.
func (m *Meter) Process(left, right []float64) {
	for i := range left {
		l := left[i]
		r := right[i]

		if a := math.Abs(l); a > m.peak {
			m.peak = a
		}

		if a := math.Abs(r); a > m.peak {
			m.peak = a
		}

		// Per-sample mean square, averaged across channels.
		sq := (l*l + r*r) * 0.5

		old := m.momWindow[m.momIdx]
		m.momWindow[m.momIdx] = sq
		m.momSum += sq - old

		if m.momSum < 0 {
			m.momSum = 0
		}

		m.momIdx++
		if m.momIdx >= len(m.momWindow) {
			m.momIdx = 0
		}

		if m.momFilled < len(m.momWindow) {
			m.momFilled++
		}

		old = m.shortWindow[m.shortIdx]
		m.shortWindow[m.shortIdx] = sq
		m.shortSum += sq - old

		if m.shortSum < 0 {
			m.shortSum = 0
		}

		m.shortIdx++
		if m.shortIdx >= len(m.shortWindow) {
			m.shortIdx = 0
		}

		if m.shortFilled < len(m.shortWindow) {
			m.shortFilled++
		}

		m.integratedSum += sq
		m.integratedCount++

		m.sumLR += l * r
		m.sumLL += l * l
		m.sumRR += r * r

		m.samplesToReport--
		if m.samplesToReport <= 0 {
			m.samplesToReport = m.reportInterval
			m.publish()
		}
	}
}

// publish emits one snapshot and resets the correlation accumulators and
// the per-report peak. Window sums divide by the filled sample count, so
// readings are accurate while a window is still filling.
func (m *Meter) publish() {
	momMS := 0.0
	if m.momFilled > 0 {
		momMS = m.momSum / float64(m.momFilled)
	}

	shortMS := 0.0
	if m.shortFilled > 0 {
		shortMS = m.shortSum / float64(m.shortFilled)
	}

	intMS := 0.0
	if m.integratedCount > 0 {
		intMS = m.integratedSum / float64(m.integratedCount)
	}

	corr := 0.0
	if m.sumLL > 0 && m.sumRR > 0 {
		corr = m.sumLR / math.Sqrt(m.sumLL*m.sumRR)
	}

	snap := &Snapshot{
		Peak:           m.peak,
		RMS:            math.Sqrt(momMS),
		LufsMomentary:  LUFS(momMS),
		LufsShort:      LUFS(shortMS),
		LufsIntegrated: LUFS(intMS),
		Correlation:    corr,
	}

	m.latest.Store(snap)

	m.sumLR = 0
	m.sumLL = 0
	m.sumRR = 0
	m.peak = 0
}

// Latest returns the most recent snapshot. The returned value is immutable;
// staleness of up to one report interval is expected.
func (m *Meter) Latest() Snapshot {
	return *m.latest.Load()
}

// Integrated returns the integrated loudness since engine start.
func (m *Meter) Integrated() float64 {
	return m.Latest().LufsIntegrated
}

// Reset clears all windows and accumulators.
func (m *Meter) Reset() {
	for i := range m.momWindow {
		m.momWindow[i] = 0
	}

	for i := range m.shortWindow {
		m.shortWindow[i] = 0
	}

	m.momIdx = 0
	m.shortIdx = 0
	m.momFilled = 0
	m.shortFilled = 0
	m.momSum = 0
	m.shortSum = 0
	m.integratedSum = 0
	m.integratedCount = 0
	m.sumLR = 0
	m.sumLL = 0
	m.sumRR = 0
	m.peak = 0
	m.samplesToReport = m.reportInterval
	m.latest.Store(&Snapshot{
		LufsMomentary:  LUFSFloor,
		LufsShort:      LUFSFloor,
		LufsIntegrated: LUFSFloor,
	})
}

// LUFS converts a mean-square value to simplified loudness units.
func LUFS(meanSquare float64) float64 {
	if meanSquare <= 0 {
		return LUFSFloor
	}

	return -0.691 + 10.0*math.Log10(meanSquare)
}

// MeanSquare returns the channel-averaged mean square of a whole buffer,
// the quantity the offline normalizer feeds into LUFS.
func MeanSquare(channels [][]float64) float64 {
	if len(channels) == 0 || len(channels[0]) == 0 {
		return 0
	}

	sum := 0.0
	n := 0

	for _, ch := range channels {
		for _, s := range ch {
			sum += s * s
		}

		n += len(ch)
	}

	if n == 0 {
		return 0
	}

	return sum / float64(n)
}
