package visual

import "math"

const (
	// Spectrum display range.
	spectrumMinFreq = 20.0
	spectrumMaxFreq = 20000.0
	spectrumBars    = 64

	// Bar heights map [spectrumFloorDB, 0] dB onto [0, 1].
	spectrumFloorDB = -90.0
)

// drawSpectrum renders log-spaced frequency bars, bar height proportional
// to the smoothed band magnitude.
func (s *Scheduler) drawSpectrum() {
	if s.spectrum == nil {
		return
	}

	s.spectrum.update()

	w, h := s.surface.Size()
	if w <= 0 || h <= 0 {
		return
	}

	barW := w / spectrumBars
	if barW < 1 {
		barW = 1
	}

	logMin := math.Log10(spectrumMinFreq)
	logMax := math.Log10(spectrumMaxFreq)

	for i := 0; i < spectrumBars; i++ {
		frac := (float64(i) + 0.5) / spectrumBars
		freq := math.Pow(10, logMin+frac*(logMax-logMin))

		db := s.spectrum.BinDB(freq)

		norm := (db - spectrumFloorDB) / -spectrumFloorDB
		if norm < 0 {
			norm = 0
		} else if norm > 1 {
			norm = 1
		}

		barH := int(norm * float64(h))
		if barH <= 0 {
			continue
		}

		s.surface.FillRect(i*barW, h-barH, barW, barH)
	}
}

// drawOscilloscope renders the left-channel waveform, one sample per x
// pixel slice.
func (s *Scheduler) drawOscilloscope() {
	if s.left == nil {
		return
	}

	w, h := s.surface.Size()
	if w <= 1 || h <= 0 {
		return
	}

	if cap(s.scratch) < w {
		s.scratch = make([]float64, w)
	}

	buf := s.scratch[:w]
	s.left.Snapshot(buf)

	prevY := sampleToY(buf[0], h)

	for x := 1; x < w; x++ {
		y := sampleToY(buf[x], h)
		s.surface.Line(x-1, prevY, x, y)
		prevY = y
	}
}

// drawVectorscope renders a Lissajous plot of left (x) against right (y).
func (s *Scheduler) drawVectorscope() {
	if s.left == nil || s.right == nil {
		return
	}

	w, h := s.surface.Size()
	if w <= 0 || h <= 0 {
		return
	}

	n := scopeLength
	if cap(s.scratch) < n {
		s.scratch = make([]float64, n)
	}

	if cap(s.scratchR) < n {
		s.scratchR = make([]float64, n)
	}

	l := s.scratch[:n]
	r := s.scratchR[:n]
	s.left.Snapshot(l)
	s.right.Snapshot(r)

	for i := 0; i < n; i++ {
		x := int((clampUnit(l[i]) + 1) / 2 * float64(w-1))
		y := int((1 - clampUnit(r[i])) / 2 * float64(h-1))
		s.surface.Point(x, y)
	}
}

func sampleToY(s float64, h int) int {
	return int((1 - clampUnit(s)) / 2 * float64(h-1))
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}

	if v > 1 {
		return 1
	}

	return v
}
