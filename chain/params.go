package chain

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
)

// Band identifies one of the five fixed EQ bands.
type Band int

// The five bands, ordered bottom-up.
const (
	BandSub Band = iota
	BandLow
	BandMid
	BandHigh
	BandAir

	bandCount // sentinel
)

var bandNames = [bandCount]string{"sub", "low", "mid", "high", "air"}

// String returns the band name.
func (b Band) String() string {
	if b >= 0 && b < bandCount {
		return bandNames[b]
	}

	return fmt.Sprintf("Band(%d)", int(b))
}

// Valid reports whether b names a real band.
func (b Band) Valid() bool {
	return b >= 0 && b < bandCount
}

// ParseBand resolves a band by name ("sub", "low", "mid", "high", "air").
func ParseBand(name string) (Band, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range bandNames {
		if n == name {
			return Band(i), true
		}
	}

	return 0, false
}

type bandKind int

const (
	bandKindLowShelf bandKind = iota
	bandKindPeak
	bandKindHighShelf
)

// Fixed band filter characteristics. Frequency, type, and Q are constants;
// only the gain is user-facing.
var bandFilters = [bandCount]struct {
	freq float64
	q    float64
	kind bandKind
}{
	BandSub:  {freq: 80, q: shelfQ, kind: bandKindLowShelf},
	BandLow:  {freq: 250, q: 0.9, kind: bandKindPeak},
	BandMid:  {freq: 1000, q: 1.0, kind: bandKindPeak},
	BandHigh: {freq: 4000, q: 1.1, kind: bandKindPeak},
	BandAir:  {freq: 12000, q: shelfQ, kind: bandKindHighShelf},
}

// shelfQ is the fixed Q of the shelving bands (Butterworth characteristic).
const shelfQ = 0.70710678118654752

// atomicFloat is a float64 published between the control side and the audio
// callback without locks. Single writer, single reader.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Store(v float64) {
	f.bits.Store(math.Float64bits(v))
}

func (f *atomicFloat) Load() float64 {
	return math.Float64frombits(f.bits.Load())
}
