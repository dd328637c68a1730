package chain

import "github.com/cwbudde/algo-dsp/dsp/core"

// Parameter ranges. Every mutation clamps to these; out-of-range values are
// never rejected.
const (
	MinBandGainDB = -24.0
	MaxBandGainDB = 24.0

	MinCompThresholdDB = -40.0
	MaxCompThresholdDB = 0.0
	MinCompRatio       = 1.0
	MaxCompRatio       = 8.0
	MinCompAttackSec   = 0.001
	MaxCompAttackSec   = 0.2
	MinCompReleaseSec  = 0.05
	MaxCompReleaseSec  = 1.0
	MinCompMakeupDB    = -6.0
	MaxCompMakeupDB    = 12.0

	MinLimThresholdDB = -12.0
	MaxLimThresholdDB = 0.0
	MinLimCeilingDB   = -6.0
	MaxLimCeilingDB   = 0.0
	MinLimReleaseMs   = 10.0
	MaxLimReleaseMs   = 1000.0

	MinSatDrive = 0.0
	MaxSatDrive = 1.0
	MinSatMix   = 0.0
	MaxSatMix   = 1.0

	MinStereoWidth = 0.0
	MaxStereoWidth = 2.0
	MinStereoPan   = -1.0
	MaxStereoPan   = 1.0

	MinOutputTrimDB = -12.0
	MaxOutputTrimDB = 12.0

	MinGainMatchDB = -12.0
	MaxGainMatchDB = 12.0
)

// EQState holds the gains of the five fixed bands in dB.
type EQState struct {
	Sub  float64 `json:"sub"`
	Low  float64 `json:"low"`
	Mid  float64 `json:"mid"`
	High float64 `json:"high"`
	Air  float64 `json:"air"`
}

// CompressorState holds the dynamics stage parameters.
type CompressorState struct {
	ThresholdDB float64 `json:"threshold"`
	Ratio       float64 `json:"ratio"`
	AttackSec   float64 `json:"attack"`
	ReleaseSec  float64 `json:"release"`
	MakeupDB    float64 `json:"makeup"`
	Bypass      bool    `json:"bypass"`
}

// LimiterState holds the limiter stage parameters.
type LimiterState struct {
	ThresholdDB float64 `json:"threshold"`
	CeilingDB   float64 `json:"ceiling"`
	ReleaseMs   float64 `json:"release"`
	SoftClip    bool    `json:"softClip"`
	Bypass      bool    `json:"bypass"`
}

// SaturationState holds the saturation stage parameters.
type SaturationState struct {
	Drive  float64 `json:"drive"`
	Mix    float64 `json:"mix"`
	Bypass bool    `json:"bypass"`
}

// StereoState holds the stereo imaging stage parameters.
type StereoState struct {
	Width  float64 `json:"width"`
	Pan    float64 `json:"pan"`
	Mono   bool    `json:"mono"`
	Bypass bool    `json:"bypass"`
}

// OutputState holds the output trim stage parameters.
type OutputState struct {
	TrimDB float64 `json:"trim"`
	Bypass bool    `json:"bypass"`
}

// State is the full parameter snapshot of the signal chain. The zero value
// is not meaningful; use DefaultState.
type State struct {
	EQ         EQState         `json:"eq"`
	Compressor CompressorState `json:"compressor"`
	Limiter    LimiterState    `json:"limiter"`
	Saturation SaturationState `json:"saturation"`
	Stereo     StereoState     `json:"stereo"`
	Output     OutputState     `json:"output"`
}

// DefaultState returns the chain state used at engine initialization:
// flat EQ, gentle 2:1 compression, a -0.3 dB safety limiter, neutral
// saturation and imaging, unity output trim.
func DefaultState() State {
	return State{
		Compressor: CompressorState{
			ThresholdDB: -18,
			Ratio:       2,
			AttackSec:   0.01,
			ReleaseSec:  0.25,
		},
		Limiter: LimiterState{
			ThresholdDB: -3,
			CeilingDB:   -0.3,
			ReleaseMs:   250,
		},
		Saturation: SaturationState{Mix: 1},
		Stereo:     StereoState{Width: 1},
	}
}

// Clamp forces every field into its documented range in place.
func (s *State) Clamp() {
	s.EQ.Sub = core.Clamp(s.EQ.Sub, MinBandGainDB, MaxBandGainDB)
	s.EQ.Low = core.Clamp(s.EQ.Low, MinBandGainDB, MaxBandGainDB)
	s.EQ.Mid = core.Clamp(s.EQ.Mid, MinBandGainDB, MaxBandGainDB)
	s.EQ.High = core.Clamp(s.EQ.High, MinBandGainDB, MaxBandGainDB)
	s.EQ.Air = core.Clamp(s.EQ.Air, MinBandGainDB, MaxBandGainDB)

	s.Compressor.ThresholdDB = core.Clamp(s.Compressor.ThresholdDB, MinCompThresholdDB, MaxCompThresholdDB)
	s.Compressor.Ratio = core.Clamp(s.Compressor.Ratio, MinCompRatio, MaxCompRatio)
	s.Compressor.AttackSec = core.Clamp(s.Compressor.AttackSec, MinCompAttackSec, MaxCompAttackSec)
	s.Compressor.ReleaseSec = core.Clamp(s.Compressor.ReleaseSec, MinCompReleaseSec, MaxCompReleaseSec)
	s.Compressor.MakeupDB = core.Clamp(s.Compressor.MakeupDB, MinCompMakeupDB, MaxCompMakeupDB)

	s.Limiter.ThresholdDB = core.Clamp(s.Limiter.ThresholdDB, MinLimThresholdDB, MaxLimThresholdDB)
	s.Limiter.CeilingDB = core.Clamp(s.Limiter.CeilingDB, MinLimCeilingDB, MaxLimCeilingDB)
	s.Limiter.ReleaseMs = core.Clamp(s.Limiter.ReleaseMs, MinLimReleaseMs, MaxLimReleaseMs)

	s.Saturation.Drive = core.Clamp(s.Saturation.Drive, MinSatDrive, MaxSatDrive)
	s.Saturation.Mix = core.Clamp(s.Saturation.Mix, MinSatMix, MaxSatMix)

	s.Stereo.Width = core.Clamp(s.Stereo.Width, MinStereoWidth, MaxStereoWidth)
	s.Stereo.Pan = core.Clamp(s.Stereo.Pan, MinStereoPan, MaxStereoPan)

	s.Output.TrimDB = core.Clamp(s.Output.TrimDB, MinOutputTrimDB, MaxOutputTrimDB)
}
