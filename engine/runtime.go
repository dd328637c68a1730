package engine

// Runtime abstracts the audio backend. Start opens an output stream and
// begins invoking process from the backend's audio thread with one
// non-interleaved float32 slice per channel; Stop tears the stream down
// (a later Start reopens it); Close releases the backend entirely.
//
// Tests substitute a stub runtime that drives process synchronously.
type Runtime interface {
	Start(sampleRate float64, blockSize int, process func(out [][]float32)) error
	Stop() error
	Close() error
}
