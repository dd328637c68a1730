package engine

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioRuntime drives the system's default output device through
// PortAudio. Streams are stereo float32, callback driven.
type PortAudioRuntime struct {
	stream      *portaudio.Stream
	initialized bool
}

// NewPortAudioRuntime initializes the PortAudio library. Callers must Close
// the runtime to terminate it again.
func NewPortAudioRuntime() (*PortAudioRuntime, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio: %w", ErrInitialization, err)
	}

	return &PortAudioRuntime{initialized: true}, nil
}

// Start opens and starts a stereo output stream on the default device.
func (r *PortAudioRuntime) Start(sampleRate float64, blockSize int, process func(out [][]float32)) error {
	if !r.initialized {
		return fmt.Errorf("%w: portaudio not initialized", ErrInitialization)
	}

	if r.stream != nil {
		return nil
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, sampleRate, blockSize, process)
	if err != nil {
		return fmt.Errorf("%w: open stream: %w", ErrInitialization, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()

		return fmt.Errorf("%w: start stream: %w", ErrInitialization, err)
	}

	r.stream = stream

	return nil
}

// Stop stops and closes the current stream. Safe to call when no stream is
// open.
func (r *PortAudioRuntime) Stop() error {
	if r.stream == nil {
		return nil
	}

	if err := r.stream.Stop(); err != nil {
		return fmt.Errorf("engine: stop stream: %w", err)
	}

	if err := r.stream.Close(); err != nil {
		return fmt.Errorf("engine: close stream: %w", err)
	}

	r.stream = nil

	return nil
}

// Close stops any open stream and terminates PortAudio.
func (r *PortAudioRuntime) Close() error {
	err := r.Stop()

	if r.initialized {
		if termErr := portaudio.Terminate(); termErr != nil && err == nil {
			err = fmt.Errorf("engine: terminate portaudio: %w", termErr)
		}

		r.initialized = false
	}

	return err
}
