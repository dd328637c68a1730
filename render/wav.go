package render

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/dither"
	"github.com/cwbudde/algo-master/track"
)

// wavFormatPCM and wavFormatFloat are the fmt-chunk format tags handled by
// the decoder; encoding always writes 16-bit PCM.
const (
	wavFormatPCM   = 1
	wavFormatFloat = 3

	wavBitDepth = 16
)

// EncodeWAV writes buf as a RIFF/WAVE file: a 16-byte PCM fmt chunk and
// interleaved 16-bit signed samples at the buffer's channel count and
// sample rate.
//
// Quantization to 16 bits goes through the dither quantizer in plain
// (undithered) mode, so the encoded bytes are reproducible for identical
// input.
func EncodeWAV(w io.Writer, buf *track.Buffer) error {
	channels := buf.Channels()
	frames := buf.Frames()

	if channels == 0 || buf.SampleRate <= 0 {
		return fmt.Errorf("render: cannot encode empty buffer")
	}

	quant := make([]*dither.Quantizer, channels)

	for i := range quant {
		q, err := dither.NewQuantizer(buf.SampleRate,
			dither.WithBitDepth(wavBitDepth),
			dither.WithDitherType(dither.DitherNone),
		)
		if err != nil {
			return fmt.Errorf("render: encode quantizer: %w", err)
		}

		quant[i] = q
	}

	bw := bufio.NewWriter(w)

	blockAlign := channels * wavBitDepth / 8
	byteRate := int(buf.SampleRate) * blockAlign
	dataLen := frames * blockAlign

	writeHeader(bw, channels, int(buf.SampleRate), byteRate, blockAlign, dataLen)

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := int16(quant[ch].ProcessInteger(buf.Data[ch][i]))
			binary.Write(bw, binary.LittleEndian, v) //nolint:errcheck // flushed below
		}
	}

	return bw.Flush()
}

func writeHeader(w io.Writer, channels, sampleRate, byteRate, blockAlign, dataLen int) {
	w.Write([]byte("RIFF"))                                         //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint32(36+dataLen))        //nolint:errcheck
	w.Write([]byte("WAVE"))                                         //nolint:errcheck
	w.Write([]byte("fmt "))                                         //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint32(16))                //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint16(wavFormatPCM))      //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint16(channels))          //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint32(sampleRate))        //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint32(byteRate))          //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint16(blockAlign))        //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint16(wavBitDepth))       //nolint:errcheck
	w.Write([]byte("data"))                                         //nolint:errcheck
	binary.Write(w, binary.LittleEndian, uint32(dataLen))           //nolint:errcheck
}

// DecodeWAV reads a RIFF/WAVE stream into a track buffer. 16-bit PCM and
// 32-bit IEEE float data are supported; anything else is a DecodeError.
//
// This covers the CLI's decoder-collaborator role; the engine itself never
// parses containers.
func DecodeWAV(r io.Reader) (*track.Buffer, error) {
	br := bufio.NewReader(r)

	var riff [12]byte
	if _, err := io.ReadFull(br, riff[:]); err != nil {
		return nil, fmt.Errorf("%w: short RIFF header: %w", ErrDecode, err)
	}

	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrDecode)
	}

	var (
		format     uint16
		channels   int
		sampleRate int
		bitDepth   int
		haveFmt    bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(br, chunk[:]); err != nil {
			return nil, fmt.Errorf("%w: missing data chunk: %w", ErrDecode, err)
		}

		id := string(chunk[0:4])
		size := int(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(br, body); err != nil {
				return nil, fmt.Errorf("%w: short fmt chunk: %w", ErrDecode, err)
			}

			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too small: %d", ErrDecode, size)
			}

			format = binary.LittleEndian.Uint16(body[0:2])
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitDepth = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("%w: data chunk before fmt", ErrDecode)
			}

			return decodeData(br, size, format, channels, sampleRate, bitDepth)

		default:
			// Skip metadata chunks (LIST, bext, cue, ...). Chunks are
			// word-aligned.
			skip := size + size%2
			if _, err := io.CopyN(io.Discard, br, int64(skip)); err != nil {
				return nil, fmt.Errorf("%w: truncated %q chunk: %w", ErrDecode, id, err)
			}
		}
	}
}

func decodeData(r io.Reader, size int, format uint16, channels, sampleRate, bitDepth int) (*track.Buffer, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid fmt (channels=%d rate=%d)", ErrDecode, channels, sampleRate)
	}

	bytesPer := bitDepth / 8

	switch {
	case format == wavFormatPCM && bitDepth == 16:
	case format == wavFormatFloat && bitDepth == 32:
	default:
		return nil, fmt.Errorf("%w: unsupported format tag %d at %d bits", ErrDecode, format, bitDepth)
	}

	frames := size / (channels * bytesPer)

	buf, err := track.New(float64(sampleRate), channels, frames)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: truncated data chunk: %w", ErrDecode, err)
	}

	const int16Scale = 1.0 / 32768.0

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			off := (i*channels + ch) * bytesPer

			if bitDepth == 16 {
				v := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
				buf.Data[ch][i] = float64(v) * int16Scale
			} else {
				bits := binary.LittleEndian.Uint32(raw[off : off+4])
				buf.Data[ch][i] = float64(math.Float32frombits(bits))
			}
		}
	}

	return buf, nil
}
