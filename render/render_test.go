package render

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-master/chain"
	"github.com/cwbudde/algo-master/internal/testutil"
	"github.com/cwbudde/algo-master/meter"
	"github.com/cwbudde/algo-master/track"
)

func TestRenderIsDeterministic(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.5, 48000)

	st := chain.DefaultState()
	st.EQ.Mid = 3
	st.Saturation.Drive = 0.4

	a, err := Render(context.Background(), src, st, Options{})
	if err != nil {
		t.Fatalf("first render: %v", err)
	}

	b, err := Render(context.Background(), src, st, Options{})
	if err != nil {
		t.Fatalf("second render: %v", err)
	}

	for ch := range a.Data {
		for i := range a.Data[ch] {
			if a.Data[ch][i] != b.Data[ch][i] {
				t.Fatalf("renders diverge at ch %d sample %d", ch, i)
			}
		}
	}
}

func TestRenderDoesNotMutateSource(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.5, 4800)
	want := src.Clone()

	if _, err := Render(context.Background(), src, chain.DefaultState(), Options{}); err != nil {
		t.Fatalf("render: %v", err)
	}

	for ch := range src.Data {
		for i := range src.Data[ch] {
			if src.Data[ch][i] != want.Data[ch][i] {
				t.Fatalf("source mutated at ch %d sample %d", ch, i)
			}
		}
	}
}

func TestRenderMonoSource(t *testing.T) {
	buf, err := track.New(48000, 1, 4800)
	if err != nil {
		t.Fatalf("track.New: %v", err)
	}

	copy(buf.Data[0], testutil.Sine(440, 48000, 0.5, 4800))

	out, err := Render(context.Background(), buf, chain.DefaultState(), Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	if out.Channels() != 1 {
		t.Fatalf("channels = %d, want 1", out.Channels())
	}

	testutil.RequireFinite(t, out.Data[0])
}

func TestRenderEmptySource(t *testing.T) {
	if _, err := Render(context.Background(), nil, chain.DefaultState(), Options{}); !errors.Is(err, ErrRender) {
		t.Fatalf("err = %v, want ErrRender", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := testutil.SineTrack(t, 440, 48000, 0.5, 48000)

	if _, err := Render(ctx, src, chain.DefaultState(), Options{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestNormalizeHitsTarget(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.05, 48000)

	out, err := Render(context.Background(), src, chain.DefaultState(), Options{
		Normalize:  true,
		TargetLUFS: -14,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	got := meter.LUFS(meter.MeanSquare(out.Data))
	testutil.RequireNear(t, got, -14, 0.3)
}

func TestNormalizeNeverClipsAboveFullScale(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.9, 48000)

	out, err := Render(context.Background(), src, chain.DefaultState(), Options{
		Normalize:  true,
		TargetLUFS: 0,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for ch := range out.Data {
		for i, s := range out.Data[ch] {
			if math.Abs(s) > 1 {
				t.Fatalf("sample ch %d idx %d = %v exceeds full scale", ch, i, s)
			}
		}
	}
}

func TestNormalizeSilenceStaysSilent(t *testing.T) {
	buf, err := track.New(48000, 2, 4800)
	if err != nil {
		t.Fatalf("track.New: %v", err)
	}

	Normalize(buf, -14)

	for ch := range buf.Data {
		for i, s := range buf.Data[ch] {
			if s != 0 {
				t.Fatalf("silence gained at ch %d idx %d: %v", ch, i, s)
			}
		}
	}
}

func TestWAVRoundTrip(t *testing.T) {
	src := testutil.SineTrack(t, 997, 44100, 0.5, 4410)

	var out bytes.Buffer
	if err := EncodeWAV(&out, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := DecodeWAV(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.SampleRate != 44100 || got.Channels() != 2 || got.Frames() != 4410 {
		t.Fatalf("decoded shape: %v Hz, %d ch, %d frames", got.SampleRate, got.Channels(), got.Frames())
	}

	// 16-bit quantization with noise shaping stays within a handful of LSB.
	for i := range src.Data[0] {
		if diff := math.Abs(got.Data[0][i] - src.Data[0][i]); diff > 16.0/32768 {
			t.Fatalf("sample %d differs by %v after 16-bit round trip", i, diff)
		}
	}
}

func TestWAVHeaderLayout(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.1, 100)

	var out bytes.Buffer
	if err := EncodeWAV(&out, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	raw := out.Bytes()

	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q %q", raw[0:4], raw[8:12])
	}

	if string(raw[12:16]) != "fmt " || string(raw[36:40]) != "data" {
		t.Fatalf("bad chunk layout: %q %q", raw[12:16], raw[36:40])
	}

	wantLen := 44 + 100*2*2
	if len(raw) != wantLen {
		t.Fatalf("file length = %d, want %d", len(raw), wantLen)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.5, 4800)

	var a, b bytes.Buffer

	if err := EncodeWAV(&a, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if err := EncodeWAV(&b, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatal("two encodes of the same buffer differ")
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV(bytes.NewReader([]byte("not a wav file at all"))); !errors.Is(err, ErrDecode) {
		t.Fatalf("err = %v, want ErrDecode", err)
	}

	if _, err := DecodeWAV(bytes.NewReader(nil)); !errors.Is(err, ErrDecode) {
		t.Fatalf("empty input err = %v, want ErrDecode", err)
	}
}

func TestCaptureWithoutPlayer(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.5, 480)

	if _, err := Capture(context.Background(), nil, src, Options{}); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("err = %v, want ErrCaptureUnavailable", err)
	}
}

type fakePlayer struct{}

func (p *fakePlayer) Play(ctx context.Context, src *track.Buffer, tap chain.Tap) error {
	left, right := src.StereoView()
	tap(left, right)

	return nil
}

func TestCaptureRecordsTap(t *testing.T) {
	src := testutil.SineTrack(t, 440, 48000, 0.5, 480)

	got, err := Capture(context.Background(), &fakePlayer{}, src, Options{})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	if got.Frames() != 480 || got.Channels() != 2 {
		t.Fatalf("captured shape: %d frames, %d ch", got.Frames(), got.Channels())
	}

	for i := range got.Data[0] {
		if got.Data[0][i] != src.Data[0][i] {
			t.Fatalf("captured sample %d = %v, want %v", i, got.Data[0][i], src.Data[0][i])
		}
	}
}
