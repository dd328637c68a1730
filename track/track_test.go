package track

import "testing"

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 2, 100); err == nil {
		t.Fatal("zero sample rate accepted")
	}

	if _, err := New(48000, 0, 100); err == nil {
		t.Fatal("zero channels accepted")
	}

	if _, err := New(48000, 2, -1); err == nil {
		t.Fatal("negative frame count accepted")
	}
}

func TestShapeAndDuration(t *testing.T) {
	buf, err := New(48000, 2, 24000)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if buf.Channels() != 2 || buf.Frames() != 24000 {
		t.Fatalf("shape = %d ch, %d frames", buf.Channels(), buf.Frames())
	}

	if got := buf.Duration(); got != 0.5 {
		t.Fatalf("duration = %v, want 0.5", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	buf, err := New(48000, 1, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf.Data[0][3] = 0.5

	clone := buf.Clone()
	clone.Data[0][3] = -0.5

	if buf.Data[0][3] != 0.5 {
		t.Fatalf("clone write leaked into source: %v", buf.Data[0][3])
	}
}

func TestStereoViewMono(t *testing.T) {
	buf, err := New(48000, 1, 10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf.Data[0][0] = 0.25

	left, right := buf.StereoView()

	if left[0] != 0.25 || right[0] != 0.25 {
		t.Fatalf("mono view = %v, %v; want duplicated channel", left[0], right[0])
	}
}
