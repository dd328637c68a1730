package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Default()

	if cfg.Audio != want.Audio || cfg.Render != want.Render {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "master.yaml")

	doc := []byte("audio:\n  sample_rate: 44100\nrender:\n  target_lufs: -16\n")
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("sample rate = %v, want 44100", cfg.Audio.SampleRate)
	}

	if cfg.Render.TargetLUFS != -16 {
		t.Fatalf("target lufs = %v, want -16", cfg.Render.TargetLUFS)
	}

	// Unset keys keep their defaults.
	if cfg.Audio.BlockSize != 512 {
		t.Fatalf("block size = %v, want default 512", cfg.Audio.BlockSize)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")

	if err := os.WriteFile(path, []byte("audio: [unclosed"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("broken yaml accepted")
	}
}
