// Package config loads the tool configuration from a YAML file, filling in
// defaults for anything the file leaves unset.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type AudioConfig struct {
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"`
	BlockSize  int     `mapstructure:"block_size" yaml:"block_size"`
}

type RenderConfig struct {
	Normalize  bool    `mapstructure:"normalize" yaml:"normalize"`
	TargetLUFS float64 `mapstructure:"target_lufs" yaml:"target_lufs"`
}

type PresetsConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type Config struct {
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Render  RenderConfig  `mapstructure:"render" yaml:"render"`
	Presets PresetsConfig `mapstructure:"presets" yaml:"presets"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Audio: AudioConfig{
			SampleRate: 48000,
			BlockSize:  512,
		},
		Render: RenderConfig{
			Normalize:  false,
			TargetLUFS: -14,
		},
		Presets: PresetsConfig{
			Directory: os.ExpandEnv("$HOME/.config/master/presets"),
		},
	}
}

// Load reads path and merges it over the defaults. A missing file is not an
// error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("config: read %q: %w", path, err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 48000
	}

	if cfg.Audio.BlockSize <= 0 {
		cfg.Audio.BlockSize = 512
	}

	return cfg, nil
}
