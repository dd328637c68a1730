// Package cli implements the master command-line tool: offline rendering,
// loudness measurement, playback, and preset management over the engine.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-master/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg          config.Config
	cfgFile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "master",
	Short: "Mastering chain processor",
	Long: `master runs a fixed mastering signal chain (EQ, compressor,
saturation, stereo controls, limiter) over audio files or live playback.

Chain settings come from preset files in JSON form; rendering is
deterministic, so the same input, preset, and version always produce the
same output file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(verboseLevel)

		if cfgFile == "" {
			cfgFile = os.ExpandEnv("$HOME/.config/master.yaml")
		}

		var err error

		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/master.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(measureCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(configCmd)
}

func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slogLevel,
	})

	slog.SetDefault(slog.New(handler))
}
