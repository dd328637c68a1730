package cli

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/cwbudde/algo-master/engine"
	"github.com/cwbudde/algo-master/preset"
	"github.com/cwbudde/algo-master/render"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play <input.wav>",
	Short: "Play a file through the live mastering chain",
	Long: `Play runs the file through the chain in real time on the default
output device, printing loudness readings while it plays. Ctrl-C stops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer in.Close()

		buf, err := render.DecodeWAV(in)
		if err != nil {
			return err
		}

		run, err := engine.NewPortAudioRuntime()
		if err != nil {
			return err
		}

		eng, err := engine.New(run,
			engine.WithSampleRate(buf.SampleRate),
			engine.WithBlockSize(cfg.Audio.BlockSize),
		)
		if err != nil {
			run.Close()

			return err
		}
		defer eng.Close()

		if presetPath, _ := cmd.Flags().GetString("preset"); presetPath != "" {
			data, err := os.ReadFile(presetPath)
			if err != nil {
				return fmt.Errorf("read preset: %w", err)
			}

			p, err := preset.Parse(data)
			if err != nil {
				return err
			}

			eng.Apply(p.State)
		}

		if err := eng.Start(); err != nil {
			return err
		}

		eng.LoadTrack(buf, false)
		eng.SetPlaying(true)

		fmt.Printf("Playing %s (%.1fs)\n", args[0], buf.Duration())

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		defer signal.Stop(interrupt)

		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		for eng.Playing() {
			select {
			case <-interrupt:
				eng.SetPlaying(false)
			case <-ticker.C:
				snap := eng.Meter().Latest()
				fmt.Printf("\rM %6.1f LUFS  S %6.1f LUFS  I %6.1f LUFS  corr %+.2f   ",
					snap.LufsMomentary, snap.LufsShort, snap.LufsIntegrated, snap.Correlation)
			}
		}

		fmt.Println()

		return nil
	},
}

func init() {
	playCmd.Flags().StringP("preset", "p", "", "preset file with the chain state to apply")
}
