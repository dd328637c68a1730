package cli

import (
	"fmt"
	"math"
	"os"

	"github.com/cwbudde/algo-master/meter"
	"github.com/cwbudde/algo-master/render"
	"github.com/spf13/cobra"
)

var measureCmd = &cobra.Command{
	Use:   "measure <input.wav>",
	Short: "Measure peak, RMS, and loudness of a file",
	Args:  cobra.ExactArgs(1),
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

		m := meter.New(meter.WithSampleRate(buf.SampleRate))
		left, right := buf.StereoView()
		m.Process(left, right)

		// Whole-file peak and RMS; snapshots only cover their report window.
		peak := 0.0
		for _, ch := range buf.Data {
			for _, s := range ch {
				if a := math.Abs(s); a > peak {
					peak = a
				}
			}
		}

		rms := math.Sqrt(meter.MeanSquare(buf.Data))

		fmt.Printf("File:        %s\n", args[0])
		fmt.Printf("Duration:    %.2fs (%d frames, %.0f Hz, %d ch)\n",
			buf.Duration(), buf.Frames(), buf.SampleRate, buf.Channels())
		fmt.Printf("Peak:        %s\n", formatDB(peak))
		fmt.Printf("RMS:         %s\n", formatDB(rms))
		fmt.Printf("Integrated:  %.1f LUFS\n", m.Integrated())
		fmt.Printf("Correlation: %+.2f\n", m.Latest().Correlation)

		return nil
	},
}

func formatDB(linear float64) string {
	if linear <= 0 {
		return "-inf dBFS"
	}

	return fmt.Sprintf("%.1f dBFS", 20*math.Log10(linear))
}
