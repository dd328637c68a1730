package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-master/chain"
	"github.com/cwbudde/algo-master/preset"
	"github.com/cwbudde/algo-master/render"
	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render <input.wav>",
	Short: "Render a file through the mastering chain",
	Long: `Render decodes the input, processes it offline through the chain,
and writes a 16-bit WAV. The chain state comes from --preset, or the
default state when no preset is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		inPath := args[0]

		outPath, _ := cmd.Flags().GetString("output")
		presetPath, _ := cmd.Flags().GetString("preset")
		normalize, _ := cmd.Flags().GetBool("normalize")
		targetLUFS, _ := cmd.Flags().GetFloat64("target-lufs")

		if outPath == "" {
			outPath = inPath + ".mastered.wav"
		}

		if !cmd.Flags().Changed("normalize") {
			normalize = cfg.Render.Normalize
		}

		if !cmd.Flags().Changed("target-lufs") {
			targetLUFS = cfg.Render.TargetLUFS
		}

		st := chain.DefaultState()

		if presetPath != "" {
			data, err := os.ReadFile(presetPath)
			if err != nil {
				return fmt.Errorf("read preset: %w", err)
			}

			p, err := preset.Parse(data)
			if err != nil {
				return err
			}

			st = p.State
			slog.Debug("preset loaded", "path", presetPath, "name", p.Name)
		}

		in, err := os.Open(inPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer in.Close()

		src, err := render.DecodeWAV(in)
		if err != nil {
			return err
		}

		slog.Info("rendering",
			"input", inPath,
			"frames", src.Frames(),
			"sample_rate", src.SampleRate,
			"normalize", normalize,
		)

		buf, err := render.Render(cmd.Context(), src, st, render.Options{
			Normalize:  normalize,
			TargetLUFS: targetLUFS,
		})
		if err != nil {
			return err
		}

		out, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer out.Close()

		if err := render.EncodeWAV(out, buf); err != nil {
			return err
		}

		fmt.Printf("Rendered %s -> %s (%.1fs)\n", inPath, outPath, buf.Duration())

		return nil
	},
}

func init() {
	renderCmd.Flags().StringP("output", "o", "", "output file (default <input>.mastered.wav)")
	renderCmd.Flags().StringP("preset", "p", "", "preset file with the chain state to apply")
	renderCmd.Flags().Bool("normalize", false, "normalize the result to the target loudness")
	renderCmd.Flags().Float64("target-lufs", -14, "normalization target in LUFS")
}
