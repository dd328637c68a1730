package cli

import (
	"fmt"
	"os"

	"github.com/cwbudde/algo-master/preset"
	"github.com/spf13/cobra"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage stored chain presets",
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.NewFileStore(cfg.Presets.Directory)
		if err != nil {
			return err
		}

		names, err := store.List()
		if err != nil {
			return err
		}

		if len(names) == 0 {
			fmt.Println("No presets stored.")

			return nil
		}

		for _, name := range names {
			fmt.Println(name)
		}

		return nil
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a stored preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := preset.NewFileStore(cfg.Presets.Directory)
		if err != nil {
			return err
		}

		doc, err := store.Load(args[0])
		if err != nil {
			return err
		}

		// Round-trip through Parse so broken documents are reported
		// instead of echoed.
		p, err := preset.Parse(doc)
		if err != nil {
			return err
		}

		out, err := p.Encode()
		if err != nil {
			return err
		}

		fmt.Println(string(out))

		return nil
	},
}

var presetImportCmd = &cobra.Command{
	Use:   "import <name> <file.json>",
	Short: "Validate and store a preset file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read preset: %w", err)
		}

		p, err := preset.Parse(data)
		if err != nil {
			return err
		}

		if p.Name == "" {
			p.Name = args[0]
		}

		doc, err := p.Encode()
		if err != nil {
			return err
		}

		store, err := preset.NewFileStore(cfg.Presets.Directory)
		if err != nil {
			return err
		}

		if err := store.Save(args[0], doc); err != nil {
			return err
		}

		fmt.Printf("Stored preset %q\n", args[0])

		return nil
	},
}

func init() {
	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetShowCmd)
	presetCmd.AddCommand(presetImportCmd)
}
