package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coveytools/covey/pkg/manifest"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Dump the installed collection manifests as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			universe, err := manifest.Collect(cfg.CollectionsRoot, cfg.CacheDir, log)
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(universe, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling manifests: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
