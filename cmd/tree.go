package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coveytools/covey/pkg/deptree"
	"github.com/coveytools/covey/pkg/manifest"
)

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree",
		Short: "Print the installed collection dependency tree",
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
			if len(universe) == 0 {
				fmt.Println("No collections installed.")
				return nil
			}
			fmt.Print(deptree.Build(universe).Render())
			return nil
		},
	}
}
