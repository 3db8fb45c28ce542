package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coveytools/covey/pkg/manifest"
	"github.com/coveytools/covey/pkg/uninstaller"
)

func newUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <collection|.>",
		Short: "Uninstall the local collection and its dependencies",
		Long: `Uninstall the collection in the working directory: its pinned Python
requirements first, then the collection and its dependency collections
from the install tree.

Only the local collection (or "." as a self reference) can be
uninstalled.

Examples:
  covey uninstall .
  covey uninstall my_namespace.my_collection`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			console := newConsole(cfg)

			local, err := manifest.LoadLocal(cfg.WorkDir)
			if err != nil {
				return fmt.Errorf("the working directory is not a collection: %w", err)
			}

			u := uninstaller.New(cfg, local, log, console)
			if err := u.Run(cmd.Context(), args[0]); err != nil {
				return err
			}
			console.Note("✓ Uninstalled %s.", local.FullName())
			return nil
		},
	}
}
