package cmd

import (
	"github.com/spf13/cobra"

	"github.com/coveytools/covey/pkg/checker"
	"github.com/coveytools/covey/pkg/manifest"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check collection and Python dependencies",
		Long: `Verify every installed collection's declared dependency constraints
against the installed universe, then verify Python dependencies via a
pip dry-run.

Findings are advisory: the command reports everything it found and
exits zero. Only a corrupt manifest or report fails the command.

Examples:
  covey check
  covey check --venv ~/envs/dev -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log := newLogger(cfg)
			console := newConsole(cfg)

			// The working directory may or may not be a collection; the
			// check works either way.
			var local *manifest.Record
			if record, err := manifest.LoadLocal(cfg.WorkDir); err == nil {
				local = &record
			} else {
				log.Debugf("No local collection: %v", err)
			}

			return checker.New(cfg, local, log, console).Run(cmd.Context())
		},
	}
}
