package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/coveytools/covey/pkg/manifest"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed collections",
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

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, headerStyle.Render("COLLECTION")+"\t"+headerStyle.Render("VERSION")+"\t"+headerStyle.Render("PATH"))
			for _, name := range universe.Names() {
				record := universe[name]
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, versionStyle.Render(record.CollectionInfo.Version), faintStyle.Render(record.Path))
			}
			return w.Flush()
		},
	}
}
