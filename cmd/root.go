package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coveytools/covey/pkg/config"
	"github.com/coveytools/covey/pkg/output"
)

var (
	flagVenv    string
	flagVerbose bool
	flagNoAnsi  bool
)

var rootCmd = &cobra.Command{
	Use:   "covey",
	Short: "Manage collection and Python dependencies in a virtual environment",
	Long: `covey installs, checks, and uninstalls collections and their Python
requirements inside an isolated Python virtual environment.

Collections are versioned units of content identified as namespace.name,
installed under <site-packages>/covey_collections.`,
	SilenceUsage: true,
}

func init() {
	registerGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newUninstallCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newTreeCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func registerGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&flagVenv, "venv", "", "Path to the Python virtual environment (default: ./.venv)")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging and subprocess output")
	flags.BoolVar(&flagNoAnsi, "no-ansi", false, "Disable colored output")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig resolves the configuration from the global flags.
func loadConfig() (*config.Config, error) {
	return config.Load(config.Options{
		Venv:    flagVenv,
		Verbose: flagVerbose,
		NoAnsi:  flagNoAnsi,
	})
}

// newLogger builds the logger injected into every component.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
	if cfg.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:          cfg.NoAnsi,
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	return log
}

// newConsole builds the user-facing note/hint channel.
func newConsole(cfg *config.Config) *output.Console {
	return output.New(output.Options{Writer: os.Stdout, NoColor: cfg.NoAnsi})
}
