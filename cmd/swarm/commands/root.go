package commands

import (
	"github.com/spf13/cobra"
)

var (
	// dataDir holds the database, logs and default config file.
	dataDir string

	// configPath is the TOML config shared with swarmd.
	configPath string

	// dbPath overrides the configured database.
	dbPath string

	// userName is the user operations are performed as.
	userName string

	// logLevel is the log level for engine output on stderr.
	logLevel string

	// outputFormat controls output format (text, json).
	outputFormat string
)

// rootCmd is the base command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Swarm review workflow CLI",
	Long: `Swarm CLI inspects and edits code reviews stored by swarmd.

Edits made here are written to the shared database and their notifications
are queued for the daemon to deliver. Both take review locks in that
database unless the lock backend is set to memory.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&dataDir, "datadir", "",
		"Data directory (default: ~/.swarm)",
	)
	rootCmd.PersistentFlags().StringVar(
		&configPath, "config", "",
		"TOML config file (default: <datadir>/swarmd.toml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&dbPath, "db", "",
		"Path to SQLite database (overrides config)",
	)
	rootCmd.PersistentFlags().StringVar(
		&userName, "user", "",
		"User to act as (default: $SWARM_USER, then $USER)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "loglevel", "error",
		"Log level for engine output",
	)
	rootCmd.PersistentFlags().StringVar(
		&outputFormat, "format", "text",
		"Output format: text, json",
	)

	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(changeCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(queueCmd)
}
