package main

import (
	"os"

	"github.com/akeren/go-waitlist/config"
	"github.com/akeren/go-waitlist/internal/log"
	"github.com/spf13/cobra"
)

func main() {
	logger := log.NewLoggerWithJSONOutput()
	if err := newRootCommand(logger).Execute(); err != nil {
		logger.Error("Command failed", "error", err.Error())
		os.Exit(1)
	}
}

// newRootCommand builds the operator CLI. Every subcommand loads the .env
// file first so it sees the same configuration as the server.
func newRootCommand(logger *log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:           "cli",
		Short:         "Waitlist maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.InitializeEnvFile(logger)
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:       "migrate [status]",
			Short:     "Apply SQL migrations, or print the current schema version",
			Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"status"},
			RunE:      withLogger(logger, runMigrate),
		},
		&cobra.Command{
			Use:   "export [file]",
			Short: "Write the waitlist CSV export to stdout or a file",
			Args:  cobra.MaximumNArgs(1),
			RunE:  withLogger(logger, runExport),
		},
		&cobra.Command{
			Use:   "create-user <username> <password>",
			Short: "Create a user with a bcrypt-hashed password",
			Args:  cobra.ExactArgs(2),
			RunE:  withLogger(logger, runCreateUser),
		},
	)

	return root
}

func withLogger(logger *log.Logger, run func(*log.Logger, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return run(logger, args)
	}
}
