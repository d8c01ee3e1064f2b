package cli

import (
	"github.com/spf13/cobra"
)

var (
	configPath  string
	sessionPath string
)

var rootCmd = &cobra.Command{
	Use:          "compliance-tracker",
	Short:        "Compliance task tracker with approval workflow",
	Long:         "compliance-tracker serves the task API and talks to it.\nRun without a command to start the server.",
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Path to the login session file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(queueCmd)
}
