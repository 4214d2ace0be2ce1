package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the inboxplan application
var rootCmd = &cobra.Command{
	Use:   "inboxplan",
	Short: "Turns tracked email into calendar-backed tasks",
	Long: `inboxplan scans a tracked Gmail label for actionable email, extracts
tasks through a chain of AI providers with a deterministic fallback, and
syncs tasks with due dates to Google Calendar.

Runs are idempotent: repeating a run over an unchanged inbox creates no
duplicate tasks and no duplicate calendar events.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "inboxplan version %s\n" .Version}}`)

	// If no subcommand is provided, run the pipeline by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "run")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}
