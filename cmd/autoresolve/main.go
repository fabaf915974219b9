package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

var (
	configFile string
	logLevel   string
	logPath    string
)

var rootCmd = &cobra.Command{
	Use:   "autoresolve",
	Short: "Resolve GitHub issues and review comments with a chat model",
	Long: `autoresolve reads an issue or a pull request review comment, lets a chat
model explore the repository, search for context and commit changes to a
working branch, and keeps a progress comment on the issue or pull request
up to date until the model is done.

Use 'autoresolve help <command>' for more information on a specific command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "autoresolve %s (%s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (JSON, default ~/.config/autoresolve/config.json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, none")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", "", "Write logs to this file instead of stderr")

	rootCmd.AddCommand(resolveCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		out := newStatusPrinter(os.Stderr)
		out.Failure("Error: %v", err)
		os.Exit(1)
	}
}
