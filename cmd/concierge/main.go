package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "concierge",
	Short: "Personal assistant that answers requests by orchestrating tools",
	Long: `Concierge plans tool calls for a natural-language request, runs them in
budgeted batches and composes a grounded answer from the results.

Tools come from the built-in web lookup and from the tool servers listed
under tool_servers in the configuration file.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Configuration file (YAML), defaults to the user config directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error, none)")

	rootCmd.AddCommand(askCmd, toolsCmd, serveCmd)
}
