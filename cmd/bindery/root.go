package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/bindery/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bindery",
	Short: "Bindery is a reactive data-binding engine",
	Long: `Bindery observes hierarchical context trees: listeners registered on dotted
identifiers are notified when the value they resolve to changes.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("max-depth", 0, "Bound on nested notifications (0 uses the engine default)")
}

func loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	raw, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(raw)
	if err != nil {
		return nil, err
	}
	return logging.New(level), nil
}
