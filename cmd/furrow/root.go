package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow/internal/config"
	"github.com/aretw0/furrow/internal/logging"
)

// Shared command state, populated once by the root PersistentPreRun.
var (
	cfg       *config.Config
	logger    *slog.Logger
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "furrow [query]",
	Short: "Furrow answers questions through a fail-soft step pipeline",
	Long: `Furrow threads a question through a linear pipeline to an agent-backed
answer. Broken configuration degrades the answer instead of failing the run:
no credential, no tool server, and no profile library all still produce a
response.`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded

		debugMode, _ = cmd.Flags().GetBool("debug")
		if debugMode {
			logger = logging.New(slog.LevelDebug)
		} else {
			logger = logging.NewAt(cfg.LogLevel)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the config file (default furrow.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging and lifecycle tracing")
}
