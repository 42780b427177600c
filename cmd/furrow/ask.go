package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/aretw0/furrow/internal/cli"
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Run a query through the pipeline and print the answer",
	Long: `Runs the query through the configured workflow and prints the answer,
markdown-rendered on a terminal. A run that had to fall back still prints its
answer; the degradation note goes to stderr.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		workflowName, _ := cmd.Flags().GetString("workflow")
		overrides, _ := cmd.Flags().GetStringArray("override")
		jsonMode, _ := cmd.Flags().GetBool("json")

		engine, cleanup, err := cli.BuildEngine(cfg, logger, cli.BuildOptions{Debug: debugMode})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		opts := cli.AskOptions{
			Workflow:  workflowName,
			Query:     strings.Join(args, " "),
			Overrides: overrides,
			JSON:      jsonMode,
			TTY:       !jsonMode && term.IsTerminal(int(os.Stdout.Fd())),
			Out:       os.Stdout,
			ErrOut:    os.Stderr,
		}
		if err := cli.RunAsk(sigCtx, engine, opts); err != nil {
			cleanup()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringP("workflow", "w", "", "Workflow to run (default: ask)")
	askCmd.Flags().StringArray("override", nil, "Per-step input override, step.field=value (repeatable)")
	askCmd.Flags().Bool("json", false, "Print the full run result as JSON")

	// `furrow "question"` works without the subcommand.
	rootCmd.Run = askCmd.Run
	rootCmd.Flags().AddFlagSet(askCmd.Flags())
}
