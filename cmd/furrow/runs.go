package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/cli"
	"github.com/aretw0/furrow/internal/presentation/graph"
	"github.com/aretw0/furrow/pkg/domain"
)

// runsCmd groups the archive inspection commands.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived runs, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		jsonMode, _ := cmd.Flags().GetBool("json")

		engine, cleanup := archiveEngine()
		defer cleanup()

		records, err := engine.Archive().List(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}

		if jsonMode {
			printJSON(records)
			return
		}

		if cfg.Store.Backend == "" || cfg.Store.Backend == "memory" {
			fmt.Fprintln(os.Stderr, ">>> the in-memory archive only sees runs from this process; configure a redis or file backend to keep history")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tWORKFLOW\tSTATUS\tSTARTED\tQUERY")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Workflow, recordStatus(r), r.StartedAt.Format(time.RFC3339), truncate(r.Query, 48))
		}
		w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived run",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		jsonMode, _ := cmd.Flags().GetBool("json")
		diagram, _ := cmd.Flags().GetBool("diagram")

		engine, cleanup := archiveEngine()
		defer cleanup()

		record, err := engine.Archive().Load(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, domain.ErrRunNotFound) {
				fmt.Fprintf(os.Stderr, "Run %s not found\n", args[0])
			} else {
				fmt.Fprintf(os.Stderr, "Error loading run: %v\n", err)
			}
			os.Exit(1)
		}

		switch {
		case jsonMode:
			printJSON(record)
		case diagram:
			fmt.Print(graph.RenderRun(record))
		default:
			printRecord(record)
		}
	},
}

// archiveEngine builds an engine for archive access only; the generator
// factory never fires.
func archiveEngine() (*furrow.Engine, func()) {
	engine, cleanup, err := cli.BuildEngine(cfg, logger, cli.BuildOptions{Debug: debugMode})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		os.Exit(1)
	}
	return engine, cleanup
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}

func printRecord(r domain.RunRecord) {
	fmt.Printf("Run:      %s\n", r.ID)
	fmt.Printf("Workflow: %s\n", r.Workflow)
	fmt.Printf("Status:   %s\n", recordStatus(r))
	fmt.Printf("Started:  %s\n", r.StartedAt.Format(time.RFC3339))
	fmt.Printf("Duration: %s\n", r.FinishedAt.Sub(r.StartedAt))
	fmt.Printf("Query:    %s\n", r.Query)
	if r.Error != "" {
		fmt.Printf("Error:    %s\n", r.Error)
	}

	fmt.Println("\nSteps:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  STEP\tSTATUS\tREASON\tDURATION")
	for _, s := range r.Steps {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", s.StepID, s.Status, s.Reason, s.Duration)
	}
	w.Flush()

	if r.Answer != "" {
		fmt.Printf("\nAnswer:\n%s\n", r.Answer)
	}
}

func recordStatus(r domain.RunRecord) string {
	switch {
	case !r.Success:
		return "failed"
	case r.Degraded:
		return "degraded"
	default:
		return "success"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().Bool("json", false, "Print the list as JSON")
	runsShowCmd.Flags().Bool("json", false, "Print the record as JSON")
	runsShowCmd.Flags().Bool("diagram", false, "Print a Mermaid diagram of the run's steps")
}
