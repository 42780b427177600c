package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow/internal/cli"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the configuration",
	Long: `Probes each configured dependency: the model credential, the tool
launcher, the profile library, and the run archive. Nothing here stops the
pipeline; broken pieces make runs degrade, and doctor tells you which ones
will.`,
	Run: func(cmd *cobra.Command, args []string) {
		checks := cli.Diagnose(cmd.Context(), cfg)

		failed := 0
		for _, c := range checks {
			mark := "ok"
			if !c.OK {
				mark = "!!"
				failed++
			}
			fmt.Printf("[%s] %-17s %s\n", mark, c.Name, c.Detail)
		}

		if failed > 0 {
			fmt.Printf("\n%d check(s) need attention. Runs still work; they degrade instead of failing.\n", failed)
			os.Exit(1)
		}
		fmt.Println("\nEverything looks ready.")
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
