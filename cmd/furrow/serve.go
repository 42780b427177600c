package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/aretw0/furrow"
	httpadapter "github.com/aretw0/furrow/internal/adapters/http"
	"github.com/aretw0/furrow/internal/cli"
	"github.com/aretw0/furrow/internal/presentation/tui"
)

const shutdownGrace = 5 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the engine behind the JSON API, exposing run submission, the run
archive, health, Prometheus metrics, and the OpenAPI document.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr := cfg.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		registry := prometheus.NewRegistry()
		engine, cleanup, err := cli.BuildEngine(cfg, logger, cli.BuildOptions{
			Debug:   debugMode,
			Metrics: registry,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		handler, err := httpadapter.NewHandler(engine,
			httpadapter.WithLogger(logger),
			httpadapter.WithRunStore(engine.Archive()),
			httpadapter.WithGatherer(registry),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error building handler: %v\n", err)
			os.Exit(1)
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		tui.PrintBanner(furrow.Version)
		fmt.Printf("Serving the furrow API on %s\n", addr)

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			serverErrors <- srv.ListenAndServe()
		}()

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		select {
		case err := <-serverErrors:
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			cleanup()
			os.Exit(1)

		case <-sigCtx.Done():
			fmt.Printf("\nStart shutdown... Signal: %v\n", sigCtx.Signal())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", shutdownGrace, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Listen address (overrides config)")
}
