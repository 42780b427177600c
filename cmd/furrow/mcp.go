package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/furrow/internal/cli"
	mcpadapter "github.com/aretw0/furrow/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the engine as an MCP server so agent hosts can call the pipeline
as a tool.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport := cfg.MCP.Transport
		if cmd.Flags().Changed("transport") || transport == "" {
			transport, _ = cmd.Flags().GetString("transport")
		}
		port := cfg.MCP.SSEPort
		if cmd.Flags().Changed("port") || port == 0 {
			port, _ = cmd.Flags().GetInt("port")
		}

		engine, cleanup, err := cli.BuildEngine(cfg, logger, cli.BuildOptions{Debug: debugMode})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()

		srv := mcpadapter.NewServer(engine,
			mcpadapter.WithLogger(logger),
			mcpadapter.WithRunStore(engine.Archive()),
		)

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			logger.Info("starting MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				logger.Error("MCP server execution failed", "err", err)
				cleanup()
				os.Exit(1)
			}
		case "sse":
			logger.Info("starting MCP server (sse)", "port", port)

			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			if err := srv.ServeSSE(sigCtx, port); err != nil && err != http.ErrServerClosed {
				logger.Error("MCP server execution failed", "err", err)
				cleanup()
				os.Exit(1)
			}
			logger.Info("MCP server stopped gracefully")
		default:
			fmt.Fprintf(os.Stderr, "Unknown transport: %s. Supported: stdio, sse\n", transport)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
