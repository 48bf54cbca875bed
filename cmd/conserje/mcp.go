package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje/internal/cli"
	"github.com/aretw0/conserje/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [catalog]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the concierge as an MCP Server so AI agents can ask it questions,
list menus and request follow-up questions as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shutdown := cli.WatchShutdown(context.Background())
		defer shutdown.Stop()

		stack, err := openStack(shutdown, cmd, args)
		if err != nil {
			return err
		}
		defer stack.Close()
		cfg := stack.Config

		if cmd.Flags().Changed("transport") {
			cfg.MCP.Transport, _ = cmd.Flags().GetString("transport")
		}
		if cmd.Flags().Changed("port") {
			cfg.MCP.Port, _ = cmd.Flags().GetInt("port")
		}

		srv := mcp.NewServer(stack.Engine, mcp.WithSessions(stack.Sessions), mcp.WithLogger(stack.Logger))

		switch cfg.MCP.Transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			stack.Logger.Info("starting conserje MCP server (stdio)")
			if err := srv.ServeStdio(); err != nil {
				return fmt.Errorf("mcp server failed: %w", err)
			}
			return nil
		case "sse":
			stack.Logger.Info("starting conserje MCP server (SSE)", "port", cfg.MCP.Port)
			if err := srv.ServeSSE(shutdown, cfg.MCP.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("mcp server failed: %w", err)
			}
			stack.Logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", cfg.MCP.Transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (only for SSE)")
}
