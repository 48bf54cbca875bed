package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje/internal/cli"
	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph [catalog]",
	Short: "Print the catalog as a Mermaid flowchart",
	Long: `Draws the hotel, its category menus and items as a Mermaid graph. With
--session, the items the session has seen and the one in focus are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID != "" && cfg.Session.Store == "memory" {
			cfg.Session.Store = "file"
		}

		stack, err := cli.NewStack(ctx, cfg, logging.NewNop())
		if err != nil {
			return err
		}
		defer stack.Close()

		var overlay *graph.Overlay
		if sessionID != "" {
			s, err := stack.Sessions.Load(ctx, sessionID)
			if err != nil {
				return fmt.Errorf("failed to load session %q: %w", sessionID, err)
			}
			overlay = graph.SessionOverlay(s)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(stack.Engine.Catalog(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("session", "", "Highlight the position of a stored session")
}
