package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje/internal/cli"
	"github.com/aretw0/conserje/internal/logging"
	"github.com/aretw0/conserje/pkg/domain"
)

var chatCmd = &cobra.Command{
	Use:   "chat [catalog]",
	Short: "Talk to the concierge in the terminal",
	Long: `Starts an interactive conversation. Type a question or the number of a menu
entry; 'salir' ends the conversation. With --session the conversation is kept
in the configured session store and resumed next time.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		shutdown := cli.WatchShutdown(context.Background())
		defer shutdown.Stop()

		sessionID, _ := cmd.Flags().GetString("session")
		category, _ := cmd.Flags().GetString("category")
		opts := cli.ChatOptions{SessionID: sessionID, Category: domain.Category(category)}
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		if opts.Category != "" && !opts.Category.Valid() {
			return fmt.Errorf("%w: %s", domain.ErrUnknownCategory, category)
		}

		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		// A named session has to outlive the process to be resumable.
		if sessionID != "" && cfg.Session.Store == "memory" {
			cfg.Session.Store = "file"
		}
		// Logs would interleave with the conversation, so they are only on with --debug.
		logger := logging.NewNop()
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			logger = cli.NewLogger(cfg.Log, true)
		}
		stack, err := cli.NewStack(shutdown, cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		_, err = cli.RunChat(shutdown, stack, opts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session", "", "Session ID to resume or create")
	chatCmd.Flags().Bool("fresh", false, "Discard the stored session before starting")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	chatCmd.Flags().String("category", "", "Open the conversation on a category menu")
	chatCmd.Flags().BoolP("watch", "w", false, "Reload the catalog when its files change")
}
