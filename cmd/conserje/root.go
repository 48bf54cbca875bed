package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje/internal/cli"
	"github.com/aretw0/conserje/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "conserje",
	Short: "Conserje is a hotel concierge dialogue engine",
	Long: `Conserje answers hotel guests from a curated catalog of rooms, services,
facilities and local recommendations, over HTTP, MCP or an interactive chat.`,
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
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a conserje.yaml configuration file")
	rootCmd.PersistentFlags().String("catalog", "", "Catalog file (YAML/JSON) or Loam directory")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

// loadConfig reads the configuration file and the environment, then applies
// the persistent flags and the positional catalog, which win over both.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if catalog, _ := cmd.Flags().GetString("catalog"); catalog != "" {
		cfg.Catalog.Path = catalog
	} else if len(args) > 0 {
		cfg.Catalog.Path = args[0]
	}
	return cfg, nil
}

// openStack loads the configuration and builds the shared stack.
func openStack(ctx context.Context, cmd *cobra.Command, args []string) (*cli.Stack, error) {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewStack(ctx, cfg, cli.NewLogger(cfg.Log, debug))
}
