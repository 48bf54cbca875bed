package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/pkg/domain"
)

var menuCmd = &cobra.Command{
	Use:   "menu [catalog]",
	Short: "Print the menu the concierge would show",
	Long: `Prints the category menu, or with --category the entries of one category
ranked for the given profile, intent and party size.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		eng, err := conserje.New(cfg.Catalog.Path)
		if err != nil {
			return err
		}

		category, _ := cmd.Flags().GetString("category")
		profile, _ := cmd.Flags().GetString("profile")
		intent, _ := cmd.Flags().GetString("intent")
		guests, _ := cmd.Flags().GetInt("guests")
		asJSON, _ := cmd.Flags().GetBool("json")

		out := cmd.OutOrStdout()
		entries, err := eng.Menu(domain.Category(category), profile, intent, guests)
		if errors.Is(err, domain.ErrNoMatchingRoom) {
			if asJSON {
				fmt.Fprintln(cmd.ErrOrStderr(), conserje.NoRoomsNotice)
				_, err = fmt.Fprintln(out, "[]")
				return err
			}
			_, err = fmt.Fprintln(out, conserje.NoRoomsNotice)
			return err
		}
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		for i, entry := range entries {
			fmt.Fprintf(out, "%2d. %-28s %s\n", i+1, entry.Label, entry.ID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(menuCmd)
	menuCmd.Flags().String("category", "", "Category to list")
	menuCmd.Flags().String("profile", "", "Traveler profile (pareja, familia, grupo, solo)")
	menuCmd.Flags().String("intent", "", "Trip intent (descanso, trabajo, aventura)")
	menuCmd.Flags().Int("guests", 0, "Party size")
	menuCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}
