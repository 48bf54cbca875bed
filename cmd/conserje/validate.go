package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/conserje"
	"github.com/aretw0/conserje/internal/validator"
	"github.com/aretw0/conserje/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate [catalog]",
	Short: "Check the catalog for consistency",
	Long: `Loads the catalog, reports structural errors (missing ids, duplicates, unknown
categories) and lints the content the concierge relies on. With --strict,
warnings fail the command too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		if cfg.Catalog.Path == "" {
			return fmt.Errorf("no catalog to validate (use --catalog or pass a path)")
		}
		strict, _ := cmd.Flags().GetBool("strict")
		return runValidate(cmd, cfg.Catalog.Path, strict)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Treat lint warnings as errors")
}

func runValidate(cmd *cobra.Command, path string, strict bool) error {
	out := cmd.OutOrStdout()

	eng, err := conserje.New(path)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	catalog := eng.Catalog()

	fmt.Fprintf(out, "Catalog %s (version %s): %d items, %d rules\n", path, catalog.Version, len(catalog.Items), len(catalog.Rules))
	for _, cat := range domain.Categories {
		fmt.Fprintf(out, "  %-24s %d\n", cat.Label(), len(catalog.ByCategory(cat)))
	}

	findings := validator.Lint(catalog)
	for _, f := range findings {
		fmt.Fprintln(out, f.String())
	}

	if warnings := validator.Warnings(findings); strict && warnings > 0 {
		return fmt.Errorf("validation failed: %d warnings", warnings)
	}
	fmt.Fprintln(out, "Catalog is valid! ✅")
	return nil
}
