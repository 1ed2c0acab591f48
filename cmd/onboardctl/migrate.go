package main

import (
	"fmt"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := openStore(); err != nil {
				return err
			}
			defer database.Close()
			if err := database.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
