package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/database"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/models"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/repository"
	"github.com/spf13/cobra"
)

func newUsersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}
	cmd.AddCommand(newUsersPromoteCommand())
	return cmd
}

// Signup never grants admin, so the first admin is made here.
func newUsersPromoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Give an existing account the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer database.Close()

			profile, err := promote(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", profile.Email, profile.UUID, profile.Role)
			return nil
		},
	}
}

func promote(ctx context.Context, store *repository.Store, email string) (*models.Profile, error) {
	identity, err := store.Identities.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", email, err)
	}
	profile, err := store.Profiles.Update(ctx, identity.ID, map[string]interface{}{"role": models.RoleAdmin})
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", email, err)
	}
	return profile, nil
}
