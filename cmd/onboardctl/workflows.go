package main

import (
	"fmt"
	"sort"

	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/database"
	"github.com/ahmetcoskunkizilkaya/marketplace-onboarding/internal/workflow"
	"github.com/spf13/cobra"
)

func newWorkflowsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "Validate and seed workflow definitions",
	}
	cmd.AddCommand(newWorkflowsValidateCommand(), newWorkflowsSeedCommand())
	return cmd
}

func newWorkflowsValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a workflows YAML file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := workflow.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			defs := file.Definitions()
			sort.Slice(defs, func(i, j int) bool { return defs[i].Role < defs[j].Role })
			for _, def := range defs {
				fmt.Fprintf(out, "%-8s %d stages, entry %v\n", def.Role, len(def.Nodes), def.Entries())
			}
			return nil
		},
	}
}

func newWorkflowsSeedCommand() *cobra.Command {
	var overwrite bool
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Write workflow graphs and stage metadata from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := workflow.LoadFromFile(args[0])
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}
			defer database.Close()

			result, err := workflow.NewStore(store.Workflows, store.Stages).Seed(cmd.Context(), file, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d workflows, %d stages", result.Workflows, result.Stages)
			if len(result.Skipped) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (kept existing: %v)", result.Skipped)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace graphs for roles that already have one")
	return cmd
}
