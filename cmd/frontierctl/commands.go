package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the id counter if missing; --force wipes the frontier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := f.Initialize(cmd.Context(), force); err != nil {
				return err
			}
			if force {
				fmt.Fprintln(cmd.OutOrStdout(), "frontier reset")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "frontier initialized")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete every entry and reset the counter")
	return cmd
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add URL...",
		Short: "Add URLs to the frontier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			for _, raw := range args {
				entry, err := f.AddEntry(cmd.Context(), raw)
				if err != nil {
					return fmt.Errorf("add %s: %w", raw, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", entry.Key, entry.URL)
			}
			return nil
		},
	}
}

func newClaimCmd() *cobra.Command {
	var workerID string
	cmd := &cobra.Command{
		Use:   "claim",
		Short: "Claim the oldest unassigned entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if workerID == "" {
				workerID = a.cfg.Worker.ID
			}
			entry, ok, err := f.ClaimOldest(cmd.Context(), workerID)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no unassigned entries")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "worker id (defaults to worker.id)")
	return cmd
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Show one entry by key or id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			entry, ok, err := f.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("entry %s not found", args[0])
			}
			return printJSON(cmd.OutOrStdout(), entry)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the counter and set sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			f, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := f.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
