package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var similarCmd = &cobra.Command{
	Use:   "similar <description...>",
	Short: "List solved tickets that resemble a description",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), rootFlags.timeout)
	defer cancel()

	items, err := newClient().Similar(ctx, strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("lookup similar: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No similar tickets found.")
		return nil
	}
	printTickets(out, items)
	return nil
}
