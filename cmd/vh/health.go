package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:     "health",
	Short:   "Check the health of the varhub server",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := varsClient.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("checking health: %w", err)
		}

		if outputFormat != formatTable {
			if err := printStructured(cmd.OutOrStdout(), outputFormat, map[string]string{"status": status}); err != nil {
				return err
			}
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Health: %s\n", status)
		}

		if status != "ok" {
			return fmt.Errorf("unhealthy: %s", status)
		}
		return nil
	},
}

var subscribersCmd = &cobra.Command{
	Use:     "subscribers",
	Short:   "List live real-time connections on the server",
	GroupID: "realtime",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		subs, err := varsClient.Subscribers(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing subscribers: %w", err)
		}
		return printSubscribers(cmd.OutOrStdout(), outputFormat, subs)
	},
}
