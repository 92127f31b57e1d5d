package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/wishlist-tracker/internal/api/client"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-fetch your wishlist now and report price drops",
		Long: "Fetches the current price of every item on your wishlist through the\n" +
			"server's rate-limited queue. Drops are sent to the configured notifiers\n" +
			"and listed here.",
		Example: `  wlt refresh`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := newClient().Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Status == apiclient.StatusRunning {
				fmt.Fprintln(cmd.OutOrStdout(),
					"Refresh is still running on the server; price drops will be sent to your notifiers.")
				return nil
			}
			if resp.Count == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No price drops.")
				return nil
			}
			return printDropsTable(cmd.OutOrStdout(), resp.Drops)
		},
	}
}
