package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/wishlist-tracker/internal/api/client"
)

func wishlistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wishlist",
		Short: "Show the latest price of every tracked title",
		Example: `  wlt wishlist
  wlt wishlist --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := newClient().GetWishlist(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), rows)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Your wishlist is empty.")
				return nil
			}
			return printWishlistTable(cmd.OutOrStdout(), rows)
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		params apiclient.HistoryParams
		since  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded prices per title",
		Example: `  wlt history
  wlt history --title "Dune" --since 720h
  wlt history --item dune-1 --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if since > 0 {
				params.Since = time.Now().Add(-since)
			}

			out, err := newClient().GetHistory(cmd.Context(), &params)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), out)
			}
			if len(out) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No price history found.")
				return nil
			}
			return printHistoryTable(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&params.ItemID, "item", "", "only this catalog item")
	cmd.Flags().StringVar(&params.Title, "title", "", "only this title")
	cmd.Flags().DurationVar(&since, "since", 0, "only snapshots newer than this, e.g. 168h")
	cmd.Flags().IntVar(&params.Limit, "limit", 0, "keep only the newest N snapshots (0 for all)")

	return cmd
}
