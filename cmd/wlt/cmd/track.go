package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/wishlist-tracker/internal/api/client"
)

func trackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "track <item_id>",
		Short: "Add a catalog item to your wishlist",
		Long: "Fetches the item's current price and records it on your wishlist.\n" +
			"The item ID is the last path segment of the item's catalog page.",
		Args: cobra.ExactArgs(1),
		Example: `  wlt track the-three-body-problem-1
  wlt track dune-1 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := newClient().TrackItem(cmd.Context(), args[0])
			if apiclient.IsStatus(err, http.StatusConflict) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already tracked at today's price.\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			if res.Snapshot == nil {
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s is queued behind other fetches; it will be on your wishlist once fetched.\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking %q at %s.\n",
				res.Snapshot.Title, res.Snapshot.Price.StringFixed(2))
			return nil
		},
	}
}
