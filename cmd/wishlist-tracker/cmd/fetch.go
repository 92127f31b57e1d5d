package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/wishlist-tracker/internal/catalog"
	"github.com/donaldgifford/wishlist-tracker/internal/taskq"
)

func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <item_id>...",
		Short: "Fetch items through the rate-limited queue without recording them",
		Long: "Fetch the current catalog page of each item, honouring the configured\n" +
			"minimum interval between fetch starts, and print the parsed snapshots.\n" +
			"Useful for checking catalog settings before tracking an item.",
		Args: cobra.MinimumNArgs(1),
		Example: `  wishlist-tracker fetch the-three-body-problem-1
  wishlist-tracker fetch dune-1 dune-messiah-2 --config prod.yaml`,
		RunE: runFetch,
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	queue := newFetchQueue(newCatalogClient(&cfg.Catalog), &cfg.Scheduler, log)
	queue.Start(cmd.Context())
	defer queue.Stop()

	futures := make([]*taskq.Future, 0, len(args))
	for _, id := range args {
		futures = append(futures, queue.Submit(id))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	var failed int
	for _, f := range futures {
		snap, err := f.Wait(cmd.Context())
		if err != nil {
			failed++
			log.Error("fetch failed", "item_id", f.ItemID(), "reason", catalog.Reason(err), "error", err)
			continue
		}
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(futures))
	}
	return nil
}
