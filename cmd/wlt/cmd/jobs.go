package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/wishlist-tracker/internal/api/client"
)

func jobsCmd() *cobra.Command {
	jobsRoot := &cobra.Command{
		Use:   "jobs",
		Short: "View and run scheduler jobs",
		Long: "View the execution history of scheduled jobs. Each run of the\n" +
			"wishlist_refresh job records status, duration, and any errors.",
	}

	jobsRoot.AddCommand(
		jobsListCmd(),
		jobsHistoryCmd(),
		jobsRunCmd(),
	)

	return jobsRoot
}

func jobsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List jobs with their latest run and next start",
		Example: `  wlt jobs list
  wlt jobs list --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobs, err := newClient().ListJobs(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No jobs found.")
				return nil
			}
			return printJobsTable(cmd.OutOrStdout(), jobs)
		},
	}
}

func jobsHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <job_name>",
		Short: "Show run history for a job",
		Args:  cobra.ExactArgs(1),
		Example: `  wlt jobs history wishlist_refresh
  wlt jobs history wishlist_refresh --limit 5 --output json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := newClient().GetJobHistory(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), runs)
			}
			if len(runs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No runs found for job %q.\n", args[0])
				return nil
			}
			return printJobRunsTable(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum runs to show (0 for server default)")
	return cmd
}

func jobsRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "run",
		Short:   "Refresh every user's wishlist now",
		Example: `  wlt jobs run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := newClient().RunRefreshJob(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), resp)
			}
			if resp.Status == apiclient.StatusRunning {
				fmt.Fprintln(cmd.OutOrStdout(), "Refresh job is still running; see `wlt jobs list` for its outcome.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Refresh completed, %d price drops found.\n", resp.Drops)
			return nil
		},
	}
}
