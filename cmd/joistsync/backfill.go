package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crivera/joistsync/internal/cli"
)

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill derived columns for already-ingested rows",
	}
	cmd.AddCommand(backfillJoinDatesCmd())
	return cmd
}

func backfillJoinDatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join-dates",
		Short: "Derive join dates for clients from a past ingestion run",
		Long: `Set join_date for every client ingested on the given date to the
earliest issue date among that client's estimates. Clients with no
estimates keep a null join date.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dateStr, _ := cmd.Flags().GetString("date")
			date, err := parseIngestionDate(dateStr)
			if err != nil {
				return err
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			updated, err := store.UpdateJoinDates(cmd.Context(), date)
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf("updated join dates for %d clients ingested on %s", updated, date.Format("2006-01-02"))))
			return nil
		},
	}
	cmd.Flags().String("date", "", "ingestion date of the clients to backfill (YYYY_MM_DD or YYYY-MM-DD, default: today)")
	return cmd
}
