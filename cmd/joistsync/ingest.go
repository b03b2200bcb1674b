package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/crivera/joistsync/internal/cli"
	"github.com/crivera/joistsync/internal/ingest"
	"github.com/crivera/joistsync/internal/mapping"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest Joist CSV exports",
		Long: `Ingest one or more CSV exports from the Joist billing tool.

Each subcommand handles one entity type; the month subcommand runs the
full monthly flow (clients reconciled from estimates, then estimates,
then invoices) in one pass.`,
	}

	cmd.PersistentFlags().String("date", "", "ingestion date stamped on every row (YYYY_MM_DD or YYYY-MM-DD, default: today)")
	cmd.PersistentFlags().Bool("dry-run", false, "read, map and clean without writing to the database")

	cmd.AddCommand(ingestClientsCmd())
	cmd.AddCommand(ingestEstimatesCmd())
	cmd.AddCommand(ingestInvoicesCmd())
	cmd.AddCommand(ingestMonthCmd())
	return cmd
}

func ingestClientsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clients <file>",
		Short: "Ingest a full client export (tab-separated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, dryRun, err := ingestFlags(cmd)
			if err != nil {
				return err
			}

			if dryRun {
				ing := ingest.New(nil, viper.GetString("ingest.source"))
				res, err := ing.Preview(mapping.Clients, mapping.VariantCurrent, args[0])
				if err != nil {
					return err
				}
				printResult("Client ingest (dry run)", res)
				return nil
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ing := ingest.New(store, viper.GetString("ingest.source"))
			res, err := ing.IngestClientFile(cmd.Context(), args[0], date)
			if err != nil {
				return err
			}
			printResult("Client ingest", res)
			return nil
		},
	}
}

func ingestEstimatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "estimates <file> [file...]",
		Short: "Ingest estimate exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, dryRun, err := ingestFlags(cmd)
			if err != nil {
				return err
			}
			variant, _ := cmd.Flags().GetString("variant")

			if dryRun {
				ing := ingest.New(nil, viper.GetString("ingest.source"))
				for _, path := range args {
					res, err := ing.Preview(mapping.Estimates, variant, path)
					if err != nil {
						return err
					}
					printResult("Estimate ingest (dry run)", res)
				}
				return nil
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ing := ingest.New(store, viper.GetString("ingest.source"))
			results, err := ing.IngestEstimateFiles(cmd.Context(), args, variant, date)
			for i := range results {
				printResult("Estimate ingest", &results[i])
			}
			return err
		},
	}
	cmd.Flags().String("variant", mapping.VariantCurrent, fmt.Sprintf("export format variant %v", mapping.Variants(mapping.Estimates)))
	return cmd
}

func ingestInvoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoices <file> [file...]",
		Short: "Ingest invoice exports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, dryRun, err := ingestFlags(cmd)
			if err != nil {
				return err
			}

			if dryRun {
				ing := ingest.New(nil, viper.GetString("ingest.source"))
				for _, path := range args {
					res, err := ing.Preview(mapping.Invoices, mapping.VariantCurrent, path)
					if err != nil {
						return err
					}
					printResult("Invoice ingest (dry run)", res)
				}
				return nil
			}

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ing := ingest.New(store, viper.GetString("ingest.source"))
			results, err := ing.IngestInvoiceFiles(cmd.Context(), args, date)
			for i := range results {
				printResult("Invoice ingest", &results[i])
			}
			return err
		},
	}
}

func ingestMonthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Run the full monthly ingestion flow",
		Long: `Reconcile the month's estimates against the all-time client export,
insert the genuinely new clients with their join dates, then ingest the
estimates and invoices.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			date, _, err := ingestFlags(cmd)
			if err != nil {
				return err
			}
			estimatesPath, _ := cmd.Flags().GetString("estimates")
			clientsPath, _ := cmd.Flags().GetString("clients")
			invoicesPath, _ := cmd.Flags().GetString("invoices")
			variant, _ := cmd.Flags().GetString("variant")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ing := ingest.New(store, viper.GetString("ingest.source"))
			res, err := ing.IngestMonth(cmd.Context(), estimatesPath, clientsPath, invoicesPath, variant, date)
			if err != nil {
				return err
			}

			rows := []cli.SummaryRow{
				{Label: "New clients", Value: strconv.Itoa(len(res.Reconciliation.Inserted))},
				{Label: "Duplicate rows", Value: strconv.Itoa(len(res.Reconciliation.Duplicates))},
				{Label: "Orphaned names", Value: strconv.Itoa(len(res.Reconciliation.Orphaned))},
				{Label: "Estimates saved", Value: strconv.Itoa(res.Estimates.RowsSaved)},
			}
			if res.Invoices != nil {
				rows = append(rows, cli.SummaryRow{Label: "Invoices saved", Value: strconv.Itoa(res.Invoices.RowsSaved)})
			}
			fmt.Fprintln(os.Stdout, cli.RenderSummary("Monthly ingest", rows))

			if len(res.Reconciliation.Orphaned) > 0 {
				fmt.Fprintln(os.Stdout, cli.FormatWarning("some estimates reference clients absent from the export; see the log"))
			}
			return nil
		},
	}
	cmd.Flags().String("estimates", "", "estimates export for the month (required)")
	cmd.Flags().String("clients", "", "all-time client export (required)")
	cmd.Flags().String("invoices", "", "invoices export for the month (optional)")
	cmd.Flags().String("variant", mapping.VariantCurrent, fmt.Sprintf("estimate export format variant %v", mapping.Variants(mapping.Estimates)))
	_ = cmd.MarkFlagRequired("estimates")
	_ = cmd.MarkFlagRequired("clients")
	return cmd
}

func ingestFlags(cmd *cobra.Command) (time.Time, bool, error) {
	dateStr, _ := cmd.Flags().GetString("date")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	date, err := parseIngestionDate(dateStr)
	if err != nil {
		return time.Time{}, false, err
	}
	return date, dryRun, nil
}

func printResult(title string, res *ingest.Result) {
	rows := []cli.SummaryRow{
		{Label: "File", Value: res.File},
		{Label: "Rows read", Value: strconv.Itoa(res.RowsRead)},
		{Label: "Rows saved", Value: strconv.Itoa(res.RowsSaved)},
		{Label: "Rows dropped", Value: strconv.Itoa(len(res.Dropped))},
	}
	if res.Duplicates > 0 {
		rows = append(rows, cli.SummaryRow{Label: "Duplicate rows", Value: strconv.Itoa(res.Duplicates)})
	}
	if len(res.Backfilled) > 0 {
		rows = append(rows, cli.SummaryRow{Label: "Clients backfilled", Value: strconv.Itoa(len(res.Backfilled))})
	}
	fmt.Fprintln(os.Stdout, cli.RenderSummary(title, rows))

	if len(res.Dropped) > 0 {
		slog.Warn("Rows were dropped during ingest", "file", res.File, "count", len(res.Dropped))
	}
}
