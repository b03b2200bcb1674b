package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/crivera/joistsync/internal/cli"
	"github.com/crivera/joistsync/internal/config"
	"github.com/crivera/joistsync/internal/report"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Write monthly activity statistics and charts",
		Long: `Aggregate the ingested data into per-month statistics (clients joined,
estimates and invoices issued, invoice totals, top clients by invoice
value) and write them as CSV files, optionally with year-over-year
charts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			dir = config.ExpandPath(dir)
			withCharts, _ := cmd.Flags().GetBool("charts")
			years, _ := cmd.Flags().GetIntSlice("years")

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := report.NewExporter(store).CollectStats(cmd.Context())
			if err != nil {
				return err
			}
			if err := stats.WriteCSV(dir); err != nil {
				return err
			}
			if withCharts {
				if err := stats.RenderCharts(dir, years); err != nil {
					return err
				}
			}

			rows := []cli.SummaryRow{
				{Label: "Months of activity", Value: strconv.Itoa(len(stats.InvoiceTotals))},
				{Label: "Output directory", Value: dir},
				{Label: "Charts", Value: strconv.FormatBool(withCharts)},
			}
			fmt.Fprintln(os.Stdout, cli.RenderSummary("Monthly statistics", rows))
			return nil
		},
	}
	cmd.Flags().String("dir", "stats", "directory to write statistics into")
	cmd.Flags().Bool("charts", false, "also render PNG charts")
	cmd.Flags().IntSlice("years", nil, "years to chart (default: every year with data)")
	return cmd
}
