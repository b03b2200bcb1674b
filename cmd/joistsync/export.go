package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crivera/joistsync/internal/cli"
	"github.com/crivera/joistsync/internal/config"
	"github.com/crivera/joistsync/internal/report"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export CSV extracts from the ingested data",
	}
	cmd.AddCommand(exportEmailsCmd())
	return cmd
}

func exportEmailsCmd() *cobra.Command {
	sets := make([]string, 0, len(report.Sets()))
	for _, s := range report.Sets() {
		sets = append(sets, string(s))
	}

	cmd := &cobra.Command{
		Use:   "emails [set]",
		Short: "Export client email lists and email data-quality extracts",
		Long: fmt.Sprintf(`Export one email extract as CSV, or every extract when no set is given.

Available sets: %s

customers, leads and all are outreach lists restricted to valid,
deduplicated addresses; no-email, issues and multiple list the client
rows those extracts exclude, for manual cleanup.`, strings.Join(sets, ", ")),
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: sets,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			dir = config.ExpandPath(dir)

			store, err := initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			exporter := report.NewExporter(store)

			selected := report.Sets()
			if len(args) == 1 {
				selected = []report.Set{report.Set(args[0])}
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}

			for _, set := range selected {
				path := filepath.Join(dir, fmt.Sprintf("emails_%s.csv", set))
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", path, err)
				}
				n, err := exporter.ExportEmails(cmd.Context(), set, f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return fmt.Errorf("failed to export %s: %w", set, err)
				}
				fmt.Fprintln(os.Stdout, cli.FormatSuccess(fmt.Sprintf("%s: %d rows -> %s", set, n, path)))
			}
			return nil
		},
	}
	cmd.Flags().String("dir", ".", "directory to write the CSV files into")
	return cmd
}
