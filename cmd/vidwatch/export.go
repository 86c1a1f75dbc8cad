package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pcormier/vidwatch/internal/config"
	"github.com/pcormier/vidwatch/internal/stats"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportStart  string
	exportEnd    string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export daily aggregates",
	Long:  `Export daily aggregates in a date range as CSV or JSON, to stdout or a file.`,
	Example: `  vidwatch export --format csv --start 2026-08-01 --end 2026-08-28
  vidwatch export --format json -o aggregates.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", stats.FormatCSV, "Export format: csv or json")
	exportCmd.Flags().StringVar(&exportStart, "start", "", "Range start date (YYYY-MM-DD, default 30 days ago)")
	exportCmd.Flags().StringVar(&exportEnd, "end", "", "Range end date (YYYY-MM-DD, default today)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	now := time.Now().In(cfg.Location())
	if exportStart == "" {
		exportStart = now.AddDate(0, 0, -29).Format(storage.DateLayout)
	}
	if exportEnd == "" {
		exportEnd = now.Format(storage.DateLayout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payload, _, err := stats.NewExporter(store).Export(ctx, exportFormat, exportStart, exportEnd)
	if err != nil {
		return err
	}

	if exportOutput == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	if err := os.WriteFile(exportOutput, payload, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	fmt.Fprintf(os.Stderr, "Exported %s..%s to %s\n", exportStart, exportEnd, exportOutput)
	return nil
}
