package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/pcormier/vidwatch/internal/config"
	"github.com/pcormier/vidwatch/internal/stats"
	"github.com/pcormier/vidwatch/internal/storage"
	"github.com/pcormier/vidwatch/internal/track"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print watch-time rollups",
	Long:  `Print today / yesterday / 7-day / 30-day watch-time rollups and the per-platform breakdown from the aggregate store.`,
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := openStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	categories := statCategories(cfg)
	summarizer := stats.NewSummarizer(store, categories, track.RealClock{}, cfg.Location())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	summary, err := summarizer.Summarize(ctx)
	if err != nil {
		return fmt.Errorf("failed to build summary: %w", err)
	}

	heading := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgWhite, color.Bold)

	printBucketSet := func(title string, set stats.BucketSet) {
		heading.Println(title)
		for _, category := range categories {
			bucket := set[category]
			label.Printf("  %-10s", category)
			fmt.Printf("%8.2f min  %4d videos\n", float64(bucket.WatchMs)/60000.0, bucket.Count)
		}
	}

	printBucketSet("Today", summary.Today)
	printBucketSet("Yesterday", summary.Yesterday)
	printBucketSet("Last 7 days", summary.Last7Days)
	printBucketSet("Last 30 days", summary.Last30Days)

	if len(summary.Platforms) > 0 {
		heading.Println("Platforms (30 days)")
		platforms := make([]string, 0, len(summary.Platforms))
		for platform := range summary.Platforms {
			platforms = append(platforms, string(platform))
		}
		sort.Strings(platforms)
		for _, platform := range platforms {
			set := summary.Platforms[storage.Platform(platform)]
			var watchMs, count int64
			for _, bucket := range set {
				watchMs += bucket.WatchMs
				count += bucket.Count
			}
			label.Printf("  %-12s", platform)
			fmt.Printf("%8.2f min  %4d videos\n", float64(watchMs)/60000.0, count)
		}
	}

	return nil
}
