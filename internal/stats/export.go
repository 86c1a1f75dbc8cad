package stats

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/pcormier/vidwatch/internal/metrics"
	"github.com/pcormier/vidwatch/internal/storage"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Exporter serializes aggregate ranges to flat formats. Purely a
// projection; no store mutation.
type Exporter struct {
	store storage.Store
}

// NewExporter creates an exporter.
func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// Export renders the aggregates in [startDate, endDate] as CSV or
// JSON and returns the payload with its content type. Errors are
// phrased for humans; this is the one path where they surface.
func (e *Exporter) Export(ctx context.Context, format, startDate, endDate string) ([]byte, string, error) {
	if format != FormatCSV && format != FormatJSON {
		return nil, "", fmt.Errorf("unsupported export format %q: expected %q or %q", format, FormatCSV, FormatJSON)
	}
	if _, err := storage.ParseDate(startDate); err != nil {
		return nil, "", fmt.Errorf("invalid start date %q: expected YYYY-MM-DD", startDate)
	}
	if _, err := storage.ParseDate(endDate); err != nil {
		return nil, "", fmt.Errorf("invalid end date %q: expected YYYY-MM-DD", endDate)
	}

	records, err := e.store.Aggregates().ListRange(ctx, startDate, endDate)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read aggregates for %s..%s: %w", startDate, endDate, err)
	}

	// The store returns records in arbitrary order; sort by composite
	// key for a stable flat representation.
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key() < records[j].Key()
	})

	metrics.ExportRequests.WithLabelValues(format).Inc()

	switch format {
	case FormatCSV:
		payload, err := renderCSV(records)
		return payload, "text/csv", err
	default:
		payload, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode export: %w", err)
		}
		return payload, "application/json", nil
	}
}

func renderCSV(records []storage.DailyAggregate) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"Date", "Platform", "Category", "Watch Time (minutes)", "Count"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}

	for _, record := range records {
		minutes := float64(record.WatchMs) / 60000.0
		row := []string{
			record.Date,
			string(record.Platform),
			string(record.Category),
			strconv.FormatFloat(minutes, 'f', 2, 64),
			strconv.FormatInt(record.Count, 10),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}
	return buf.Bytes(), nil
}
