package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ExportCSV writes a snapshot of all active listings to path for offline
// inspection. The file is replaced atomically-enough for a diagnostic
// artifact: written in full, then closed.
func ExportCSV(ctx context.Context, reader ListingReader, path string) (int, error) {
	listings, err := reader.FetchActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("csv export: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("csv export: mkdir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("csv export: create: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"source_id", "external_id", "url", "title", "price", "bedrooms",
		"living_surface_m2", "has_garden", "municipality", "first_seen_at",
		"last_seen_at",
	}
	if err := w.Write(header); err != nil {
		return 0, fmt.Errorf("csv export: header: %w", err)
	}

	for _, l := range listings {
		bedrooms := ""
		if l.Bedrooms != nil {
			bedrooms = strconv.Itoa(*l.Bedrooms)
		}
		surface := ""
		if l.LivingSurfaceM2 != nil {
			surface = strconv.FormatFloat(*l.LivingSurfaceM2, 'f', -1, 64)
		}
		record := []string{
			strconv.FormatInt(l.SourceID, 10),
			l.ExternalID,
			l.URL,
			l.Title,
			strconv.Itoa(l.Price),
			bedrooms,
			surface,
			strconv.FormatBool(l.HasGarden),
			l.Municipality,
			l.FirstSeenAt.UTC().Format("2006-01-02T15:04:05Z"),
			l.LastSeenAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
		if err := w.Write(record); err != nil {
			return 0, fmt.Errorf("csv export: row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("csv export: flush: %w", err)
	}
	return len(listings), nil
}
