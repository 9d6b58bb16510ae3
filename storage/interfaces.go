package storage

import (
	"context"
	"time"

	"ghent-immo-scraper/models"
)

// UpsertOutcome tells the reconciliation engine what happened to one
// candidate listing.
type UpsertOutcome int

const (
	// UpsertInserted: first sighting of this (source, external id).
	UpsertInserted UpsertOutcome = iota
	// UpsertUpdated: existing active record refreshed.
	UpsertUpdated
	// UpsertSkippedDeleted: record is soft-deleted; left untouched.
	UpsertSkippedDeleted
	// UpsertNoop: a concurrent pass inserted the same key first.
	UpsertNoop
)

// SourceStore provides the configured sources.
type SourceStore interface {
	// SeedSources writes the catalogue, keyed by slug, and returns the
	// sources with their store-assigned ids.
	SeedSources(ctx context.Context, sources []models.Source) ([]models.Source, error)
	// ListSources returns all configured sources in stable (id) order.
	ListSources(ctx context.Context) ([]models.Source, error)
}

// ListingStore is the narrow write surface the reconciliation engine gets.
// The soft-delete marker is read inside Upsert and never written here.
type ListingStore interface {
	Upsert(ctx context.Context, listing models.Listing, now time.Time) (UpsertOutcome, error)
}

// ListingReader serves the pass report and the CSV export.
type ListingReader interface {
	// FetchActive returns all non-soft-deleted listings ordered by id.
	FetchActive(ctx context.Context) ([]*models.StoredListing, error)
}
