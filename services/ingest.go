package services

import (
	"context"
	"strings"
	"time"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/storage"
	"ghent-immo-scraper/utils"
)

// Resolver maps a source to its fetch strategy. Satisfied by
// scraper.Registry.
type Resolver interface {
	Resolve(src models.Source) (fetch.Fetcher, error)
}

// Ingestor runs one full pass: every source fetched sequentially, filtered
// and reconciled into the store. Source failures are isolated; a broken site
// never costs the other sources their pass.
type Ingestor struct {
	registry    Resolver
	filter      *Filter
	sources     storage.SourceStore
	listings    storage.ListingStore
	logger      *utils.Logger
	sourceDelay time.Duration
}

func NewIngestor(registry Resolver, filter *Filter, sources storage.SourceStore,
	listings storage.ListingStore, sourceDelay time.Duration, logger *utils.Logger) *Ingestor {
	return &Ingestor{
		registry:    registry,
		filter:      filter,
		sources:     sources,
		listings:    listings,
		logger:      logger,
		sourceDelay: sourceDelay,
	}
}

// Run executes one pass over all configured sources and returns the
// per-source counts keyed by slug.
func (in *Ingestor) Run(ctx context.Context) (map[string]models.SourceResult, error) {
	sources, err := in.sources.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	results := make(map[string]models.SourceResult, len(sources))
	for i, src := range sources {
		if i > 0 {
			in.pace(ctx)
		}
		if ctx.Err() != nil {
			return results, ctx.Err()
		}
		results[src.Slug] = in.runSource(ctx, src)
		r := results[src.Slug]
		in.logger.Info("[%s] added=%d updated=%d", src.Slug, r.Added, r.Updated)
	}
	return results, nil
}

// runSource fetches, filters and reconciles one source. Every failure mode
// yields zero counts for this source and leaves the rest of the pass alone.
func (in *Ingestor) runSource(ctx context.Context, src models.Source) models.SourceResult {
	fetcher, err := in.registry.Resolve(src)
	if err != nil {
		in.logger.Error("[%s] %v", src.Slug, err)
		return models.SourceResult{}
	}

	items, err := fetcher.Fetch(ctx, src)
	if err != nil {
		in.logger.Error("[%s] fetch failed: %v", src.Slug, err)
		return models.SourceResult{}
	}
	in.logger.Info("[%s] fetched %d candidates", src.Slug, len(items))

	items = in.filter.Apply(items)
	return in.reconcile(ctx, src, items)
}

// reconcile upserts the accepted listings under one pass timestamp. A store
// error aborts this source's remaining items; counts so far stand.
func (in *Ingestor) reconcile(ctx context.Context, src models.Source, items []models.Listing) models.SourceResult {
	var result models.SourceResult
	now := time.Now().UTC()

	for _, item := range items {
		item.Municipality = municipalityOrTitleTail(item.Municipality, item.Title)

		outcome, err := in.listings.Upsert(ctx, item, now)
		if err != nil {
			in.logger.Error("[%s] upsert %s: %v", src.Slug, item.URL, err)
			return result
		}
		switch outcome {
		case storage.UpsertInserted:
			result.Added++
		case storage.UpsertUpdated:
			result.Updated++
		case storage.UpsertSkippedDeleted:
			in.logger.Debug("[%s] %s is soft-deleted, leaving untouched", src.Slug, item.URL)
		case storage.UpsertNoop:
			in.logger.Debug("[%s] %s raced a concurrent pass", src.Slug, item.URL)
		}
	}
	return result
}

// municipalityOrTitleTail falls back to the last whitespace-delimited token
// of the title when a source produced no municipality at all.
func municipalityOrTitleTail(municipality, title string) string {
	if m := strings.TrimSpace(municipality); m != "" {
		return m
	}
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return "Onbekend"
	}
	return fields[len(fields)-1]
}

func (in *Ingestor) pace(ctx context.Context) {
	if in.sourceDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(in.sourceDelay):
	}
}
