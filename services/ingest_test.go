package services

import (
	"context"
	"errors"
	"testing"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/storage"
	"ghent-immo-scraper/utils"
)

type stubSourceStore struct {
	sources []models.Source
}

func (s *stubSourceStore) SeedSources(_ context.Context, src []models.Source) ([]models.Source, error) {
	return src, nil
}

func (s *stubSourceStore) ListSources(context.Context) ([]models.Source, error) {
	return s.sources, nil
}

type stubFetcher struct {
	items []models.Listing
	err   error
}

func (f *stubFetcher) Fetch(context.Context, models.Source) ([]models.Listing, error) {
	return f.items, f.err
}

// stubResolver hands each slug its own fetcher.
type stubResolver struct {
	fetchers map[string]fetch.Fetcher
}

func (r *stubResolver) Resolve(src models.Source) (fetch.Fetcher, error) {
	f, ok := r.fetchers[src.Slug]
	if !ok {
		return nil, errors.New("no fetcher for " + src.Slug)
	}
	return f, nil
}

func source(id int64, slug string) models.Source {
	return models.Source{
		ID:      id,
		Slug:    slug,
		BaseURL: "https://" + slug + ".be",
		Config:  models.SourceConfig{Strategy: models.StrategyEraAPI},
	}
}

func item(sourceID int64, externalID string, price int) models.Listing {
	return models.Listing{
		SourceID:     sourceID,
		ExternalID:   externalID,
		URL:          "https://example.be/woning/" + externalID,
		Title:        "Woning " + externalID,
		Price:        price,
		Municipality: "Gent",
	}
}

func newIngestor(resolver Resolver, sources storage.SourceStore, store storage.ListingStore) *Ingestor {
	logger := utils.NewTestLogger()
	return NewIngestor(resolver, NewFilter(450000, 600000, logger), sources, store, 0, logger)
}

func TestRunIsIdempotent(t *testing.T) {
	items := []models.Listing{
		item(1, "a", 500000),
		item(1, "b", 460000),
	}
	resolver := &stubResolver{fetchers: map[string]fetch.Fetcher{"era": &stubFetcher{items: items}}}
	sources := &stubSourceStore{sources: []models.Source{source(1, "era")}}
	store := storage.NewMemory()
	ing := newIngestor(resolver, sources, store)

	first, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if r := first["era"]; r.Added != 2 || r.Updated != 0 {
		t.Errorf("first pass: %+v, want added=2 updated=0", r)
	}

	stored := store.Get(1, "a")
	if stored == nil {
		t.Fatal("listing a not stored")
	}
	firstSeen := stored.FirstSeenAt

	second, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if r := second["era"]; r.Added != 0 || r.Updated != 2 {
		t.Errorf("second pass: %+v, want added=0 updated=2", r)
	}

	stored = store.Get(1, "a")
	if !stored.FirstSeenAt.Equal(firstSeen) {
		t.Error("firstSeenAt must never advance")
	}
	if !stored.LastSeenAt.After(firstSeen) && !stored.LastSeenAt.Equal(firstSeen) {
		t.Error("lastSeenAt must advance with the pass")
	}
}

func TestRunLeavesSoftDeletedUntouched(t *testing.T) {
	resolver := &stubResolver{fetchers: map[string]fetch.Fetcher{
		"era": &stubFetcher{items: []models.Listing{item(1, "gone", 500000)}},
	}}
	sources := &stubSourceStore{sources: []models.Source{source(1, "era")}}
	store := storage.NewMemory()
	ing := newIngestor(resolver, sources, store)

	if _, err := ing.Run(context.Background()); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	deletedAt := store.Get(1, "gone").LastSeenAt
	store.SoftDelete(1, "gone", deletedAt)
	oldTitle := store.Get(1, "gone").Title

	results, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r := results["era"]; r.Added != 0 || r.Updated != 0 {
		t.Errorf("results: %+v, want zero counts for a soft-deleted row", r)
	}

	row := store.Get(1, "gone")
	if row.DeletedAt == nil {
		t.Fatal("row must stay soft-deleted")
	}
	if row.Title != oldTitle || !row.LastSeenAt.Equal(deletedAt) {
		t.Error("soft-deleted row must not be touched")
	}
}

func TestRunIsolatesSourceFailures(t *testing.T) {
	resolver := &stubResolver{fetchers: map[string]fetch.Fetcher{
		"broken":  &stubFetcher{err: errors.New("site down")},
		"healthy": &stubFetcher{items: []models.Listing{item(2, "ok", 500000)}},
	}}
	sources := &stubSourceStore{sources: []models.Source{source(1, "broken"), source(2, "healthy")}}
	store := storage.NewMemory()
	ing := newIngestor(resolver, sources, store)

	results, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r := results["broken"]; r.Added != 0 || r.Updated != 0 {
		t.Errorf("broken source: %+v, want zero counts", r)
	}
	if r := results["healthy"]; r.Added != 1 {
		t.Errorf("healthy source: %+v, want added=1", r)
	}
}

func TestRunUnknownStrategyYieldsZeroCounts(t *testing.T) {
	resolver := &stubResolver{fetchers: map[string]fetch.Fetcher{}}
	sources := &stubSourceStore{sources: []models.Source{source(1, "mystery")}}
	ing := newIngestor(resolver, sources, storage.NewMemory())

	results, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r := results["mystery"]; r.Added != 0 || r.Updated != 0 {
		t.Errorf("results: %+v, want zero counts", r)
	}
}

func TestRunAbortsSourceOnStoreError(t *testing.T) {
	resolver := &stubResolver{fetchers: map[string]fetch.Fetcher{
		"era": &stubFetcher{items: []models.Listing{
			item(1, "a", 500000),
			item(1, "b", 500000),
		}},
	}}
	sources := &stubSourceStore{sources: []models.Source{source(1, "era")}}
	store := storage.NewMemory()
	store.FailWrites(true)
	ing := newIngestor(resolver, sources, store)

	results, err := ing.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if r := results["era"]; r.Added != 0 || r.Updated != 0 {
		t.Errorf("results: %+v, want zero counts after store failure", r)
	}
	if store.Len() != 0 {
		t.Errorf("store rows = %d, want 0", store.Len())
	}
}

func TestMunicipalityFallsBackToTitleTail(t *testing.T) {
	l := item(1, "x", 500000)
	l.Municipality = "   "
	l.Title = "Prachtige woning te Gentbrugge"

	resolver := &stubResolver{fetchers: map[string]fetch.Fetcher{
		"era": &stubFetcher{items: []models.Listing{l}},
	}}
	sources := &stubSourceStore{sources: []models.Source{source(1, "era")}}
	store := storage.NewMemory()
	ing := newIngestor(resolver, sources, store)

	if _, err := ing.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	row := store.Get(1, "x")
	if row == nil || row.Municipality != "Gentbrugge" {
		t.Fatalf("municipality = %v, want title tail Gentbrugge", row)
	}
}
