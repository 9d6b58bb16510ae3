package era

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

func testOpts() fetch.Options {
	return fetch.Options{PriceMin: 450000, PriceMax: 600000, MaxPages: 20}
}

func teaser(id int, price string) string {
	return fmt.Sprintf(`<div><h3>Woning %d</h3>`+
		`<a href="/nl/te-koop/gent/woning/%d">bekijk</a>`+
		`<span class="field--price">%s</span>`+
		`<span class="field--bedrooms">3 slaapkamers</span>`+
		`<span class="field--habitable-space">180 m²</span>`+
		`<img src="/images/%d.jpg"/>`+
		`<span class="field--location">Gentbrugge</span></div>`, id, id, price, id)
}

func node(id int, price string) map[string]any {
	return map[string]any{
		"type": "property",
		"id":   fmt.Sprintf("node-%d", id),
		"attributes": map[string]any{
			"teaser": teaser(id, price),
		},
	}
}

// Serves pages of the given sizes and counts requests.
func pagedServer(t *testing.T, pageSizes []int) (*httptest.Server, *int) {
	t.Helper()
	requests := 0
	total := 0
	for _, n := range pageSizes {
		total += n
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		page := requests
		requests++
		var nodes []map[string]any
		if page < len(pageSizes) {
			base := 0
			for i := 0; i < page; i++ {
				base += pageSizes[i]
			}
			for i := 0; i < pageSizes[page]; i++ {
				nodes = append(nodes, node(base+i, "€ 500 000"))
			}
		}
		resp := map[string]any{
			"data": nodes,
			"meta": map[string]any{"totalCount": total},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
	return httptest.NewServer(http.HandlerFunc(handler)), &requests
}

func TestFetchPaginationTermination(t *testing.T) {
	srv, requests := pagedServer(t, []int{24, 24, 7})
	defer srv.Close()

	f := New(srv.Client(), testOpts(), utils.NewTestLogger())
	src := models.Source{
		ID:      1,
		Slug:    "era-wonen-gent",
		BaseURL: "https://www.era.be",
		Config:  models.SourceConfig{Strategy: models.StrategyEraAPI, APIURL: srv.URL + "/jsonapi?pager%5Boffset%5D=0"},
	}

	listings, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if *requests != 3 {
		t.Errorf("requests: got %d, want 3 (no fourth page after the short one)", *requests)
	}
	if len(listings) != 55 {
		t.Errorf("listings: got %d, want 55", len(listings))
	}
}

func TestFetchExtractsTeaserFields(t *testing.T) {
	srv, _ := pagedServer(t, []int{1})
	defer srv.Close()

	f := New(srv.Client(), testOpts(), utils.NewTestLogger())
	src := models.Source{
		ID:      1,
		Slug:    "era-wonen-gent",
		BaseURL: "https://www.era.be",
		Config:  models.SourceConfig{Strategy: models.StrategyEraAPI, APIURL: srv.URL + "/jsonapi"},
	}

	listings, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1", len(listings))
	}

	l := listings[0]
	if l.Title != "Woning 0" {
		t.Errorf("title = %q", l.Title)
	}
	if l.Price != 500000 {
		t.Errorf("price = %d", l.Price)
	}
	if l.Bedrooms == nil || *l.Bedrooms != 3 {
		t.Errorf("bedrooms = %v", l.Bedrooms)
	}
	if l.LivingSurfaceM2 == nil || *l.LivingSurfaceM2 != 180 {
		t.Errorf("surface = %v", l.LivingSurfaceM2)
	}
	if l.URL != "https://www.era.be/nl/te-koop/gent/woning/0" {
		t.Errorf("url = %q", l.URL)
	}
	if l.Municipality != "Gentbrugge" {
		t.Errorf("municipality = %q", l.Municipality)
	}
	if !l.HasGarden {
		t.Error("era results are garden-filtered server-side; HasGarden must be true")
	}
	if l.ImageURL == nil || *l.ImageURL != "https://www.era.be/images/0.jpg" {
		t.Errorf("imageUrl = %v", l.ImageURL)
	}
}

func TestFetchOutOfBandDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"data": []map[string]any{
				node(1, "€ 700 000"),
				node(2, "€ 500 000"),
				node(3, ""),
			},
			"meta": map[string]any{"totalCount": 3},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	f := New(srv.Client(), testOpts(), utils.NewTestLogger())
	src := models.Source{
		ID:      1,
		Slug:    "era-wonen-gent",
		BaseURL: "https://www.era.be",
		Config:  models.SourceConfig{Strategy: models.StrategyEraAPI, APIURL: srv.URL},
	}

	listings, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1 (out-of-band and priceless dropped)", len(listings))
	}
	if listings[0].ExternalID != "node-2" {
		t.Errorf("externalId = %q", listings[0].ExternalID)
	}
}

func TestFetchNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer srv.Close()

	f := New(srv.Client(), testOpts(), utils.NewTestLogger())
	src := models.Source{
		ID:      1,
		Slug:    "era-wonen-gent",
		BaseURL: "https://www.era.be",
		Config:  models.SourceConfig{Strategy: models.StrategyEraAPI, APIURL: srv.URL},
	}

	if _, err := f.Fetch(context.Background(), src); err == nil {
		t.Fatal("expected fetch error on 403")
	}
}
