// Package francois fetches listings from the Immo Francois SweepBright
// estates API: a GET endpoint paginated with page/limit and an overall page
// count in the response.
package francois

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

const (
	apiURL   = "https://www.immofrancois.be/ajax/api/sweepbright/estates"
	pageSize = 18
)

var baseParams = url.Values{
	"negotiation": {"sale"},
	"type[]":      {"house"},
	"bedrooms":    {"3"},
	"location[]":  {`{"postal_code":9000,"lat":51.0397129,"lng":3.7141549000597}`},
	"radius":      {"10"},
	"country[]":   {"BE"},
	"limit":       {fmt.Sprintf("%d", pageSize)},
	"sort_type":   {"distance"},
	"sort_method": {"asc"},
	"language":    {"nl"},
}

type apiResponse struct {
	Pages   *int     `json:"pages"`
	Total   *int     `json:"total"`
	Estates []estate `json:"estates"`
}

type estate struct {
	ID    string `json:"id"`
	Price *struct {
		Amount int `json:"amount"`
	} `json:"price"`
	Bedrooms  *int   `json:"bedrooms"`
	DetailURL string `json:"detail_url"`

	DescriptionTitleFormatted string `json:"description_title_formatted"`
	DescriptionTitle          *struct {
		NL string `json:"nl"`
		EN string `json:"en"`
		FR string `json:"fr"`
	} `json:"description_title"`

	Location *struct {
		FormattedAgency string `json:"formatted_agency"`
		City            string `json:"city"`
	} `json:"location"`

	Sizes *struct {
		LiveableArea *struct {
			Size float64 `json:"size"`
		} `json:"liveable_area"`
		PlotArea *struct {
			Size float64 `json:"size"`
		} `json:"plot_area"`
	} `json:"sizes"`

	Images []struct {
		URL     string `json:"url"`
		Ordinal int    `json:"ordinal"`
	} `json:"images"`
}

// Fetcher pulls the full result set page by page.
type Fetcher struct {
	client *http.Client
	opts   fetch.Options
	logger *utils.Logger

	endpoint string
}

func New(client *http.Client, opts fetch.Options, logger *utils.Logger) *Fetcher {
	return &Fetcher{client: client, opts: opts, logger: logger, endpoint: apiURL}
}

func (f *Fetcher) pageURL(page int) string {
	params := url.Values{}
	for k, v := range baseParams {
		params[k] = v
	}
	params.Set("min_budget", fmt.Sprintf("%d", f.opts.PriceMin))
	params.Set("max_budget", fmt.Sprintf("%d", f.opts.PriceMax))
	params.Set("page", fmt.Sprintf("%d", page))
	return f.endpoint + "?" + params.Encode()
}

func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	var results []models.Listing
	seen := utils.NewURLSet()

	page := 1
	totalPages := 1
	for iter := 0; iter < f.opts.MaxPages; iter++ {
		var resp apiResponse
		if err := fetch.GetJSON(ctx, f.client, f.pageURL(page), &resp); err != nil {
			return nil, fmt.Errorf("francois: %w", err)
		}
		if resp.Pages != nil {
			totalPages = *resp.Pages
		}

		for _, e := range resp.Estates {
			listing, ok := f.estateToListing(e, src)
			if !ok {
				continue
			}
			if !seen.Add(listing.URL) {
				continue
			}
			results = append(results, listing)
		}

		if len(resp.Estates) < pageSize {
			break
		}
		page++
		if page > totalPages {
			break
		}
		f.opts.Pace(ctx)
	}

	f.logger.Debug("[%s] sweepbright api yielded %d listings", src.Slug, len(results))
	return results, nil
}

func (f *Fetcher) estateToListing(e estate, src models.Source) (models.Listing, bool) {
	if e.DetailURL == "" {
		return models.Listing{}, false
	}

	price := 0
	if e.Price != nil {
		price = e.Price.Amount
	}
	if price <= 0 || !f.opts.InBand(price) {
		return models.Listing{}, false
	}

	title := e.DescriptionTitleFormatted
	if title == "" && e.DescriptionTitle != nil {
		title = e.DescriptionTitle.NL
		if title == "" {
			title = e.DescriptionTitle.EN
		}
	}
	if title == "" && e.Location != nil {
		title = e.Location.FormattedAgency
	}
	if title == "" {
		title = "Woning"
	}

	var surface *float64
	hasGarden := false
	if e.Sizes != nil {
		if e.Sizes.LiveableArea != nil {
			surface = &e.Sizes.LiveableArea.Size
		}
		hasGarden = e.Sizes.PlotArea != nil && e.Sizes.PlotArea.Size > 0
	}

	var imageURL *string
	if len(e.Images) > 0 {
		images := append([]struct {
			URL     string `json:"url"`
			Ordinal int    `json:"ordinal"`
		}(nil), e.Images...)
		sort.Slice(images, func(i, j int) bool { return images[i].Ordinal < images[j].Ordinal })
		if images[0].URL != "" {
			imageURL = &images[0].URL
		}
	}

	municipality := "Onbekend"
	if e.Location != nil && e.Location.City != "" {
		municipality = e.Location.City
	}

	externalID := e.ID
	if externalID == "" {
		externalID = normalize.ExternalIDFromURL(e.DetailURL)
	}

	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      externalID,
		URL:             normalize.CanonicalURL(e.DetailURL),
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        e.Bedrooms,
		LivingSurfaceM2: surface,
		HasGarden:       hasGarden,
		Municipality:    municipality,
		ImageURL:        imageURL,
	}, true
}
