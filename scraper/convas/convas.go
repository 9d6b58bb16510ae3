// Package convas fetches listings from the Zabun CMS estates API used by
// Convas: a POST search endpoint paginated with from/size in the body.
package convas

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

const (
	apiURL   = "https://api.cms.zabun.be/sites/725b5de3-18ab-4b35-9d48-207bb3bec376/estates"
	siteID   = "725b5de3-18ab-4b35-9d48-207bb3bec376"
	pageSize = 20
)

type searchBody struct {
	Query      query        `json:"query"`
	Sort       []sortClause `json:"sort"`
	Pagination pagination   `json:"pagination"`
}

type query struct {
	Terms map[string][]any     `json:"terms"`
	Range map[string]priceBand `json:"range"`
}

type priceBand struct {
	Gte int `json:"gte"`
	Lte int `json:"lte"`
}

type sortClause struct {
	Field     string `json:"field"`
	Values    []int  `json:"values,omitempty"`
	Direction string `json:"direction,omitempty"`
}

type pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type apiResponse struct {
	Total *struct {
		Value int `json:"value"`
	} `json:"total"`
	Results []result `json:"results"`
}

type result struct {
	ID       int     `json:"id"`
	Children []child `json:"children"`
}

type child struct {
	General *struct {
		Title *struct {
			NL string `json:"nl"`
			FR string `json:"fr"`
		} `json:"title"`
		Price *struct {
			Value      int `json:"value"`
			TotalPrice int `json:"totalPrice"`
		} `json:"price"`
		BedroomCount *int `json:"bedroomCount"`
	} `json:"general"`
	Dimensions *struct {
		AreaBuild  *float64 `json:"areaBuild"`
		AreaGround *float64 `json:"areaGround"`
	} `json:"dimensions"`
	Pictures []struct {
		File string `json:"file"`
	} `json:"pictures"`
}

// Fetcher pulls the full result set page by page.
type Fetcher struct {
	client *http.Client
	opts   fetch.Options
	logger *utils.Logger

	// endpoint is swapped out in tests.
	endpoint string
}

func New(client *http.Client, opts fetch.Options, logger *utils.Logger) *Fetcher {
	return &Fetcher{client: client, opts: opts, logger: logger, endpoint: apiURL}
}

func (f *Fetcher) body(from int) searchBody {
	return searchBody{
		Query: query{
			Terms: map[string][]any{
				"children.general.transaction.id": {1, 3},
				"children.general.isRootEstate":   {"true"},
				"children.general.headType.id":    {3},
			},
			Range: map[string]priceBand{
				"children.general.price.value": {Gte: f.opts.PriceMin, Lte: f.opts.PriceMax},
			},
		},
		Sort: []sortClause{
			{Field: "children.general.transaction.id", Values: []int{1, 3, 2, 4, 10, 5, 6}},
			{Field: "children.general.publicationDate", Direction: "DESC"},
		},
		Pagination: pagination{From: from, Size: pageSize},
	}
}

func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	var results []models.Listing
	seen := utils.NewURLSet()
	headers := map[string]string{"x-site": siteID}

	from := 0
	for page := 0; page < f.opts.MaxPages; page++ {
		var resp apiResponse
		if err := fetch.PostJSON(ctx, f.client, f.endpoint, f.body(from), headers, &resp); err != nil {
			return nil, fmt.Errorf("convas: %w", err)
		}

		for _, r := range resp.Results {
			listing, ok := f.resultToListing(r, src)
			if !ok {
				continue
			}
			if !seen.Add(listing.URL) {
				continue
			}
			results = append(results, listing)
		}

		from += pageSize
		if len(resp.Results) < pageSize {
			break
		}
		if resp.Total != nil && from >= resp.Total.Value {
			break
		}
		f.opts.Pace(ctx)
	}

	f.logger.Debug("[%s] convas api yielded %d listings", src.Slug, len(results))
	return results, nil
}

func (f *Fetcher) resultToListing(r result, src models.Source) (models.Listing, bool) {
	var c *child
	for i := range r.Children {
		if r.Children[i].General != nil {
			c = &r.Children[i]
			break
		}
	}
	if c == nil {
		return models.Listing{}, false
	}

	g := c.General
	price := 0
	if g.Price != nil {
		price = g.Price.Value
		if price == 0 {
			price = g.Price.TotalPrice
		}
	}
	if price <= 0 || !f.opts.InBand(price) {
		return models.Listing{}, false
	}

	title := ""
	if g.Title != nil {
		title = g.Title.NL
		if title == "" {
			title = g.Title.FR
		}
	}

	var surface *float64
	hasGarden := false
	if c.Dimensions != nil {
		surface = c.Dimensions.AreaBuild
		hasGarden = c.Dimensions.AreaGround != nil && *c.Dimensions.AreaGround > 0
	}

	var imageURL *string
	if len(c.Pictures) > 0 && c.Pictures[0].File != "" {
		imageURL = &c.Pictures[0].File
	}

	listingURL := normalize.CanonicalURL(fmt.Sprintf("%s/nl/aanbod/%d", src.BaseURL, r.ID))

	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      strconv.Itoa(r.ID),
		URL:             listingURL,
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        g.BedroomCount,
		LivingSurfaceM2: surface,
		HasGarden:       hasGarden,
		Municipality:    "Gent",
		ImageURL:        imageURL,
	}, true
}
