// Package era fetches listings from the ERA jsonapi property index. The API
// paginates with a pager[offset] parameter and embeds most card fields in a
// teaser HTML fragment per property.
package era

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

const pageSize = 24

var (
	titleRe        = regexp.MustCompile(`(?i)<h3[^>]*>([^<]+)</h3>`)
	hrefRe         = regexp.MustCompile(`href="(/nl/te-koop/[^"]+)"`)
	priceRe        = regexp.MustCompile(`field--price[^>]*>([^<]+)<`)
	bedroomsRe     = regexp.MustCompile(`field--bedrooms[^>]*>([^<]+)<`)
	surfaceRe      = regexp.MustCompile(`field--habitable-space[^>]*>([^<]+)<`)
	imageRe        = regexp.MustCompile(`src="(/[^"]+)"`)
	municipalityRe = regexp.MustCompile(`(?i)field--(?:location|locality|city)[^>]*>([^<]+)<`)
	locClassRe     = regexp.MustCompile(`(?i)class="[^"]*location[^"]*"[^>]*>([^<]+)<`)
)

type apiResponse struct {
	Data []propertyNode `json:"data"`
	Meta struct {
		ResultsCount *int `json:"resultsCount"`
		TotalCount   *int `json:"totalCount"`
	} `json:"meta"`
}

type propertyNode struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes struct {
		Teaser string `json:"teaser"`
		// video_data is an object on current payloads but was historically
		// an array; keep it raw and decode best-effort.
		VideoData json.RawMessage `json:"video_data"`
	} `json:"attributes"`
}

type videoData struct {
	Title       string `json:"title"`
	Price       string `json:"price"`
	PropertyURL string `json:"property_url"`
	PropertyID  string `json:"property_id"`
}

// Fetcher pulls the full result set page by page.
type Fetcher struct {
	client *http.Client
	opts   fetch.Options
	logger *utils.Logger
}

func New(client *http.Client, opts fetch.Options, logger *utils.Logger) *Fetcher {
	return &Fetcher{client: client, opts: opts, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	var results []models.Listing
	seen := utils.NewURLSet()

	offset := 0
	for page := 0; page < f.opts.MaxPages; page++ {
		pageURL, err := urlWithOffset(src.Config.APIURL, offset)
		if err != nil {
			return nil, fmt.Errorf("era: %w", err)
		}

		var resp apiResponse
		if err := fetch.GetJSON(ctx, f.client, pageURL, &resp); err != nil {
			return nil, fmt.Errorf("era: %w", err)
		}

		for _, node := range resp.Data {
			listing, ok := f.nodeToListing(node, src)
			if !ok {
				continue
			}
			if !seen.Add(listing.URL) {
				continue
			}
			results = append(results, listing)
		}

		offset += pageSize
		if len(resp.Data) < pageSize {
			break
		}
		if resp.Meta.TotalCount != nil && offset >= *resp.Meta.TotalCount {
			break
		}
		f.opts.Pace(ctx)
	}

	f.logger.Debug("[%s] era api yielded %d listings", src.Slug, len(results))
	return results, nil
}

func urlWithOffset(apiURL string, offset int) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("parse api url: %w", err)
	}
	q := u.Query()
	q.Set("pager[offset]", fmt.Sprintf("%d", offset))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// nodeToListing extracts the card fields out of the teaser fragment, with
// video_data taking precedence when present.
func (f *Fetcher) nodeToListing(node propertyNode, src models.Source) (models.Listing, bool) {
	teaser := node.Attributes.Teaser

	var vd videoData
	if len(node.Attributes.VideoData) > 0 {
		// Array payloads fail to decode into the struct; ignore them.
		_ = json.Unmarshal(node.Attributes.VideoData, &vd)
	}

	propertyPath := vd.PropertyURL
	if propertyPath == "" {
		propertyPath = firstGroup(hrefRe, teaser)
	}
	if propertyPath == "" {
		return models.Listing{}, false
	}
	listingURL := normalize.CanonicalURL(normalize.AbsoluteURL(src.BaseURL, propertyPath))

	priceText := vd.Price
	if priceText == "" {
		priceText = firstGroup(priceRe, teaser)
	}
	price := normalize.ParsePrice(priceText)
	if price <= 0 || !f.opts.InBand(price) {
		return models.Listing{}, false
	}

	title := vd.Title
	if title == "" {
		title = firstGroup(titleRe, teaser)
	}

	externalID := vd.PropertyID
	if externalID == "" {
		externalID = node.ID
	}

	municipality := strings.TrimSpace(firstGroup(municipalityRe, teaser))
	if municipality == "" {
		municipality = strings.TrimSpace(firstGroup(locClassRe, teaser))
	}
	if municipality == "" {
		municipality = "Gent"
	}

	var imageURL *string
	if path := firstGroup(imageRe, teaser); path != "" {
		decoded := strings.ReplaceAll(path, "&amp;", "&")
		abs := normalize.AbsoluteURL(src.BaseURL, decoded)
		imageURL = &abs
	}

	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      externalID,
		URL:             listingURL,
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        normalize.ParseBedrooms(firstGroup(bedroomsRe, teaser)),
		LivingSurfaceM2: normalize.ParseSurface(firstGroup(surfaceRe, teaser)),
		// The API query already filters on outside=garden.
		HasGarden:    true,
		Municipality: municipality,
		ImageURL:     imageURL,
	}, true
}

func firstGroup(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
