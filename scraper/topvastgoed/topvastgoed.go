// Package topvastgoed fetches listings from the Top Vastgoed WordPress site
// through its admin-ajax property filter, which returns HTML card fragments.
package topvastgoed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

const (
	ajaxPath = "/wp-admin/admin-ajax.php"
	ajaxURL  = "https://topvastgoed.be" + ajaxPath
)

var (
	cardLinkRe     = regexp.MustCompile(`(?i)<a\s+href="(https://topvastgoed\.be/property/\d+/)"`)
	municipalityRe = regexp.MustCompile(`(?i)Woning in (.+)`)
)

// Fetcher pulls the full result set page by page.
type Fetcher struct {
	client *http.Client
	opts   fetch.Options
	logger *utils.Logger

	// endpoint is swapped out in tests.
	endpoint string
}

func New(client *http.Client, opts fetch.Options, logger *utils.Logger) *Fetcher {
	return &Fetcher{client: client, opts: opts, logger: logger, endpoint: ajaxURL}
}

func (f *Fetcher) formBody(page int) string {
	params := url.Values{
		"action":              {"fiter_properties_query"},
		"dataArray[0][name]":  {"search"},
		"dataArray[0][value]": {""},
		"dataArray[1][name]":  {"category[]"},
		"dataArray[1][value]": {"Woning"},
		"dataArray[2][name]":  {"slaapkamers"},
		"dataArray[2][value]": {"0"},
		"dataArray[3][name]":  {"minprice"},
		"dataArray[3][value]": {fmt.Sprintf("%d", f.opts.PriceMin)},
		"dataArray[4][name]":  {"maxprice"},
		"dataArray[4][value]": {fmt.Sprintf("%d", f.opts.PriceMax)},
		"dataArray[5][name]":  {"sort"},
		"dataArray[5][value]": {"newest"},
		"base":                {""},
	}
	return params.Encode() + fmt.Sprintf("&page=%d", page)
}

func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	var results []models.Listing
	seen := utils.NewURLSet()
	headers := map[string]string{
		"Accept":           "text/html, */*; q=0.01",
		"Origin":           src.BaseURL,
		"Referer":          src.BaseURL + "/te-koop/",
		"X-Requested-With": "XMLHttpRequest",
	}

	for page := 1; page <= f.opts.MaxPages; page++ {
		body, status, err := fetch.PostForm(ctx, f.client, f.endpoint, f.formBody(page), headers)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("topvastgoed: %w", err)
			}
			f.logger.Warn("[%s] page %d fetch failed, stopping: %v", src.Slug, page, err)
			break
		}
		if status < 200 || status > 299 {
			// The filter endpoint answers non-2xx past the last page.
			if page == 1 {
				return nil, fmt.Errorf("topvastgoed: status %d on first page", status)
			}
			break
		}

		items := f.parseCards(string(body), src)
		newCount := 0
		for _, listing := range items {
			if !seen.Add(listing.URL) {
				continue
			}
			results = append(results, listing)
			newCount++
		}
		f.logger.Debug("[%s] page %d: %d cards, %d new", src.Slug, page, len(items), newCount)
		if len(items) == 0 || newCount == 0 {
			break
		}
		f.opts.Pace(ctx)
	}

	return results, nil
}

// parseCards splits the fragment on the property links and reads each card's
// fields from the slice up to the next link.
func (f *Fetcher) parseCards(html string, src models.Source) []models.Listing {
	matches := cardLinkRe.FindAllStringSubmatchIndex(html, -1)
	var listings []models.Listing

	for i, m := range matches {
		start := m[0]
		end := len(html)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		cardURL := html[m[2]:m[3]]
		listing, ok := f.cardToListing(html[start:end], cardURL, src)
		if !ok {
			continue
		}
		listings = append(listings, listing)
	}
	return listings
}

func (f *Fetcher) cardToListing(block, cardURL string, src models.Source) (models.Listing, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(block))
	if err != nil {
		return models.Listing{}, false
	}

	title := strings.TrimSpace(doc.Find(".pro-list-title").First().Text())
	if title == "" {
		title = "Woning"
	}

	price := normalize.ParsePrice(doc.Find(".pro-list-price").First().Text())
	if price <= 0 || !f.opts.InBand(price) {
		return models.Listing{}, false
	}

	var bedrooms *int
	if n := normalize.LeadingInt(doc.Find(`[class*="info-rooms"]`).First().Text()); n != nil {
		bedrooms = n
	}
	surface := normalize.ParseSurface(doc.Find(`[class*="info-area"]`).First().Text())
	ground := normalize.ParseSurface(doc.Find(`[class*="info-groundarea"]`).First().Text())
	hasGarden := ground != nil && *ground > 0

	var imageURL *string
	doc.Find("img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if srcAttr, ok := s.Attr("src"); ok && strings.HasPrefix(srcAttr, "https:") {
			imageURL = &srcAttr
			return false
		}
		return true
	})

	municipality := "Onbekend"
	if m := municipalityRe.FindStringSubmatch(title); m != nil {
		municipality = strings.TrimSpace(m[1])
	}

	u := normalize.CanonicalURL(cardURL)
	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      normalize.ExternalIDFromURL(u),
		URL:             u,
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        bedrooms,
		LivingSurfaceM2: surface,
		HasGarden:       hasGarden,
		Municipality:    municipality,
		ImageURL:        imageURL,
	}, true
}
