// Package immoweb fetches listings from the Immoweb search page over plain
// HTTP. Result data lives in :classified='{...}' JSON attributes on current
// markup; a DOM-card fallback covers the newer markup without them.
package immoweb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

// browserHeaders mimic a real browser; the site sits behind DataDome and
// answers bare clients with 403.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-GB,en;q=0.9,nl;q=0.8",
	"Cache-Control":             "max-age=0",
	"Sec-Ch-Ua":                 `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
	"Sec-Ch-Ua-Mobile":          "?0",
	"Sec-Ch-Ua-Platform":        `"macOS"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
}

const classifiedTrigger = ":classified='"

type classified struct {
	ID       int `json:"id"`
	Property struct {
		Type                string   `json:"type"`
		Subtype             string   `json:"subtype"`
		Title               string   `json:"title"`
		BedroomCount        *int     `json:"bedroomCount"`
		NetHabitableSurface *float64 `json:"netHabitableSurface"`
		Location            struct {
			Locality   string `json:"locality"`
			PostalCode string `json:"postalCode"`
		} `json:"location"`
	} `json:"property"`
	Transaction struct {
		Type string `json:"type"`
		Sale *struct {
			Price *int `json:"price"`
		} `json:"sale"`
	} `json:"transaction"`
	Price *struct {
		MainValue     *int `json:"mainValue"`
		MinRangeValue *int `json:"minRangeValue"`
		MaxRangeValue *int `json:"maxRangeValue"`
	} `json:"price"`
	Media *struct {
		Pictures []struct {
			LargeURL string `json:"largeUrl"`
		} `json:"pictures"`
	} `json:"media"`
}

// Fetcher pulls one pre-filtered search page; the search URL carries the
// price band and postal codes so there is no pagination to walk.
type Fetcher struct {
	client *http.Client
	opts   fetch.Options
	logger *utils.Logger
}

func New(client *http.Client, opts fetch.Options, logger *utils.Logger) *Fetcher {
	return &Fetcher{client: client, opts: opts, logger: logger}
}

func (f *Fetcher) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("immoweb: source %q has no listings url", src.Slug)
	}
	listingsURL := urls[0]

	body, err := fetch.GetBody(ctx, f.client, listingsURL, browserHeaders)
	if err != nil {
		return nil, fmt.Errorf("immoweb: %w", err)
	}
	html := string(body)

	results := f.parseSearchHTML(html, src)
	if len(results) == 0 && len(html) > 0 {
		f.logger.Warn("[%s] 0 listings from %d bytes of html, trigger found=%v",
			src.Slug, len(html), strings.Contains(html, classifiedTrigger))
		if !strings.Contains(html, classifiedTrigger) {
			f.dumpDebugHTML(src.Slug, html)
		}
	}
	return results, nil
}

// parseSearchHTML prefers the embedded classified JSON blocks and falls back
// to the DOM cards when the markup carries none.
func (f *Fetcher) parseSearchHTML(html string, src models.Source) []models.Listing {
	seen := utils.NewURLSet()

	blocks := extractClassifiedBlocks(html)
	if len(blocks) > 0 {
		var results []models.Listing
		for _, raw := range blocks {
			listing, ok := f.classifiedToListing(raw, src)
			if !ok {
				continue
			}
			if !seen.Add(listing.URL) {
				continue
			}
			results = append(results, listing)
		}
		return results
	}

	var results []models.Listing
	for _, listing := range f.parseDomCards(html) {
		listing.SourceID = src.ID
		if !seen.Add(listing.URL) {
			continue
		}
		results = append(results, listing)
	}
	return results
}

// extractClassifiedBlocks pulls each :classified='{...}' JSON payload out of
// the markup by brace counting, skipping braces inside string literals.
func extractClassifiedBlocks(html string) []string {
	var blocks []string
	i := 0
	for {
		start := strings.Index(html[i:], classifiedTrigger)
		if start == -1 {
			break
		}
		jsonStart := i + start + len(classifiedTrigger)
		if jsonStart >= len(html) || html[jsonStart] != '{' {
			i = jsonStart
			continue
		}
		depth := 0
		j := jsonStart
		for j < len(html) {
			switch html[j] {
			case '{':
				depth++
			case '}':
				depth--
			case '"':
				if depth > 0 {
					j = skipString(html, j)
				}
			}
			if j < len(html) && depth == 0 && html[j] == '}' {
				blocks = append(blocks, html[jsonStart:j+1])
				break
			}
			j++
		}
		i = j + 1
		if i >= len(html) {
			break
		}
	}
	return blocks
}

// skipString returns the index of the closing quote of the string literal
// opening at html[at], honoring backslash escapes.
func skipString(html string, at int) int {
	at++
	for at < len(html) {
		switch html[at] {
		case '\\':
			at += 2
			continue
		case '"':
			return at
		}
		at++
	}
	return at
}

func (f *Fetcher) classifiedToListing(raw string, src models.Source) (models.Listing, bool) {
	var c classified
	decoded := strings.ReplaceAll(raw, `\/`, "/")
	if err := json.Unmarshal([]byte(decoded), &c); err != nil {
		return models.Listing{}, false
	}
	if c.Property.Type != "HOUSE" || c.Transaction.Type != "FOR_SALE" {
		return models.Listing{}, false
	}
	if c.ID == 0 {
		return models.Listing{}, false
	}

	listingURL := classifiedURL(src.BaseURL, c)
	if listingURL == "" {
		return models.Listing{}, false
	}

	price := 0
	if c.Price != nil && c.Price.MainValue != nil {
		price = *c.Price.MainValue
	}
	if price == 0 && c.Transaction.Sale != nil && c.Transaction.Sale.Price != nil {
		price = *c.Transaction.Sale.Price
	}
	if price == 0 && c.Price != nil {
		if c.Price.MinRangeValue != nil {
			price = *c.Price.MinRangeValue
		} else if c.Price.MaxRangeValue != nil {
			price = *c.Price.MaxRangeValue
		}
	}
	if price <= 0 {
		return models.Listing{}, false
	}

	municipality := stripLeadingDigits(c.Property.Location.Locality)
	if municipality == "" {
		municipality = "Onbekend"
	}

	title := c.Property.Title
	if title == "" {
		title = "House"
	}

	var imageURL *string
	if c.Media != nil && len(c.Media.Pictures) > 0 && c.Media.Pictures[0].LargeURL != "" {
		imageURL = &c.Media.Pictures[0].LargeURL
	}

	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      strconv.Itoa(c.ID),
		URL:             listingURL,
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        c.Property.BedroomCount,
		LivingSurfaceM2: c.Property.NetHabitableSurface,
		HasGarden:       normalize.HasGardenFromText(title),
		Municipality:    municipality,
		ImageURL:        imageURL,
	}, true
}

// classifiedURL rebuilds the canonical detail URL; the locality is slugified
// into the path.
func classifiedURL(baseURL string, c classified) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	slug := strings.ToLower(strings.Join(strings.Fields(c.Property.Location.Locality), "-"))
	return fmt.Sprintf("%s://%s/en/classified/house/for-sale/%s/%s/%d",
		u.Scheme, u.Host, slug, c.Property.Location.PostalCode, c.ID)
}

var domCardHrefRe = regexp.MustCompile(`(?i)/en/classified/house/for-sale/`)

// parseDomCards reads listing cards from the newer markup, which renders
// <article id="classified_123"> without embedded JSON.
func (f *Fetcher) parseDomCards(html string) []models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var results []models.Listing
	doc.Find(`article[id^="classified_"], article[id^="premium_position_"]`).Each(func(_ int, card *goquery.Selection) {
		id, _ := card.Attr("id")
		id = strings.TrimPrefix(strings.TrimPrefix(id, "classified_"), "premium_position_")

		var cardURL string
		card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.HasPrefix(href, "https://") && domCardHrefRe.MatchString(href) {
				cardURL = strings.ReplaceAll(href, "&amp;", "&")
				return false
			}
			return true
		})
		if cardURL == "" {
			return
		}

		priceText := card.Find(`[class*="card--result__price"]`).First().Text()
		if priceText == "" {
			priceText = card.Text()
		}
		price := normalize.ParsePrice(euroAmount(priceText))
		if price <= 0 {
			return
		}

		title := strings.TrimSpace(card.Find(`[class*="card__title-link"]`).First().Text())
		if title == "" {
			title = "House"
		}
		infoText := strings.Join(strings.Fields(card.Find(`[class*="card__information--property"]`).First().Text()), " ")
		municipality := stripLeadingDigits(strings.TrimSpace(card.Find(`[class*="card--results__information--locality"]`).First().Text()))
		if municipality == "" {
			municipality = "Onbekend"
		}

		var imageURL *string
		if src, ok := card.Find(`img[class*="card__media-picture"]`).First().Attr("src"); ok && src != "" {
			imageURL = &src
		}

		externalID := id
		if externalID == "" {
			externalID = normalize.ExternalIDFromURL(cardURL)
		}

		results = append(results, models.Listing{
			ExternalID:      externalID,
			URL:             cardURL,
			Title:           normalize.TruncateTitle(title),
			Price:           price,
			Bedrooms:        normalize.ParseBedrooms(infoText),
			LivingSurfaceM2: normalize.ParseSurface(infoText),
			HasGarden:       normalize.HasGardenFromText(title + " " + infoText),
			Municipality:    municipality,
			ImageURL:        imageURL,
		})
	})
	return results
}

var euroAmountRe = regexp.MustCompile(`€\s*([\d,]+)`)

// euroAmount isolates the first €-prefixed amount; card text mixes prices
// with surface figures. Commas are thousands separators here.
func euroAmount(text string) string {
	m := euroAmountRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ReplaceAll(m[1], ",", "")
}

var leadingDigitsRe = regexp.MustCompile(`^\d+\s*`)

func stripLeadingDigits(s string) string {
	return strings.TrimSpace(leadingDigitsRe.ReplaceAllString(s, ""))
}

// dumpDebugHTML saves the received markup for offline inspection when the
// page yields nothing recognizable, usually a DataDome challenge page.
func (f *Fetcher) dumpDebugHTML(slug, html string) {
	if f.opts.DebugDir == "" {
		return
	}
	if err := os.MkdirAll(f.opts.DebugDir, 0o755); err != nil {
		f.logger.Warn("[%s] debug dir: %v", slug, err)
		return
	}
	path := filepath.Join(f.opts.DebugDir, slug+"-debug.html")
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		f.logger.Warn("[%s] debug dump: %v", slug, err)
		return
	}
	f.logger.Warn("[%s] wrote received html to %s", slug, path)
}
