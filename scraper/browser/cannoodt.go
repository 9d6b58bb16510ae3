package browser

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

// Cannoodt reads the Cannoodt aanbod page. House cards carry /huis/ links;
// apartments, offices and commercial panden use other path segments.
type Cannoodt struct {
	renderer Renderer
	opts     fetch.Options
	logger   *utils.Logger
}

func NewCannoodt(renderer Renderer, opts fetch.Options, logger *utils.Logger) *Cannoodt {
	return &Cannoodt{renderer: renderer, opts: opts, logger: logger}
}

func (c *Cannoodt) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("cannoodt: source %q has no listings url", src.Slug)
	}

	html, err := c.renderer.HTML(ctx, urls[0])
	if err != nil {
		return nil, fmt.Errorf("cannoodt: %w", err)
	}

	listings := c.extract(html, src)
	c.logger.Debug("[%s] cannoodt adapter yielded %d listings", src.Slug, len(listings))
	return listings, nil
}

func (c *Cannoodt) extract(html string, src models.Source) []models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var results []models.Listing
	seen := utils.NewURLSet()

	doc.Find(`.aanbod-item a[href*="/huis/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		fullURL := pinCannoodtHost(normalize.AbsoluteURL(src.BaseURL, href))
		if !seen.Add(fullURL) {
			return
		}

		card := link.Closest(".aanbod-item")
		if card.Length() == 0 {
			return
		}

		price := normalize.ParsePrice(card.Find(`.prijs span[itemprop="price"]`).First().Text())
		if !c.opts.InBand(price) {
			return
		}

		title := strings.TrimSpace(card.Find("h5").First().Text())
		title = strings.TrimSpace(strings.TrimSuffix(title, "|"))
		if title == "" {
			title = "Huis te koop"
		}

		var bedrooms *int
		if t := strings.TrimSpace(card.Find(".field-name-field-pand-slaapkamers .field-item").First().Text()); t != "" {
			if n, err := strconv.Atoi(t); err == nil {
				bedrooms = &n
			}
		}

		surface := normalize.ParseSurface(card.Find(".field-name-field-pand-tot-bew-opp .field-item").First().Text())
		terrain := normalize.ParseSurface(card.Find(".field-name-field-pand-opp-terrein .field-item").First().Text())
		hasGarden := terrain != nil && *terrain > 0

		var imageURL *string
		if img := backgroundImageURL(card.Find(".img-container").First()); img != "" {
			abs := normalize.AbsoluteURL(src.BaseURL, img)
			imageURL = &abs
		}

		municipality := strings.TrimSpace(card.Find(
			".field-name-field-pand-gemeente .field-item, .field-name-field-locatie .field-item, [class*='gemeente']").First().Text())
		if municipality == "" {
			municipality = municipalityFromPostal(title)
		}
		if municipality == "" {
			municipality = "Gent"
		}

		results = append(results, models.Listing{
			SourceID:        src.ID,
			ExternalID:      normalize.ExternalIDFromURL(fullURL),
			URL:             fullURL,
			Title:           normalize.TruncateTitle(title),
			Price:           price,
			Bedrooms:        bedrooms,
			LivingSurfaceM2: surface,
			HasGarden:       hasGarden,
			Municipality:    municipality,
			ImageURL:        imageURL,
		})
	})
	return results
}

// pinCannoodtHost forces https and the www host so the bare-host and www
// variants of the same pand dedupe to one URL.
func pinCannoodtHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = "https"
	if u.Host == "cannoodt.be" || u.Host == "www.cannoodt.be" {
		u.Host = "www.cannoodt.be"
	}
	return u.String()
}
