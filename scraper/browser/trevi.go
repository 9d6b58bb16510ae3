package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

var (
	pagenumberRe = regexp.MustCompile(`pagenumber=[^&]*`)
	pandPathRe   = regexp.MustCompile(`/pand/\d+/`)
)

// Trevi walks the Trevi pand search, rewriting the pagenumber parameter the
// search URL already carries. The site keeps serving the last page for
// out-of-range numbers, so the shared seen-set doubles as the terminator.
type Trevi struct {
	renderer Renderer
	opts     fetch.Options
	logger   *utils.Logger
}

func NewTrevi(renderer Renderer, opts fetch.Options, logger *utils.Logger) *Trevi {
	return &Trevi{renderer: renderer, opts: opts, logger: logger}
}

func (t *Trevi) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("trevi: source %q has no listings url", src.Slug)
	}
	listingsURL := urls[0]

	var results []models.Listing
	seen := utils.NewURLSet()

	for pageNum := 1; pageNum <= t.opts.MaxPages; pageNum++ {
		pageURL := pageURLFor(listingsURL, pageNum)

		html, err := t.renderer.HTML(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("trevi: %w", err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("trevi: parse page %d: %w", pageNum, err)
		}

		links := doc.Find(`a[href*="/nl/pand/"][href*="/huis/"]`)
		if links.Length() == 0 {
			break
		}

		added := 0
		links.Each(func(_ int, link *goquery.Selection) {
			listing, ok := t.cardToListing(link, src)
			if !ok {
				return
			}
			if !seen.Add(listing.URL) {
				return
			}
			results = append(results, listing)
			added++
		})
		if added == 0 {
			break
		}
		t.opts.Pace(ctx)
	}

	t.logger.Debug("[%s] trevi adapter yielded %d listings", src.Slug, len(results))
	return results, nil
}

func pageURLFor(listingsURL string, pageNum int) string {
	if pagenumberRe.MatchString(listingsURL) {
		return pagenumberRe.ReplaceAllString(listingsURL, fmt.Sprintf("pagenumber=%d", pageNum))
	}
	if pageNum == 1 {
		return listingsURL
	}
	sep := "?"
	if strings.Contains(listingsURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spagenumber=%d", listingsURL, sep, pageNum)
}

func (t *Trevi) cardToListing(link *goquery.Selection, src models.Source) (models.Listing, bool) {
	href, _ := link.Attr("href")
	if href == "" || !pandPathRe.MatchString(href) {
		return models.Listing{}, false
	}
	fullURL := normalize.AbsoluteURL(src.BaseURL, href)

	card := closestCard(link, "article", "[class*='card']", "li")
	allText := cardText(card)
	if normalize.IsSoldOrRentedFromText(allText) {
		return models.Listing{}, false
	}

	price := normalize.ParsePrice(allText)
	if price <= 0 {
		return models.Listing{}, false
	}

	title := strings.TrimSpace(card.Find("h2, h3, h4, [class*='title']").First().Text())
	if title == "" {
		title = strings.TrimSpace(link.Text())
	}
	if title == "" {
		title = "Huis"
	}

	municipality := strings.TrimSpace(card.Find(
		"[class*='location'], [class*='locality'], [class*='city'], [class*='address'], [class*='place']").First().Text())
	if municipality == "" {
		municipality = municipalityFromPostal(allText)
	}
	if municipality == "" {
		municipality = "Gent"
	}

	var imageURL *string
	if imgSrc, ok := card.Find("img").First().Attr("src"); ok && imgSrc != "" {
		abs := normalize.AbsoluteURL(src.BaseURL, imgSrc)
		imageURL = &abs
	}

	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      normalize.ExternalIDFromURL(fullURL),
		URL:             fullURL,
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        normalize.ParseBedrooms(allText),
		LivingSurfaceM2: normalize.ParseSurface(allText),
		HasGarden:       normalize.HasGardenFromText(allText),
		Municipality:    municipality,
		ImageURL:        imageURL,
	}, true
}
