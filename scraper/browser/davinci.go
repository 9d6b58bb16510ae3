package browser

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

var (
	slpkRe  = regexp.MustCompile(`(?i)(\d+)\s*slpk\.?`)
	meterRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m`)
)

// DaVinci walks the Immo Da Vinci gallery, which paginates with a page query
// parameter and advertises the next page as a plain link.
type DaVinci struct {
	renderer Renderer
	opts     fetch.Options
	logger   *utils.Logger
}

func NewDaVinci(renderer Renderer, opts fetch.Options, logger *utils.Logger) *DaVinci {
	return &DaVinci{renderer: renderer, opts: opts, logger: logger}
}

func (d *DaVinci) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("davinci: source %q has no listings url", src.Slug)
	}
	listingsURL := urls[0]

	var results []models.Listing
	seen := utils.NewURLSet()

	for pageNum := 1; pageNum <= d.opts.MaxPages; pageNum++ {
		pageURL := listingsURL
		if pageNum > 1 {
			sep := "?"
			if strings.Contains(listingsURL, "?") {
				sep = "&"
			}
			pageURL = fmt.Sprintf("%s%spage=%d", listingsURL, sep, pageNum)
		}

		html, err := d.renderer.HTML(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("davinci: %w", err)
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("davinci: parse page %d: %w", pageNum, err)
		}

		links := doc.Find(`a.gallcell[href*="/detail/"]`)
		if links.Length() == 0 {
			break
		}

		links.Each(func(_ int, link *goquery.Selection) {
			listing, ok := d.cardToListing(link, src)
			if !ok {
				return
			}
			if !seen.Add(listing.URL) {
				return
			}
			results = append(results, listing)
		})

		nextSel := fmt.Sprintf(`a[href*="page=%d"]`, pageNum+1)
		if doc.Find(nextSel).Length() == 0 {
			break
		}
		d.opts.Pace(ctx)
	}

	d.logger.Debug("[%s] davinci adapter yielded %d listings", src.Slug, len(results))
	return results, nil
}

// cardToListing reads one gallery cell; the link is the card.
func (d *DaVinci) cardToListing(link *goquery.Selection, src models.Source) (models.Listing, bool) {
	href, _ := link.Attr("href")
	if href == "" || strings.Contains(strings.ToLower(href), "appartement") {
		return models.Listing{}, false
	}
	fullURL := normalize.AbsoluteURL(src.BaseURL, href)

	allText := cardText(link)
	if strings.Contains(allText, "Verkocht") {
		return models.Listing{}, false
	}

	price := normalize.ParsePrice(link.Find(".price").First().Text())
	if !d.opts.InBand(price) {
		return models.Listing{}, false
	}

	title := strings.Join(strings.Fields(link.Find(".content p").First().Text()), " ")
	if title == "" {
		title = "Woning"
	}

	// Icon row: a slpk count plus up to two metric values, living surface
	// first, ground surface second.
	var bedrooms *int
	var surface, ground *float64
	link.Find(".content .icons .item span").Each(func(_ int, span *goquery.Selection) {
		t := strings.TrimSpace(span.Text())
		if m := slpkRe.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				bedrooms = &n
			}
			return
		}
		if m := meterRe.FindStringSubmatch(t); m != nil {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
			if err != nil {
				return
			}
			if surface == nil {
				surface = &v
			} else if ground == nil {
				ground = &v
			}
		}
	})
	hasGarden := ground != nil && *ground > 0

	var imageURL *string
	if imgSrc, ok := link.Find(".image img, img").First().Attr("src"); ok && imgSrc != "" {
		abs := normalize.AbsoluteURL(src.BaseURL, imgSrc)
		imageURL = &abs
	}

	municipality := strings.TrimSpace(link.Find(
		"[class*='location'], [class*='address'], [class*='place'], .content [class*='city']").First().Text())
	if municipality == "" {
		municipality = municipalityFromPostal(title)
	}
	if municipality == "" {
		if parts := strings.Split(title, ","); len(parts) > 1 {
			last := strings.TrimSpace(parts[len(parts)-1])
			if last != "" {
				municipality = last
			}
		}
	}
	if municipality == "" {
		municipality = "Gent"
	}

	return models.Listing{
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
	}, true
}
