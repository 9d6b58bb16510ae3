package browser

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

// Oranjeberg reads the Oranjeberg residential offer. The first page lists
// the /page/ pagination links for the rest; cards carry an explicit type
// label and only "Woning" cards count.
type Oranjeberg struct {
	renderer Renderer
	opts     fetch.Options
	logger   *utils.Logger
}

func NewOranjeberg(renderer Renderer, opts fetch.Options, logger *utils.Logger) *Oranjeberg {
	return &Oranjeberg{renderer: renderer, opts: opts, logger: logger}
}

func (o *Oranjeberg) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("oranjeberg: source %q has no listings url", src.Slug)
	}

	var results []models.Listing
	seen := utils.NewURLSet()
	pages := []string{urls[0]}

	for i := 0; i < len(pages) && i < o.opts.MaxPages; i++ {
		if i > 0 {
			o.opts.Pace(ctx)
		}
		html, err := o.renderer.HTML(ctx, pages[i])
		if err != nil {
			return nil, fmt.Errorf("oranjeberg: %w", err)
		}
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			return nil, fmt.Errorf("oranjeberg: parse page %d: %w", i+1, err)
		}

		if i == 0 {
			doc.Find(`.pagination-links a[href*="/page/"]`).Each(func(_ int, a *goquery.Selection) {
				href, _ := a.Attr("href")
				if href == "" {
					return
				}
				full := normalize.AbsoluteURL(src.BaseURL, href)
				for _, p := range pages {
					if p == full {
						return
					}
				}
				pages = append(pages, full)
			})
		}

		doc.Find(".one-third .item.shadow").Each(func(_ int, card *goquery.Selection) {
			listing, ok := o.cardToListing(card, src)
			if !ok {
				return
			}
			if !seen.Add(listing.URL) {
				return
			}
			results = append(results, listing)
		})
	}

	o.logger.Debug("[%s] oranjeberg adapter yielded %d listings", src.Slug, len(results))
	return results, nil
}

func (o *Oranjeberg) cardToListing(card *goquery.Selection, src models.Source) (models.Listing, bool) {
	if strings.TrimSpace(card.Find(".item-text .type").First().Text()) != "Woning" {
		return models.Listing{}, false
	}

	href, _ := card.Find("a.button-more-info, a.target").First().Attr("href")
	if href == "" {
		return models.Listing{}, false
	}
	fullURL := normalize.AbsoluteURL(src.BaseURL, href)

	price := normalize.ParsePrice(card.Find(".item-text .price").First().Text())

	desc := strings.TrimSpace(card.Find(".item-text .description").First().Text())
	adres := strings.TrimSpace(card.Find(".item-text .adres").First().Text())
	location := strings.TrimSpace(card.Find(".item-text .location").First().Text())

	title := desc
	if title == "" {
		var parts []string
		for _, p := range []string{adres, location} {
			if p != "" {
				parts = append(parts, p)
			}
		}
		title = strings.Join(parts, ", ")
	}
	if title == "" {
		title = "Woning"
	}

	municipality := location
	if municipality == "" {
		municipality = "Onbekend"
	}

	allText := cardText(card) + " " + desc
	var bedrooms *int
	if m := slpkRe.FindStringSubmatch(allText); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			bedrooms = &n
		}
	}
	if bedrooms == nil {
		bedrooms = normalize.ParseBedrooms(allText)
	}
	if bedrooms == nil {
		// The card renders one .room pictogram per bedroom.
		if n := card.Find(".item-text .rooms .room").Length(); n > 0 {
			bedrooms = &n
		}
	}

	var imageURL *string
	if img := backgroundImageURL(card.Find(`.slide.blocklink[style*="background-image"]`).First()); img != "" {
		abs := normalize.AbsoluteURL(src.BaseURL, img)
		imageURL = &abs
	}

	return models.Listing{
		SourceID:        src.ID,
		ExternalID:      normalize.ExternalIDFromURL(fullURL),
		URL:             fullURL,
		Title:           normalize.TruncateTitle(title),
		Price:           price,
		Bedrooms:        bedrooms,
		LivingSurfaceM2: normalize.ParseSurface(allText),
		HasGarden:       normalize.HasGardenFromText(allText),
		Municipality:    municipality,
		ImageURL:        imageURL,
	}, true
}
