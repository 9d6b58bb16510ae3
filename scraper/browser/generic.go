package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/utils"
)

const defaultLinkSelector = "a[href*='/te-koop/'], a[href*='/for-sale/'], a[href*='/property/']"

// Generic is the selector-driven adapter for agency sites without a
// dedicated strategy. The source config can override the card selectors.
type Generic struct {
	renderer Renderer
	opts     fetch.Options
	logger   *utils.Logger
}

func NewGeneric(renderer Renderer, opts fetch.Options, logger *utils.Logger) *Generic {
	return &Generic{renderer: renderer, opts: opts, logger: logger}
}

func (g *Generic) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("generic: source %q has no listings url", src.Slug)
	}

	var results []models.Listing
	seen := utils.NewURLSet()

	for i, pageURL := range urls {
		if i > 0 {
			g.opts.Pace(ctx)
		}
		html, err := g.renderer.HTML(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("generic: %w", err)
		}
		results = append(results, g.extract(html, src, seen)...)
	}

	g.logger.Debug("[%s] generic adapter yielded %d listings", src.Slug, len(results))
	return results, nil
}

func (g *Generic) extract(html string, src models.Source, seen *utils.URLSet) []models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	linkSelector := src.Config.LinkSelector
	if linkSelector == "" {
		linkSelector = defaultLinkSelector
	}
	imageSelector := src.Config.ImageSelector
	if imageSelector == "" {
		imageSelector = "img"
	}

	var results []models.Listing
	doc.Find(linkSelector).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		fullURL := normalize.AbsoluteURL(src.BaseURL, href)
		if !normalize.IsNotApartmentURL(fullURL) {
			return
		}
		if !seen.Add(fullURL) {
			return
		}

		card := closestCard(link, "article", "[class*='card']", "li")
		allText := cardText(card)
		if normalize.IsSoldOrRentedFromText(allText) {
			return
		}

		title := ""
		if src.Config.TitleSelector != "" {
			title = strings.TrimSpace(card.Find(src.Config.TitleSelector).First().Text())
		}
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		if title == "" {
			title = "Listing"
		}

		priceText := ""
		if src.Config.PriceSelector != "" {
			priceText = strings.TrimSpace(card.Find(src.Config.PriceSelector).First().Text())
		}
		if priceText == "" {
			priceText = allText
		}
		price := normalize.ParsePrice(priceText)
		if price <= 0 {
			return
		}

		municipality := strings.TrimSpace(card.Find("[class*='location'], [class*='locality'], [class*='city'], [class*='address']").First().Text())
		if municipality == "" {
			municipality = municipalityFromPostal(allText)
		}
		if municipality == "" {
			municipality = "Onbekend"
		}

		var imageURL *string
		if imgSrc, ok := card.Find(imageSelector).First().Attr("src"); ok && imgSrc != "" {
			abs := normalize.AbsoluteURL(src.BaseURL, imgSrc)
			imageURL = &abs
		}

		results = append(results, models.Listing{
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
		})
	})
	return results
}
