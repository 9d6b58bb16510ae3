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
	onlyDigitsRe   = regexp.MustCompile(`^\d+$`)
	zimmoBedroomRe = regexp.MustCompile(`(?i)(\d+)\s*(?:slpkr\.?|slaapkamer|bedroom|bed|bdr\.?)`)
	leadDigitsRe   = regexp.MustCompile(`^\d+\s*`)
)

// Zimmo reads the portal's gallery view. The search URL carries the whole
// filter as an encoded blob, so one rendered page holds the result set.
type Zimmo struct {
	renderer Renderer
	opts     fetch.Options
	logger   *utils.Logger
}

func NewZimmo(renderer Renderer, opts fetch.Options, logger *utils.Logger) *Zimmo {
	return &Zimmo{renderer: renderer, opts: opts, logger: logger}
}

func (z *Zimmo) Fetch(ctx context.Context, src models.Source) ([]models.Listing, error) {
	urls := src.Config.URLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("zimmo: source %q has no listings url", src.Slug)
	}

	html, err := z.renderer.HTML(ctx, urls[0])
	if err != nil {
		return nil, fmt.Errorf("zimmo: %w", err)
	}

	listings := z.extract(html, src)
	z.logger.Debug("[%s] zimmo adapter yielded %d listings", src.Slug, len(listings))
	return listings, nil
}

func (z *Zimmo) extract(html string, src models.Source) []models.Listing {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var results []models.Listing
	seen := utils.NewURLSet()

	doc.Find(`a.property-item_link[href*="/te-koop/huis/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if href == "" {
			return
		}
		fullURL := normalize.AbsoluteURL(src.BaseURL, href)
		if !seen.Add(fullURL) {
			return
		}

		card := link.Closest(".property-item")
		if card.Length() == 0 {
			card = link.Parent().Parent()
		}

		allText := cardText(card)
		if normalize.IsSoldOrRentedFromText(allText) {
			return
		}

		priceText := strings.TrimSpace(card.Find(".property-item_price").First().Text())
		if priceText == "" {
			priceText = allText
		}
		price := normalize.ParsePrice(priceText)
		if price <= 0 {
			return
		}

		title := strings.TrimSpace(card.Find(".property-item_title a").First().Text())
		if title == "" {
			title = "Huis te koop"
		}

		metaText := strings.TrimSpace(card.Find(".property-item_meta-info").First().Text())
		bedroomText := strings.TrimSpace(card.Find(".bedroom-icon.property-item_icon").First().Text())
		if bedroomText == "" {
			bedroomText = metaText
		}
		bedrooms := bedroomsFromMeta(bedroomText)

		surfaceText := metaText
		if surfaceText == "" {
			surfaceText = allText
		}

		// The address renders street first, municipality last; the postal
		// code prefix is noise.
		municipality := "Onbekend"
		if addr := strings.TrimSpace(card.Find(".property-item_address").First().Text()); addr != "" {
			lines := strings.Split(addr, "\n")
			last := strings.TrimSpace(lines[len(lines)-1])
			if m := strings.TrimSpace(leadDigitsRe.ReplaceAllString(last, "")); m != "" {
				municipality = m
			}
		}

		var imageURL *string
		if imgSrc, ok := card.Find("img.property-thumb").First().Attr("src"); ok && imgSrc != "" {
			abs := normalize.AbsoluteURL(src.BaseURL, imgSrc)
			imageURL = &abs
		}

		results = append(results, models.Listing{
			SourceID:        src.ID,
			ExternalID:      normalize.ExternalIDFromURL(fullURL),
			URL:             fullURL,
			Title:           normalize.TruncateTitle(title),
			Price:           price,
			Bedrooms:        bedrooms,
			LivingSurfaceM2: normalize.ParseSurface(surfaceText),
			HasGarden:       normalize.HasGardenFromText(allText),
			Municipality:    municipality,
			ImageURL:        imageURL,
		})
	})
	return results
}

// bedroomsFromMeta reads a bedroom count that is usually a bare digit inside
// the bedroom pictogram, with a labelled-count fallback.
func bedroomsFromMeta(text string) *int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if onlyDigitsRe.MatchString(trimmed) {
		if n, err := strconv.Atoi(trimmed); err == nil {
			return &n
		}
	}
	m := zimmoBedroomRe.FindStringSubmatch(trimmed)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
