package browser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// postalRe picks "9000 Gent" style fragments out of card text; group 2 is
	// the municipality. East-Flanders postal codes all start with 9.
	postalRe = regexp.MustCompile(`\b(9\d{3})\s+([A-Za-z\-]+(?:\s+[A-Za-z\-]+)*)`)
	// bgImageRe pulls the URL out of an inline background-image style.
	bgImageRe = regexp.MustCompile(`url\s*\(\s*['"]?([^'")]+)['"]?\s*\)`)
)

// municipalityFromPostal extracts the municipality following a postal code,
// or "".
func municipalityFromPostal(text string) string {
	m := postalRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[2])
}

// backgroundImageURL reads the image URL from an element's inline style.
func backgroundImageURL(sel *goquery.Selection) string {
	style, ok := sel.Attr("style")
	if !ok {
		return ""
	}
	m := bgImageRe.FindStringSubmatch(style)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// cardText flattens an element's text with collapsed whitespace, the rough
// equivalent of a rendered innerText.
func cardText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// closestCard walks up from a link to the enclosing card element, trying the
// given ancestor selectors in order and falling back to the grandparent.
func closestCard(link *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if c := link.Closest(sel); c.Length() > 0 {
			return c
		}
	}
	if gp := link.Parent().Parent(); gp.Length() > 0 {
		return gp
	}
	return link
}
