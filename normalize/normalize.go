package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	// priceRegexp captures a run of digits with optional dot thousands
	// separators ("524.000", "319500") after whitespace has been stripped.
	priceRegexp = regexp.MustCompile(`[\d.]+`)
	// bedroomsRegexp matches language-mixed bedroom counts ("3 slpkr.",
	// "3 slaapkamers", "4 bedrooms", "2 bed").
	bedroomsRegexp = regexp.MustCompile(`(?i)(\d+)\s*(?:slpkr\.?|slaapkamer|bedroom|bed)`)
	// surfaceRegexp matches "216 m²" / "136,5m²"; comma is a decimal separator.
	surfaceRegexp    = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*m²`)
	surfaceSqmRegexp = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*sqm`)
	// twoDigitRegexp backs the grondoppervlakte garden heuristic.
	twoDigitRegexp   = regexp.MustCompile(`\d{2,}`)
	leadingIntRegexp = regexp.MustCompile(`\d+`)
)

// ParsePrice extracts an integer price from free text like "€ 524 000" or
// "Vanaf € 319.500". Dots are thousands separators. Returns 0 when no price
// is present; callers must treat 0 as "no price" and discard the candidate.
func ParsePrice(text string) int {
	if text == "" {
		return 0
	}
	stripped := strings.Join(strings.Fields(text), "")
	match := priceRegexp.FindString(stripped)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ".", ""))
	if err != nil {
		return 0
	}
	return n
}

// ParseBedrooms extracts a bedroom count from text like "3 slpkr." or
// "3 slaapkamers". Returns nil when absent.
func ParseBedrooms(text string) *int {
	if text == "" {
		return nil
	}
	m := bedroomsRegexp.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// LeadingInt extracts the first run of digits in the text, for icon-label
// fields that hold a bare count. Returns nil when absent.
func LeadingInt(text string) *int {
	m := leadingIntRegexp.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return nil
	}
	return &n
}

// ParseSurface extracts a surface in m² from text like "216 m²
// woonoppervlakte" or "136,5m²". Returns nil when absent.
func ParseSurface(text string) *float64 {
	if text == "" {
		return nil
	}
	m := surfaceRegexp.FindStringSubmatch(text)
	if m == nil {
		m = surfaceSqmRegexp.FindStringSubmatch(text)
	}
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// HasGardenFromText infers a garden from card text. Best-effort and
// occasionally wrong by construction; kept as-is for reproducibility.
func HasGardenFromText(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "tuin") || strings.Contains(lower, "garden") ||
		strings.Contains(lower, "terras") {
		return true
	}
	if strings.Contains(lower, "grondoppervlakte") && twoDigitRegexp.MatchString(text) {
		return true
	}
	return false
}

// IsSoldOrRentedFromText reports whether the card text marks the listing as
// sold or rented. Such candidates are excluded entirely, not flagged.
func IsSoldOrRentedFromText(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range []string{"verkocht", "sold", "verhuurd", "rented", "reserved"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ExternalIDFromURL derives a stable external id: the last non-empty path
// segment, or the whole URL when parsing fails.
func ExternalIDFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) == 0 {
		return raw
	}
	return segments[len(segments)-1]
}

// IsApartmentURL reports whether the URL path indicates an apartment, flat
// or studio. These are excluded: the aggregator tracks houses only.
func IsApartmentURL(raw string) bool {
	path, ok := lowerPath(raw)
	if !ok {
		return false
	}
	return strings.Contains(path, "/appartement") ||
		strings.Contains(path, "/apartment") ||
		strings.Contains(path, "/flat") ||
		strings.Contains(path, "/studio")
}

// IsHouseURL reports whether the URL path indicates a house.
func IsHouseURL(raw string) bool {
	path, ok := lowerPath(raw)
	if !ok {
		return false
	}
	return strings.Contains(path, "/huis") ||
		strings.Contains(path, "/woning") ||
		strings.Contains(path, "/house") ||
		strings.Contains(path, "/villa")
}

// IsHouseListingOnly is the strict test: URL must look like a house and not
// like an apartment. Used where the source's URL structure is reliable.
func IsHouseListingOnly(raw string) bool {
	if IsApartmentURL(raw) {
		return false
	}
	return IsHouseURL(raw)
}

// IsNotApartmentURL is the lenient test for sources whose house URLs do not
// always carry a /huis/ segment.
func IsNotApartmentURL(raw string) bool { return !IsApartmentURL(raw) }

func lowerPath(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	return strings.ToLower(u.Path), true
}

// CanonicalURL normalizes a listing URL for identity comparison: https
// scheme, lowercased host. Unparseable input is returned verbatim.
func CanonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// AbsoluteURL resolves href against base. Already-absolute hrefs pass
// through; a broken base or href yields the href unchanged.
func AbsoluteURL(base, href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// TruncateTitle caps a title at the stored column width.
func TruncateTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > 500 {
		return title[:500]
	}
	return title
}
