package normalize

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"€ 524 000", 524000},
		{"Vanaf € 319.500", 319500},
		{"", 0},
		{"Prijs op aanvraag", 0},
		{"€495.000", 495000},
		{"  € 450 000  ", 450000},
	}

	for _, tt := range tests {
		if got := ParsePrice(tt.text); got != tt.want {
			t.Errorf("ParsePrice(%q) = %d; want %d", tt.text, got, tt.want)
		}
	}
}

func TestParseBedrooms(t *testing.T) {
	tests := []struct {
		text string
		want int // -1 = nil
	}{
		{"3 slpkr.", 3},
		{"3 slaapkamers", 3},
		{"4 bedrooms", 4},
		{"2 bed", 2},
		{"geen info", -1},
		{"", -1},
	}

	for _, tt := range tests {
		got := ParseBedrooms(tt.text)
		if tt.want == -1 {
			if got != nil {
				t.Errorf("ParseBedrooms(%q) = %d; want nil", tt.text, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ParseBedrooms(%q) = %v; want %d", tt.text, got, tt.want)
		}
	}
}

func TestParseSurface(t *testing.T) {
	tests := []struct {
		text string
		want float64 // -1 = nil
	}{
		{"216 m² woonoppervlakte", 216},
		{"136,5m²", 136.5},
		{"95 sqm", 95},
		{"ruime woning", -1},
		{"", -1},
	}

	for _, tt := range tests {
		got := ParseSurface(tt.text)
		if tt.want == -1 {
			if got != nil {
				t.Errorf("ParseSurface(%q) = %f; want nil", tt.text, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("ParseSurface(%q) = %v; want %f", tt.text, got, tt.want)
		}
	}
}

func TestHasGardenFromText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Woning met grote tuin", true},
		{"house with garden", true},
		{"zonnig terras", true},
		{"grondoppervlakte 250 m²", true},
		{"grondoppervlakte n/b", false},
		{"appartement derde verdieping", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := HasGardenFromText(tt.text); got != tt.want {
			t.Errorf("HasGardenFromText(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestIsSoldOrRentedFromText(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"VERKOCHT", true},
		{"Sold!", true},
		{"verhuurd onder voorbehoud", true},
		{"rented", true},
		{"reserved", true},
		{"te koop", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsSoldOrRentedFromText(tt.text); got != tt.want {
			t.Errorf("IsSoldOrRentedFromText(%q) = %v; want %v", tt.text, got, tt.want)
		}
	}
}

func TestExternalIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://x.be/nl/aanbod/4821", "4821"},
		{"https://x.be/nl/aanbod/4821/", "4821"},
		{"https://topvastgoed.be/property/1234/", "1234"},
		{"https://x.be/", "https://x.be/"},
		{"://bad url", "://bad url"},
	}

	for _, tt := range tests {
		if got := ExternalIDFromURL(tt.url); got != tt.want {
			t.Errorf("ExternalIDFromURL(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func TestHouseApartmentClassifiers(t *testing.T) {
	if !IsApartmentURL("https://x.be/appartement/gent/1") {
		t.Error("expected apartment URL to classify as apartment")
	}
	if IsApartmentURL("https://x.be/huis/gent/1") {
		t.Error("house URL wrongly classified as apartment")
	}
	if !IsHouseListingOnly("https://x.be/huis/gent/1") {
		t.Error("expected /huis/ URL to pass the houses-only test")
	}
	if IsHouseListingOnly("https://x.be/te-koop/gent/1") {
		t.Error("URL without house segment must not pass the houses-only test")
	}
	if !IsNotApartmentURL("https://x.be/te-koop/gent/1") {
		t.Error("neutral URL must pass the lenient test")
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://WWW.Cannoodt.BE/huis/1", "https://www.cannoodt.be/huis/1"},
		{"https://x.be/a?b=c", "https://x.be/a?b=c"},
		{"not a url", "not a url"},
	}

	for _, tt := range tests {
		if got := CanonicalURL(tt.url); got != tt.want {
			t.Errorf("CanonicalURL(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func TestAbsoluteURL(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://x.be", "/img/1.jpg", "https://x.be/img/1.jpg"},
		{"https://x.be/nl/", "https://cdn.be/1.jpg", "https://cdn.be/1.jpg"},
		{"https://x.be", "", ""},
	}

	for _, tt := range tests {
		if got := AbsoluteURL(tt.base, tt.href); got != tt.want {
			t.Errorf("AbsoluteURL(%q, %q) = %q; want %q", tt.base, tt.href, got, tt.want)
		}
	}
}
