package browser

import (
	"context"
	"testing"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/utils"
)

const zimmoHTML = `<html><body>
<div class="property-item">
  <a class="property-item_link" href="/nl/te-koop/huis/gent/9000/H12345.html">
    <img class="property-thumb" src="https://cdn.zimmo.be/12345.jpg"/>
  </a>
  <div class="property-item_title"><a>Huis met stadstuin</a></div>
  <div class="property-item_price">€ 565.000</div>
  <div class="property-item_address">Kortrijksesteenweg 12
9000 Gent</div>
  <div class="property-item_meta-info">210 m² · EPC 180</div>
  <span class="bedroom-icon property-item_icon">4</span>
</div>
<div class="property-item">
  <a class="property-item_link" href="/nl/te-koop/huis/melle/9090/H777.html"></a>
  <div class="property-item_price">Prijs op aanvraag</div>
</div>
<div class="property-item">
  <a class="property-item_link" href="/nl/te-koop/huis/gent/9000/H888.html"></a>
  <div class="property-item_price">€ 470.000</div>
  <div class="property-item_address">Zwijnaardsesteenweg 3
9000 Gent</div>
  <span class="status">VERKOCHT</span>
</div>
</body></html>`

func TestZimmoExtractsGalleryCards(t *testing.T) {
	r := &fakeRenderer{fallback: zimmoHTML}
	z := NewZimmo(r, testOpts(), utils.NewTestLogger())
	src := browserSource(models.StrategyZimmo, "https://www.zimmo.be", "https://www.zimmo.be/nl/zoeken/?search=abc")

	listings, err := z.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 {
		t.Fatalf("got %d listings, want 1 (priceless and sold cards excluded)", len(listings))
	}

	l := listings[0]
	if l.URL != "https://www.zimmo.be/nl/te-koop/huis/gent/9000/H12345.html" {
		t.Errorf("url = %q", l.URL)
	}
	if l.ExternalID != "H12345.html" {
		t.Errorf("externalId = %q", l.ExternalID)
	}
	if l.Title != "Huis met stadstuin" {
		t.Errorf("title = %q", l.Title)
	}
	if l.Price != 565000 {
		t.Errorf("price = %d", l.Price)
	}
	if l.Bedrooms == nil || *l.Bedrooms != 4 {
		t.Errorf("bedrooms = %v (bare digit in the bedroom pictogram)", l.Bedrooms)
	}
	if l.LivingSurfaceM2 == nil || *l.LivingSurfaceM2 != 210 {
		t.Errorf("surface = %v", l.LivingSurfaceM2)
	}
	if !l.HasGarden {
		t.Error("stadstuin in the card text must imply a garden")
	}
	if l.Municipality != "Gent" {
		t.Errorf("municipality = %q (last address line without postal code)", l.Municipality)
	}
	if l.ImageURL == nil || *l.ImageURL != "https://cdn.zimmo.be/12345.jpg" {
		t.Errorf("imageUrl = %v", l.ImageURL)
	}
}

func TestBedroomsFromMeta(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"4", 4, true},
		{" 3 ", 3, true},
		{"3 slaapkamers", 3, true},
		{"2 bdr.", 2, true},
		{"EPC 180", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got := bedroomsFromMeta(tt.in)
		if tt.ok {
			if got == nil || *got != tt.want {
				t.Errorf("bedroomsFromMeta(%q) = %v, want %d", tt.in, got, tt.want)
			}
		} else if got != nil {
			t.Errorf("bedroomsFromMeta(%q) = %d, want nil", tt.in, *got)
		}
	}
}
