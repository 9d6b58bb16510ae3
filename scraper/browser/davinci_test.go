package browser

import (
	"context"
	"fmt"
	"testing"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/utils"
)

func davinciCard(id int, price, title string, sold bool) string {
	status := ""
	if sold {
		status = `<span class="status">Verkocht</span>`
	}
	return fmt.Sprintf(`<a class="gallcell" href="/detail/woning/%d">
  %s
  <div class="image"><img src="/fotos/%d.jpg"/></div>
  <div class="price">€ %s</div>
  <div class="content">
    <p>%s</p>
    <div class="icons">
      <div class="item"><span>3 slpk.</span></div>
      <div class="item"><span>175 m</span></div>
      <div class="item"><span>320 m</span></div>
    </div>
  </div>
</a>`, id, status, id, price, title)
}

func TestDaVinciPaginatesWhileNextLinkExists(t *testing.T) {
	base := "https://www.immodavinci.be/residentieel/kopen/woningen?priceMax=600000"
	page1 := `<html><body>` +
		davinciCard(1, "530.000", "Woning te koop, 9000 Gent", false) +
		davinciCard(2, "480.000", "Instapklare woning, 9050 Gentbrugge", true) +
		`<a href="?page=2">2</a></body></html>`
	page2 := `<html><body>` +
		davinciCard(3, "460.000", "Woning, 9040 Sint-Amandsberg", false) +
		`</body></html>`

	r := &fakeRenderer{pages: map[string]string{
		base:             page1,
		base + "&page=2": page2,
	}}
	d := NewDaVinci(r, testOpts(), utils.NewTestLogger())
	src := browserSource(models.StrategyDaVinci, "https://www.immodavinci.be", base)

	listings, err := d.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(r.requests) != 2 {
		t.Errorf("requests = %v, want 2 pages", r.requests)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2 (sold card excluded)", len(listings))
	}

	l := listings[0]
	if l.URL != "https://www.immodavinci.be/detail/woning/1" {
		t.Errorf("url = %q", l.URL)
	}
	if l.Price != 530000 {
		t.Errorf("price = %d", l.Price)
	}
	if l.Bedrooms == nil || *l.Bedrooms != 3 {
		t.Errorf("bedrooms = %v", l.Bedrooms)
	}
	if l.LivingSurfaceM2 == nil || *l.LivingSurfaceM2 != 175 {
		t.Errorf("surface = %v (first metric icon is the living surface)", l.LivingSurfaceM2)
	}
	if !l.HasGarden {
		t.Error("second metric icon > 0 must imply a garden")
	}
	if l.Municipality != "Gent" {
		t.Errorf("municipality = %q", l.Municipality)
	}
}

func TestDaVinciSkipsApartmentHrefs(t *testing.T) {
	html := `<html><body>
<a class="gallcell" href="/detail/appartement/4"><div class="price">€ 500.000</div><div class="content"><p>App</p></div></a>
` + davinciCard(5, "500.000", "Woning, 9000 Gent", false) + `</body></html>`

	r := &fakeRenderer{fallback: html}
	d := NewDaVinci(r, testOpts(), utils.NewTestLogger())
	src := browserSource(models.StrategyDaVinci, "https://www.immodavinci.be", "https://www.immodavinci.be/woningen")

	listings, err := d.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(listings) != 1 || listings[0].ExternalID != "5" {
		t.Fatalf("expected only detail 5, got %+v", listings)
	}
}
