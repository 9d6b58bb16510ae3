package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"ghent-immo-scraper/models"
)

// sourceSpec is the YAML shape of one catalogue entry.
type sourceSpec struct {
	Name    string              `yaml:"name"`
	Slug    string              `yaml:"slug"`
	BaseURL string              `yaml:"websiteUrl"`
	Config  models.SourceConfig `yaml:"config"`
}

type catalogueFile struct {
	Sources []sourceSpec `yaml:"sources"`
}

// LoadSources returns the source catalogue: the YAML file at path when set,
// otherwise the built-in Ghent-area catalogue. Every entry is validated so
// that an unknown strategy tag or a missing required field fails here, at
// load time, rather than mid-pass.
func LoadSources(path string) ([]models.Source, error) {
	specs := builtinCatalogue
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("sources: read %s: %w", path, err)
		}
		var f catalogueFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("sources: parse %s: %w", path, err)
		}
		specs = f.Sources
	}

	sources := make([]models.Source, 0, len(specs))
	for i, s := range specs {
		if err := validateSpec(s); err != nil {
			return nil, fmt.Errorf("sources: entry %d (%s): %w", i, s.Slug, err)
		}
		sources = append(sources, models.Source{
			Name:    s.Name,
			Slug:    s.Slug,
			BaseURL: s.BaseURL,
			Config:  s.Config,
		})
	}
	return sources, nil
}

func validateSpec(s sourceSpec) error {
	if s.Slug == "" {
		return fmt.Errorf("missing slug")
	}
	if s.BaseURL == "" {
		return fmt.Errorf("missing websiteUrl")
	}
	k := s.Config.Strategy
	if !k.Valid() {
		return fmt.Errorf("unknown strategy %q", k)
	}
	switch k {
	case models.StrategyEraAPI:
		if s.Config.APIURL == "" {
			return fmt.Errorf("strategy %s requires apiUrl", k)
		}
	case models.StrategyImmowebStatic, models.StrategyBrowserGeneric,
		models.StrategyCannoodt, models.StrategyDaVinci,
		models.StrategyOranjeberg, models.StrategyTrevi, models.StrategyZimmo:
		if len(s.Config.URLs()) == 0 {
			return fmt.Errorf("strategy %s requires listingsUrl(s)", k)
		}
	}
	return nil
}

// builtinCatalogue mirrors the seeded agency list: Ghent-area agencies plus
// the Immoweb and Zimmo portals. Houses for sale only, € 450k–600k.
var builtinCatalogue = []sourceSpec{
	{
		Name:    "ERA Wonen Gent",
		Slug:    "era-wonen-gent",
		BaseURL: "https://www.era.be",
		Config: models.SourceConfig{
			Strategy: models.StrategyEraAPI,
			APIURL:   "https://www.era.be/nl/jsonapi/index/property_index?sort=broker--field_start_date&pager%5Boffset%5D=0&filter%5Bsale_or_rent%5D=sale&filter%5Bproperty_type%5D=46&filter%5Bprice%5D=%28min%3A450000%3Bmax%3A600000%29&filter%5Bamount_bedrooms%5D=%28min%3A3%3Bmax%3A%29&filter%5Bhabitable_area_m2%5D=%28min%3A160%3Bmax%3A%29&filter%5Boutside%5D=garden&filter%5Blocation%5D%5Bmunicipalities%5D=342&filter%5Blocation%5D%5Bsub_municipalities%5D=740+1104+1131+1298+1689+1808+1863+2066+2373+2380+2397+2631+2786+2828",
		},
	},
	{
		Name:    "Convas Gent",
		Slug:    "convas-gent",
		BaseURL: "https://www.convas.be",
		Config:  models.SourceConfig{Strategy: models.StrategyConvasAPI},
	},
	{
		Name:    "Cannoodt",
		Slug:    "cannoodt",
		BaseURL: "https://www.cannoodt.be",
		Config: models.SourceConfig{
			Strategy:    models.StrategyCannoodt,
			ListingsURL: "https://www.cannoodt.be/aanbod",
		},
	},
	{
		Name:    "Top Vastgoed",
		Slug:    "top-vastgoed",
		BaseURL: "https://topvastgoed.be",
		Config:  models.SourceConfig{Strategy: models.StrategyTopVastgoedAPI},
	},
	{
		Name:    "Immo Da Vinci",
		Slug:    "immo-da-vinci",
		BaseURL: "https://www.immodavinci.be",
		Config: models.SourceConfig{
			Strategy:    models.StrategyDaVinci,
			ListingsURL: "https://www.immodavinci.be/residentieel/kopen/woningen/9000-gent+9031-gent-drongen+9040-gent-sint-amandsberg+9040-gent+9041-gent-oostakker+9050-gent-gentbrugge+9050-gent-ledeberg+9051-gent+9051-gent-sint-denijs-westrem+9052-gent-zwijnaarde+9820-merelbeke?priceMax=600000",
		},
	},
	{
		Name:    "Oranjeberg",
		Slug:    "oranjeberg",
		BaseURL: "https://www.oranjeberg.be",
		Config: models.SourceConfig{
			Strategy:    models.StrategyOranjeberg,
			ListingsURL: "https://www.oranjeberg.be/te-koop/residentieel",
		},
	},
	{
		Name:    "Immo Francois",
		Slug:    "immo-francois",
		BaseURL: "https://www.immofrancois.be",
		Config:  models.SourceConfig{Strategy: models.StrategyFrancoisAPI},
	},
	{
		Name:    "Trevi",
		Slug:    "trevi-gent",
		BaseURL: "https://www.trevi.be",
		Config: models.SourceConfig{
			Strategy:    models.StrategyTrevi,
			ListingsURL: "https://www.trevi.be/nl/panden-te-koop/huizen?purpose=0&pagenumber=&office=&estatecategory=1&zips%5B%5D=9070_Destelbergen&zips%5B%5D=9070_Heusden+%28O.Vl.%29&zips%5B%5D=9090_Melle&zips%5B%5D=9820_Merelbeke&zips%5B%5D=%5BStad%5D12_Gent+%2B+Deelgemeenten&minprice=450000&maxprice=600000&rooms=3&estateid=",
		},
	},
	{
		Name:    "Immoweb",
		Slug:    "immoweb",
		BaseURL: "https://www.immoweb.be",
		Config: models.SourceConfig{
			Strategy:    models.StrategyImmowebStatic,
			ListingsURL: "https://www.immoweb.be/en/search/house/for-sale?countries=BE&postalCodes=9000,9030,9031,9032,9040,9041,9050,9070,9090,9820,9940&minPrice=450000&maxPrice=600000&priceType=SALE_PRICE&page=1&orderBy=newest",
		},
	},
	{
		Name:    "Zimmo",
		Slug:    "zimmo",
		BaseURL: "https://www.zimmo.be",
		Config: models.SourceConfig{
			Strategy:    models.StrategyZimmo,
			ListingsURL: "https://www.zimmo.be/nl/zoeken/?search=eyJmaWx0ZXIiOnsic3RhdHVzIjp7ImluIjpbIkZPUl9TQUxFIiwiVEFLRV9PVkVSIl19LCJjYXRlZ29yeSI6eyJpbiI6WyJIT1VTRSJdfSwicHJpY2UiOnsidW5rbm93biI6dHJ1ZSwicmFuZ2UiOnsibWluIjo0NTAwMDAsIm1heCI6NjAwMDAwfX0sImJlZHJvb21zIjp7InVua25vd24iOnRydWUsInJhbmdlIjp7Im1pbiI6M319LCJwbGFjZUlkIjp7ImluIjpbMTUwNiwxNTE4LDE1MTcsMTUxOSwxNTExLDE1MTAsMTUxMiwxNTEzLDE1MTUsMTUxNiwxNTE0LDE1MjgsMTUyOSwxNTMwLDE0OTQsMTQ5NV19fSwicGFnaW5nIjp7ImZyb20iOjAsInNpemUiOjE3fSwic29ydGluZyI6W3sidHlwZSI6IkRBVEUiLCJvcmRlciI6IkRFU0MifV19&p=1#gallery",
		},
	},
}
