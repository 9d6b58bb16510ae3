package models

import "time"

// StrategyKind selects the fetch strategy for a source. Tags are resolved
// against the registry at configuration-load time, never inferred from the
// source URL at run time.
type StrategyKind string

const (
	StrategyEraAPI         StrategyKind = "era-api"
	StrategyConvasAPI      StrategyKind = "convas-api"
	StrategyFrancoisAPI    StrategyKind = "francois-api"
	StrategyTopVastgoedAPI StrategyKind = "topvastgoed-api"
	StrategyImmowebStatic  StrategyKind = "immoweb-static"
	StrategyBrowserGeneric StrategyKind = "browser-generic"
	StrategyCannoodt       StrategyKind = "browser-cannoodt"
	StrategyDaVinci        StrategyKind = "browser-davinci"
	StrategyOranjeberg     StrategyKind = "browser-oranjeberg"
	StrategyTrevi          StrategyKind = "browser-trevi"
	StrategyZimmo          StrategyKind = "browser-zimmo"
)

// Valid reports whether the tag names a known strategy.
func (k StrategyKind) Valid() bool {
	switch k {
	case StrategyEraAPI, StrategyConvasAPI, StrategyFrancoisAPI,
		StrategyTopVastgoedAPI, StrategyImmowebStatic, StrategyBrowserGeneric,
		StrategyCannoodt, StrategyDaVinci, StrategyOranjeberg, StrategyTrevi,
		StrategyZimmo:
		return true
	}
	return false
}

// NeedsBrowser reports whether the strategy requires a rendered browser page.
func (k StrategyKind) NeedsBrowser() bool {
	switch k {
	case StrategyBrowserGeneric, StrategyCannoodt, StrategyDaVinci,
		StrategyOranjeberg, StrategyTrevi, StrategyZimmo:
		return true
	}
	return false
}

// SourceConfig holds the strategy tag plus the per-strategy parameters.
// Which fields matter depends on the tag; Validate runs at catalogue load so
// fetch time never sees a half-configured source.
type SourceConfig struct {
	Strategy StrategyKind `yaml:"strategy" json:"strategy"`

	// APIURL overrides the default API endpoint (era-api).
	APIURL string `yaml:"apiUrl,omitempty" json:"apiUrl,omitempty"`

	// ListingsURL / ListingsURLs drive page-based strategies. Multiple URLs
	// (e.g. one per city) are fetched in order and deduped.
	ListingsURL  string   `yaml:"listingsUrl,omitempty" json:"listingsUrl,omitempty"`
	ListingsURLs []string `yaml:"listingsUrls,omitempty" json:"listingsUrls,omitempty"`

	// Selector overrides for the generic browser adapter.
	LinkSelector  string `yaml:"linkSelector,omitempty" json:"linkSelector,omitempty"`
	TitleSelector string `yaml:"titleSelector,omitempty" json:"titleSelector,omitempty"`
	PriceSelector string `yaml:"priceSelector,omitempty" json:"priceSelector,omitempty"`
	ImageSelector string `yaml:"imageSelector,omitempty" json:"imageSelector,omitempty"`
}

// URLs returns the configured listing URLs, preferring the plural form.
func (c SourceConfig) URLs() []string {
	if len(c.ListingsURLs) > 0 {
		return c.ListingsURLs
	}
	if c.ListingsURL != "" {
		return []string{c.ListingsURL}
	}
	return nil
}

// Source is one configured listing provider. Immutable at run time.
type Source struct {
	ID      int64
	Name    string
	Slug    string
	BaseURL string
	Config  SourceConfig
}

// Listing is the canonical, cross-source record every strategy converges to.
// It lives for one fetch pass and is then reconciled into the store.
type Listing struct {
	SourceID        int64
	ExternalID      string
	URL             string
	Title           string
	Price           int
	Bedrooms        *int
	LivingSurfaceM2 *float64
	HasGarden       bool
	Municipality    string
	Description     *string
	ImageURL        *string
}

// StoredListing is a Listing plus its lifecycle metadata as persisted.
// DeletedAt is foreign state: set outside the pipeline, only ever read here.
type StoredListing struct {
	ID int64
	Listing
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	DeletedAt   *time.Time
}

// Active reports whether the listing has not been soft-deleted.
func (s *StoredListing) Active() bool { return s.DeletedAt == nil }

// SourceResult is the per-source outcome of one ingestion pass.
type SourceResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// IntPtr, FloatPtr and StringPtr lift literals into optional fields.
func IntPtr(v int) *int { return &v }

func FloatPtr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }
