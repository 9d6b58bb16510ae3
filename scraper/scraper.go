// Package scraper wires strategy tags to their fetch implementations.
package scraper

import (
	"fmt"
	"net/http"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/scraper/browser"
	"ghent-immo-scraper/scraper/convas"
	"ghent-immo-scraper/scraper/era"
	"ghent-immo-scraper/scraper/fetch"
	"ghent-immo-scraper/scraper/francois"
	"ghent-immo-scraper/scraper/immoweb"
	"ghent-immo-scraper/scraper/topvastgoed"
	"ghent-immo-scraper/utils"
)

// Registry resolves a source's strategy tag to a Fetcher. Resolution happens
// up front so an unknown or unavailable tag fails the pass before any
// network traffic.
type Registry struct {
	fetchers map[models.StrategyKind]fetch.Fetcher
}

// NewRegistry builds the full strategy table. renderer may be nil when no
// configured source needs a browser; the browser-backed tags are then left
// out and resolving one becomes an error.
func NewRegistry(client *http.Client, renderer browser.Renderer, opts fetch.Options, logger *utils.Logger) *Registry {
	fetchers := map[models.StrategyKind]fetch.Fetcher{
		models.StrategyEraAPI:         era.New(client, opts, logger),
		models.StrategyConvasAPI:      convas.New(client, opts, logger),
		models.StrategyFrancoisAPI:    francois.New(client, opts, logger),
		models.StrategyTopVastgoedAPI: topvastgoed.New(client, opts, logger),
		models.StrategyImmowebStatic:  immoweb.New(client, opts, logger),
	}
	if renderer != nil {
		fetchers[models.StrategyBrowserGeneric] = browser.NewGeneric(renderer, opts, logger)
		fetchers[models.StrategyCannoodt] = browser.NewCannoodt(renderer, opts, logger)
		fetchers[models.StrategyDaVinci] = browser.NewDaVinci(renderer, opts, logger)
		fetchers[models.StrategyOranjeberg] = browser.NewOranjeberg(renderer, opts, logger)
		fetchers[models.StrategyTrevi] = browser.NewTrevi(renderer, opts, logger)
		fetchers[models.StrategyZimmo] = browser.NewZimmo(renderer, opts, logger)
	}
	return &Registry{fetchers: fetchers}
}

// Resolve returns the fetcher for a source's strategy tag.
func (r *Registry) Resolve(src models.Source) (fetch.Fetcher, error) {
	f, ok := r.fetchers[src.Config.Strategy]
	if !ok {
		if src.Config.Strategy.NeedsBrowser() {
			return nil, fmt.Errorf("strategy %q for source %q needs a browser session", src.Config.Strategy, src.Slug)
		}
		return nil, fmt.Errorf("unknown strategy %q for source %q", src.Config.Strategy, src.Slug)
	}
	return f, nil
}
