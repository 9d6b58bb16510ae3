// Package services holds the pass-level pipeline stages: filtering fetched
// listings, reconciling them into the store and reporting on the result.
package services

import (
	"strings"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/normalize"
	"ghent-immo-scraper/utils"
)

// nonHouseKeywords mark a listing as something other than a single house.
// Matched case-insensitively against title plus description.
var nonHouseKeywords = []string{
	"appartement",
	"apartment",
	"flat",
	"studio",
	"bouwgrond",
	"building ground",
	"bouwgronden",
	"perceel",
	"kavel",
	"grond te koop",
	"meergezinswoning", // multi-family building
}

// allowedMunicipalities is the Ghent-area allowlist. Matching is
// case-insensitive on the trimmed name.
var allowedMunicipalities = []string{
	"Gent",
	"Gentbrugge",
	"Melle",
	"Merelbeke",
	"Merelbeke-Melle",
	"Sint-Amandsberg",
	"Drongen",
	"Mariakerke",
	"Wondelgem",
	"Zwijnaarde",
	"Oostakker",
	"Destelbergen",
	"Heusen",
}

// Filter applies the cross-source acceptance policy to fetched listings.
// Rejections are policy, not errors; they are logged at debug level.
type Filter struct {
	priceMin int
	priceMax int
	logger   *utils.Logger

	allowed map[string]struct{}
}

func NewFilter(priceMin, priceMax int, logger *utils.Logger) *Filter {
	allowed := make(map[string]struct{}, len(allowedMunicipalities))
	for _, m := range allowedMunicipalities {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &Filter{priceMin: priceMin, priceMax: priceMax, logger: logger, allowed: allowed}
}

// Apply returns the listings that pass every acceptance rule, preserving
// order.
func (f *Filter) Apply(items []models.Listing) []models.Listing {
	kept := make([]models.Listing, 0, len(items))
	for _, item := range items {
		if reason := f.reject(item); reason != "" {
			f.logger.Debug("filter: dropping %s: %s", item.URL, reason)
			continue
		}
		kept = append(kept, item)
	}
	return kept
}

// reject names the first failing rule, or "" when the listing passes.
func (f *Filter) reject(item models.Listing) string {
	if item.Price <= 0 {
		return "no price"
	}
	if item.Price < f.priceMin || item.Price > f.priceMax {
		return "price out of band"
	}

	text := item.Title
	if item.Description != nil {
		text += " " + *item.Description
	}
	if normalize.IsSoldOrRentedFromText(text) {
		return "sold or rented"
	}
	lower := strings.ToLower(text)
	for _, kw := range nonHouseKeywords {
		if strings.Contains(lower, kw) {
			return "non-house keyword: " + kw
		}
	}

	// Unknown municipalities pass; the allowlist only binds when a source
	// actually named one.
	municipality := strings.TrimSpace(item.Municipality)
	if municipality != "" && municipality != "Onbekend" {
		if _, ok := f.allowed[strings.ToLower(municipality)]; !ok {
			return "municipality not allowed: " + municipality
		}
	}

	return ""
}
