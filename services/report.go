package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/storage"
	"ghent-immo-scraper/utils"
)

// PassReport summarizes the active inventory after an ingestion pass.
type PassReport struct {
	TotalActive   int
	WithGarden    int
	MinPrice      int
	MaxPrice      int
	AveragePrice  float64
	MostExpensive *models.StoredListing

	ByMunicipality map[string]int
	BySource       map[int64]int
}

// ReportService builds and prints the post-pass summary.
type ReportService struct {
	reader storage.ListingReader
	logger *utils.Logger
}

func NewReportService(reader storage.ListingReader, logger *utils.Logger) *ReportService {
	return &ReportService{reader: reader, logger: logger}
}

func (s *ReportService) Generate(ctx context.Context) (*PassReport, error) {
	listings, err := s.reader.FetchActive(ctx)
	if err != nil {
		return nil, err
	}

	report := &PassReport{
		ByMunicipality: make(map[string]int),
		BySource:       make(map[int64]int),
	}
	if len(listings) == 0 {
		return report, nil
	}

	report.TotalActive = len(listings)
	report.MinPrice = listings[0].Price
	report.MaxPrice = listings[0].Price
	report.MostExpensive = listings[0]

	var total float64
	for _, l := range listings {
		total += float64(l.Price)
		if l.Price < report.MinPrice {
			report.MinPrice = l.Price
		}
		if l.Price > report.MaxPrice {
			report.MaxPrice = l.Price
			report.MostExpensive = l
		}
		if l.HasGarden {
			report.WithGarden++
		}
		if l.Municipality != "" {
			report.ByMunicipality[l.Municipality]++
		}
		report.BySource[l.SourceID]++
	}
	report.AveragePrice = total / float64(len(listings))

	return report, nil
}

func (s *ReportService) Print(r *PassReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n%s\n", sep)
	fmt.Printf("  GHENT HOUSE INVENTORY\n")
	fmt.Printf("%s\n\n", sep)

	fmt.Printf("  Overview\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Active listings : %d\n", r.TotalActive)
	fmt.Printf("  With garden     : %d\n", r.WithGarden)
	fmt.Println()

	fmt.Printf("  Price Statistics\n")
	fmt.Printf("  %s\n", thin)
	if r.TotalActive > 0 {
		fmt.Printf("  Average price : € %.0f\n", r.AveragePrice)
		fmt.Printf("  Minimum price : € %d\n", r.MinPrice)
		fmt.Printf("  Maximum price : € %d\n", r.MaxPrice)
	} else {
		fmt.Printf("  No listings stored\n")
	}
	fmt.Println()

	if r.MostExpensive != nil {
		fmt.Printf("  Most Expensive Listing\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Printf("  Municipality : %s\n", r.MostExpensive.Municipality)
		fmt.Printf("  Price        : € %d\n", r.MostExpensive.Price)
		fmt.Println()
	}

	fmt.Printf("  Listings by Municipality\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ByMunicipality) == 0 {
		fmt.Printf("  No municipality data\n")
	} else {
		type muniCount struct {
			name  string
			count int
		}
		var munis []muniCount
		for name, cnt := range r.ByMunicipality {
			munis = append(munis, muniCount{name, cnt})
		}
		sort.Slice(munis, func(i, j int) bool {
			if munis[i].count != munis[j].count {
				return munis[i].count > munis[j].count
			}
			return munis[i].name < munis[j].name
		})
		for _, mc := range munis {
			bar := strings.Repeat("█", mc.count)
			fmt.Printf("  %-30s %s (%d)\n", truncate(mc.name, 28), bar, mc.count)
		}
	}

	fmt.Printf("\n%s\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
