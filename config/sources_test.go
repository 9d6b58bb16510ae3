package config

import (
	"os"
	"path/filepath"
	"testing"

	"ghent-immo-scraper/models"
)

func TestLoadSourcesBuiltin(t *testing.T) {
	sources, err := LoadSources("")
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 10 {
		t.Fatalf("builtin catalogue: got %d sources, want 10", len(sources))
	}
	for _, s := range sources {
		if !s.Config.Strategy.Valid() {
			t.Errorf("%s: invalid strategy %q", s.Slug, s.Config.Strategy)
		}
	}
}

func TestLoadSourcesFromYAML(t *testing.T) {
	yml := `
sources:
  - name: Test Agency
    slug: test-agency
    websiteUrl: https://www.test.be
    config:
      strategy: browser-generic
      listingsUrl: https://www.test.be/te-koop
      linkSelector: "a[href*='/te-koop/']"
`
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("LoadSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("got %d sources, want 1", len(sources))
	}
	if sources[0].Config.Strategy != models.StrategyBrowserGeneric {
		t.Errorf("strategy = %q", sources[0].Config.Strategy)
	}
	if sources[0].Config.LinkSelector == "" {
		t.Error("linkSelector not parsed")
	}
}

func TestLoadSourcesRejectsUnknownStrategy(t *testing.T) {
	yml := `
sources:
  - name: Bad
    slug: bad
    websiteUrl: https://www.bad.be
    config:
      strategy: guesswork
`
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSources(path); err == nil {
		t.Fatal("expected error for unknown strategy tag")
	}
}

func TestLoadSourcesRejectsMissingListingsURL(t *testing.T) {
	yml := `
sources:
  - name: Bad
    slug: bad
    websiteUrl: https://www.bad.be
    config:
      strategy: browser-generic
`
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadSources(path); err == nil {
		t.Fatal("expected error for browser-generic without listingsUrl")
	}
}
