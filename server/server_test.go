package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"ghent-immo-scraper/models"
	"ghent-immo-scraper/utils"
)

type stubRunner struct {
	results map[string]models.SourceResult
	err     error
	calls   int
}

func (r *stubRunner) Run(context.Context) (map[string]models.SourceResult, error) {
	r.calls++
	return r.results, r.err
}

func TestHealthz(t *testing.T) {
	s := New(":0", &stubRunner{}, "", utils.NewTestLogger())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestScrapeReturnsPerSourceCounts(t *testing.T) {
	runner := &stubRunner{results: map[string]models.SourceResult{
		"era":    {Added: 3, Updated: 1},
		"convas": {Added: 0, Updated: 5},
	}}
	s := New(":0", runner, "", utils.NewTestLogger())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scrape", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		OK      bool                           `json:"ok"`
		Sources map[string]models.SourceResult `json:"sources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.Sources["era"].Added != 3 || body.Sources["convas"].Updated != 5 {
		t.Errorf("body = %+v", body)
	}
	if runner.calls != 1 {
		t.Errorf("runner calls = %d, want 1", runner.calls)
	}
}

func TestScrapeRequiresSecretWhenConfigured(t *testing.T) {
	runner := &stubRunner{results: map[string]models.SourceResult{}}
	s := New(":0", runner, "hunter2", utils.NewTestLogger())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scrape", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}
	if runner.calls != 0 {
		t.Fatal("runner must not run without a valid token")
	}

	req := httptest.NewRequest(http.MethodPost, "/scrape", nil)
	req.Header.Set("Authorization", "Bearer hunter2")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestScrapeReportsPassFailure(t *testing.T) {
	s := New(":0", &stubRunner{err: errors.New("db down")}, "", utils.NewTestLogger())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/scrape", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
