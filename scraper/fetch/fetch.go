// Package fetch holds the contract and shared plumbing for all fetch
// strategies: one strategy produces a finite sequence of canonical listings
// for one source and owns its own pagination termination.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ghent-immo-scraper/models"
)

// UserAgent identifies the aggregator to upstream sites.
const UserAgent = "GhentImmoScraper/1.0 (Personal project; listing aggregator for Ghent area)"

// Fetcher is the capability every strategy implements.
type Fetcher interface {
	Fetch(ctx context.Context, src models.Source) ([]models.Listing, error)
}

// Options carries the cross-strategy knobs: the global price band (enforced
// at the earliest point a price is known), pagination circuit breakers and
// courtesy pacing.
type Options struct {
	PriceMin  int
	PriceMax  int
	MaxPages  int
	PageDelay time.Duration
	DebugDir  string
}

// InBand reports whether the price falls inside the configured band,
// inclusive on both ends.
func (o Options) InBand(price int) bool {
	return price >= o.PriceMin && price <= o.PriceMax
}

// Pace sleeps the courtesy page delay, returning early on cancellation.
// Correctness never depends on it; tests run with a zero delay.
func (o Options) Pace(ctx context.Context) {
	if o.PageDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(o.PageDelay):
	}
}

// NewClient builds the shared HTTP client with the bounded per-request
// timeout every fetch must carry.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// GetJSON issues a GET and decodes a JSON body. Non-2xx responses are fetch
// errors, never silent truncation.
func GetJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	return doJSON(client, req, out)
}

// PostJSON issues a POST with a JSON body and decodes a JSON response.
// extraHeaders are applied on top of the defaults.
func PostJSON(ctx context.Context, client *http.Client, url string, body any, extraHeaders map[string]string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	return doJSON(client, req, out)
}

func doJSON(client *http.Client, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("fetch %s: status %d %s", req.URL, resp.StatusCode, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", req.URL, err)
	}
	return nil
}

// PostForm issues a form-encoded POST and returns the raw body together with
// the status code, letting callers that paginate over fragments decide how to
// treat a non-2xx page.
func PostForm(ctx context.Context, client *http.Client, url, form string, extraHeaders map[string]string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s: %w", url, err)
	}
	return body, resp.StatusCode, nil
}

// GetBody issues a GET with the given headers and returns the raw body.
func GetBody(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d %s", url, resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}
