package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"ghent-immo-scraper/models"
)

// Memory is an in-memory ListingStore used by tests and dry runs. It mirrors
// the Postgres upsert semantics, including soft-delete handling.
type Memory struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[memKey]*models.StoredListing
	failing bool
}

type memKey struct {
	sourceID   int64
	externalID string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, rows: make(map[memKey]*models.StoredListing)}
}

// FailWrites makes every subsequent Upsert return an error. Used to test
// store-error propagation.
func (m *Memory) FailWrites(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = fail
}

func (m *Memory) Upsert(_ context.Context, l models.Listing, now time.Time) (UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failing {
		return UpsertNoop, errWriteFailed
	}

	key := memKey{l.SourceID, l.ExternalID}
	existing, ok := m.rows[key]
	if !ok {
		m.rows[key] = &models.StoredListing{
			ID:          m.nextID,
			Listing:     l,
			FirstSeenAt: now,
			LastSeenAt:  now,
		}
		m.nextID++
		return UpsertInserted, nil
	}

	if existing.DeletedAt != nil {
		return UpsertSkippedDeleted, nil
	}

	existing.Listing = l
	existing.LastSeenAt = now
	return UpsertUpdated, nil
}

// Get returns the stored listing for a key, or nil.
func (m *Memory) Get(sourceID int64, externalID string) *models.StoredListing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[memKey{sourceID, externalID}]
}

// SoftDelete marks a listing deleted, standing in for the external deletion
// flow the pipeline must respect but never perform.
func (m *Memory) SoftDelete(sourceID int64, externalID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[memKey{sourceID, externalID}]; ok {
		row.DeletedAt = &at
	}
}

func (m *Memory) FetchActive(_ context.Context) ([]*models.StoredListing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.StoredListing
	for _, row := range m.rows {
		if row.Active() {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the total number of rows, soft-deleted included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

var errWriteFailed = &storeError{"memory: write failed"}

type storeError struct{ msg string }

func (e *storeError) Error() string { return e.msg }
