package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"ghent-immo-scraper/models"
)

// Postgres persists sources and listings. One instance is shared read/write
// across a whole ingestion pass; no transaction spans more than one listing.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens a connection, waits for the server, and runs the inline
// schema migration.
func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS sources (
			id          SERIAL PRIMARY KEY,
			name        TEXT NOT NULL,
			slug        TEXT NOT NULL UNIQUE,
			website_url TEXT NOT NULL,
			config      JSONB NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS listings (
			id                SERIAL PRIMARY KEY,
			source_id         INTEGER NOT NULL REFERENCES sources(id),
			external_id       TEXT NOT NULL,
			url               TEXT NOT NULL,
			title             TEXT NOT NULL,
			price             INTEGER NOT NULL,
			bedrooms          INTEGER,
			living_surface_m2 DOUBLE PRECISION,
			has_garden        BOOLEAN NOT NULL DEFAULT FALSE,
			municipality      TEXT,
			description       TEXT,
			image_url         TEXT,
			first_seen_at     TIMESTAMPTZ NOT NULL,
			last_seen_at      TIMESTAMPTZ NOT NULL,
			deleted_at        TIMESTAMPTZ,
			UNIQUE (source_id, external_id)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price        ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_municipality ON listings(municipality);
		CREATE INDEX IF NOT EXISTS idx_listings_last_seen    ON listings(last_seen_at);
	`)
	return err
}

// SeedSources upserts the catalogue by slug and returns it with assigned ids.
func (p *Postgres) SeedSources(ctx context.Context, sources []models.Source) ([]models.Source, error) {
	out := make([]models.Source, 0, len(sources))
	for _, s := range sources {
		cfg, err := json.Marshal(s.Config)
		if err != nil {
			return nil, fmt.Errorf("postgres: marshal config for %s: %w", s.Slug, err)
		}
		var id int64
		err = p.db.QueryRowContext(ctx, `
			INSERT INTO sources (name, slug, website_url, config)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (slug) DO UPDATE
			SET name = EXCLUDED.name,
			    website_url = EXCLUDED.website_url,
			    config = EXCLUDED.config
			RETURNING id
		`, s.Name, s.Slug, s.BaseURL, cfg).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("postgres: seed source %s: %w", s.Slug, err)
		}
		s.ID = id
		out = append(out, s)
	}
	return out, nil
}

// ListSources returns all configured sources in id order.
func (p *Postgres) ListSources(ctx context.Context) ([]models.Source, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, name, slug, website_url, config
		FROM sources
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sources: %w", err)
	}
	defer rows.Close()

	var sources []models.Source
	for rows.Next() {
		var s models.Source
		var cfg []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.BaseURL, &cfg); err != nil {
			return nil, fmt.Errorf("postgres: scan source: %w", err)
		}
		if err := json.Unmarshal(cfg, &s.Config); err != nil {
			return nil, fmt.Errorf("postgres: config for %s: %w", s.Slug, err)
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// Upsert reconciles one candidate against the store inside a single
// transaction. The row lock plus the (source_id, external_id) unique
// constraint keep concurrent invocations from inserting duplicates: a racing
// insert degrades to UpsertNoop.
func (p *Postgres) Upsert(ctx context.Context, l models.Listing, now time.Time) (UpsertOutcome, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertNoop, fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	var id int64
	var deletedAt sql.NullTime
	err = tx.QueryRowContext(ctx, `
		SELECT id, deleted_at
		FROM listings
		WHERE source_id = $1 AND external_id = $2
		FOR UPDATE
	`, l.SourceID, l.ExternalID).Scan(&id, &deletedAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO listings (
				source_id, external_id, url, title, price, bedrooms,
				living_surface_m2, has_garden, municipality, description,
				image_url, first_seen_at, last_seen_at
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
			ON CONFLICT (source_id, external_id) DO NOTHING
		`, l.SourceID, l.ExternalID, l.URL, l.Title, l.Price, l.Bedrooms,
			l.LivingSurfaceM2, l.HasGarden, l.Municipality, l.Description,
			l.ImageURL, now)
		if err != nil {
			return UpsertNoop, fmt.Errorf("postgres: insert listing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return UpsertNoop, fmt.Errorf("postgres: commit: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return UpsertNoop, nil
		}
		return UpsertInserted, nil

	case err != nil:
		return UpsertNoop, fmt.Errorf("postgres: select listing: %w", err)
	}

	if deletedAt.Valid {
		// Soft-deleted records are never resurrected or refreshed.
		return UpsertSkippedDeleted, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE listings
		SET url = $2, title = $3, price = $4, bedrooms = $5,
		    living_surface_m2 = $6, has_garden = $7, municipality = $8,
		    description = $9, image_url = $10, last_seen_at = $11
		WHERE id = $1
	`, id, l.URL, l.Title, l.Price, l.Bedrooms, l.LivingSurfaceM2,
		l.HasGarden, l.Municipality, l.Description, l.ImageURL, now)
	if err != nil {
		return UpsertNoop, fmt.Errorf("postgres: update listing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return UpsertNoop, fmt.Errorf("postgres: commit: %w", err)
	}
	return UpsertUpdated, nil
}

// FetchActive returns all non-soft-deleted listings ordered by id.
func (p *Postgres) FetchActive(ctx context.Context) ([]*models.StoredListing, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, source_id, external_id, url, title, price, bedrooms,
		       living_surface_m2, has_garden, municipality, description,
		       image_url, first_seen_at, last_seen_at
		FROM listings
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch active: %w", err)
	}
	defer rows.Close()

	var listings []*models.StoredListing
	for rows.Next() {
		l := &models.StoredListing{}
		var municipality sql.NullString
		if err := rows.Scan(
			&l.ID, &l.SourceID, &l.ExternalID, &l.URL, &l.Title, &l.Price,
			&l.Bedrooms, &l.LivingSurfaceM2, &l.HasGarden, &municipality,
			&l.Description, &l.ImageURL, &l.FirstSeenAt, &l.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		l.Municipality = municipality.String
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
