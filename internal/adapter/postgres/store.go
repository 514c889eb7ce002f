// Package postgres persists assessments and their locations in PostgreSQL.
// The Store accepts a DBTX so it runs against a *pgxpool.Pool or a pgx.Tx.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Isheboy/SoilSense-AI/internal/domain"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Store implements domain.AssessmentStore.
type Store struct {
	db DBTX
}

var _ domain.AssessmentStore = (*Store)(nil)

// NewStore wraps db.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

// NewPool opens a connection pool and verifies it with a ping.
func NewPool(ctx context.Context, url string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS locations (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	longitude  DOUBLE PRECISION NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS analysis_results (
	id            UUID PRIMARY KEY,
	location_id   BIGINT NOT NULL REFERENCES locations(id) ON DELETE CASCADE,
	analysis_date DATE NOT NULL,
	result        JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_analysis_results_location_created
	ON analysis_results (location_id, created_at DESC);
`

// EnsureSchema creates the tables and index when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// The location row is upserted by name; an existing row keeps its
// coordinates. The no-op update makes RETURNING yield the existing id.
const saveAssessmentSQL = `
WITH loc AS (
	INSERT INTO locations (name, longitude, latitude)
	VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
	RETURNING id
)
INSERT INTO analysis_results (id, location_id, analysis_date, result, created_at)
SELECT $4, loc.id, $5::date, $6::jsonb, $7 FROM loc
RETURNING id`

// SaveAssessment upserts the location and appends the assessment.
func (s *Store) SaveAssessment(ctx context.Context, loc domain.Location, date string, a domain.Assessment) (string, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("encode assessment: %w", err)
	}

	var id string
	err = s.db.QueryRow(ctx, saveAssessmentSQL,
		loc.Name, loc.Lon, loc.Lat,
		uuid.NewString(), date, string(payload), domain.Now(),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save assessment for %q: %w", loc.Name, err)
	}
	return id, nil
}

const listLocationsSQL = `
SELECT id, name, longitude, latitude, created_at
FROM locations
ORDER BY name`

// ListLocations returns every stored location ordered by name.
func (s *Store) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := s.db.Query(ctx, listLocationsSQL)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	locations := []domain.Location{}
	for rows.Next() {
		var l domain.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Lon, &l.Lat, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate locations: %w", err)
	}
	return locations, nil
}

const locationExistsSQL = `SELECT EXISTS (SELECT 1 FROM locations WHERE id = $1)`

const locationHistorySQL = `
SELECT id::text, location_id, analysis_date, result, created_at
FROM analysis_results
WHERE location_id = $1
ORDER BY created_at DESC
LIMIT $2`

// LocationHistory returns up to limit records for a location, newest first.
// An unknown location yields domain.ErrLocationNotFound.
func (s *Store) LocationHistory(ctx context.Context, locationID int64, limit int) ([]domain.AnalysisRecord, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, locationExistsSQL, locationID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("lookup location %d: %w", locationID, err)
	}
	if !exists {
		return nil, fmt.Errorf("location %d: %w", locationID, domain.ErrLocationNotFound)
	}

	rows, err := s.db.Query(ctx, locationHistorySQL, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history for location %d: %w", locationID, err)
	}
	defer rows.Close()

	records := []domain.AnalysisRecord{}
	for rows.Next() {
		var (
			r       domain.AnalysisRecord
			date    time.Time
			payload []byte
		)
		if err := rows.Scan(&r.ID, &r.LocationID, &date, &payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan analysis record: %w", err)
		}
		if err := json.Unmarshal(payload, &r.Result); err != nil {
			return nil, fmt.Errorf("decode analysis record %s: %w", r.ID, err)
		}
		r.Date = date.Format(domain.DateLayout)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return records, nil
}

// Ping checks connectivity. Connections without a Ping method get a
// trivial query instead.
func (s *Store) Ping(ctx context.Context) error {
	if p, ok := s.db.(pinger); ok {
		return p.Ping(ctx)
	}
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}
