// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Moufidzakaria/jumia-api-scraping/internal/catalog"
)

// RecordStoreConfig controls the Postgres connection pool used for records.
type RecordStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RecordStore implements catalog.RecordStore against Postgres.
//
// Expected schema:
//
//	CREATE TABLE records (
//		id UUID PRIMARY KEY,
//		natural_key TEXT NOT NULL UNIQUE,
//		title TEXT NOT NULL,
//		display_price TEXT NOT NULL DEFAULT '',
//		numeric_price BIGINT NOT NULL DEFAULT 0,
//		image_url TEXT NOT NULL DEFAULT '',
//		category TEXT NOT NULL DEFAULT 'Uncategorized',
//		source_page TEXT NOT NULL DEFAULT '',
//		created_at TIMESTAMPTZ NOT NULL,
//		updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX records_numeric_price_idx ON records (numeric_price);
//	CREATE INDEX records_title_trgm_idx ON records USING gin (title gin_trgm_ops);
type RecordStore struct {
	pool  querier
	idGen catalog.IDGenerator
	clock catalog.Clock
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(
	ctx context.Context,
	cfg RecordStoreConfig,
	idGen catalog.IDGenerator,
	clock catalog.Clock,
) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewRecordStoreWithPool(pool, idGen, clock)
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool querier, idGen catalog.IDGenerator, clock catalog.Clock) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if idGen == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	return &RecordStore{pool: pool, idGen: idGen, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const recordColumns = `id, natural_key, title, display_price, numeric_price, image_url, category, source_page, created_at, updated_at`

const upsertQuery = `
INSERT INTO records (id, natural_key, title, display_price, numeric_price, image_url, category, source_page, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (natural_key) DO UPDATE SET
	title = EXCLUDED.title,
	display_price = EXCLUDED.display_price,
	numeric_price = EXCLUDED.numeric_price,
	image_url = EXCLUDED.image_url,
	category = EXCLUDED.category,
	source_page = EXCLUDED.source_page,
	updated_at = EXCLUDED.updated_at
RETURNING ` + recordColumns

// Upsert inserts or updates atomically on the natural-key constraint. The
// fresh ID and created_at only land on a genuine insert; on conflict the
// database keeps the existing row's identity and the RETURNING clause hands
// it back.
func (s *RecordStore) Upsert(ctx context.Context, draft catalog.Draft) (catalog.Record, error) {
	draft, err := draft.Normalize()
	if err != nil {
		return catalog.Record{}, err
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return catalog.Record{}, fmt.Errorf("generate record id: %w", err)
	}
	now := s.clock.Now()
	row := s.pool.QueryRow(ctx, upsertQuery,
		id,
		draft.NaturalKey,
		draft.Title,
		draft.DisplayPrice,
		catalog.NumericPrice(draft.DisplayPrice),
		draft.ImageURL,
		draft.Category,
		draft.SourcePage,
		now,
	)
	rec, err := scanRecord(row)
	if err != nil {
		return catalog.Record{}, fmt.Errorf("upsert record: %w", err)
	}
	return rec, nil
}

// FindByID fetches a single record.
func (s *RecordStore) FindByID(ctx context.Context, id string) (catalog.Record, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Record{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Record{}, fmt.Errorf("find record by id: %w", err)
	}
	return rec, nil
}

// FindByText matches titles case-insensitively, most recent first.
func (s *RecordStore) FindByText(ctx context.Context, query string, limit int) ([]catalog.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE title ILIKE '%' || $1 || '%' ORDER BY created_at DESC LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return collectRecords(rows)
}

// FindByPriceRange returns records whose numeric price lies in [min, max],
// most recent first.
func (s *RecordStore) FindByPriceRange(ctx context.Context, min, max int64, limit int) ([]catalog.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records WHERE numeric_price BETWEEN $1 AND $2 ORDER BY created_at DESC LIMIT $3`,
		min, max, limit)
	if err != nil {
		return nil, fmt.Errorf("query price range: %w", err)
	}
	return collectRecords(rows)
}

// ListRecent returns the most recently created records.
func (s *RecordStore) ListRecent(ctx context.Context, limit int) ([]catalog.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM records ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	return collectRecords(rows)
}

// ListDistinctCategories enumerates categories excluding the sentinel.
func (s *RecordStore) ListDistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT category FROM records WHERE category <> $1 ORDER BY category`,
		catalog.CategoryUncategorized)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func scanRecord(row pgx.Row) (catalog.Record, error) {
	var rec catalog.Record
	err := row.Scan(
		&rec.ID,
		&rec.NaturalKey,
		&rec.Title,
		&rec.DisplayPrice,
		&rec.NumericPrice,
		&rec.ImageURL,
		&rec.Category,
		&rec.SourcePage,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return catalog.Record{}, err
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]catalog.Record, error) {
	defer rows.Close()
	var recs []catalog.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return recs, nil
}
