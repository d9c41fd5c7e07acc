package store

import (
	"context"
	"fmt"

	"save-parser/internal/country"
	"save-parser/internal/worker"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS save_runs (
    id         BIGSERIAL PRIMARY KEY,
    name       TEXT NOT NULL,
    save_hash  TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS country_totals (
    run_id                    BIGINT NOT NULL REFERENCES save_runs(id) ON DELETE CASCADE,
    tag                       TEXT NOT NULL,
    provinces                 INTEGER NOT NULL,
    total_rural_pop           INTEGER NOT NULL,
    total_urban_pop           INTEGER NOT NULL,
    total_wealth_growth       REAL NOT NULL,
    total_urban_wealth_growth REAL NOT NULL,
    profile                   vector(4) NOT NULL,
    PRIMARY KEY (run_id, tag)
);

CREATE TABLE IF NOT EXISTS country_provinces (
    run_id              BIGINT NOT NULL,
    tag                 TEXT NOT NULL,
    seq                 INTEGER NOT NULL,
    name                TEXT NOT NULL,
    rural_pop           INTEGER NOT NULL,
    urban_pop           INTEGER NOT NULL,
    wealth_total_growth REAL NOT NULL,
    wealth_urban_growth REAL NOT NULL,
    PRIMARY KEY (run_id, tag, seq),
    FOREIGN KEY (run_id, tag) REFERENCES country_totals(run_id, tag) ON DELETE CASCADE
);
`

// PostgresStore persists runs in PostgreSQL with pgvector country profiles.
type PostgresStore struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewPostgresStore wraps an open pool. batchSize bounds the number of
// province rows queued per round trip.
func NewPostgresStore(pool *pgxpool.Pool, batchSize int) *PostgresStore {
	return &PostgresStore{pool: pool, batchSize: batchSize}
}

// OpenPostgres connects to databaseURL and ensures the schema.
func OpenPostgres(ctx context.Context, databaseURL string, batchSize int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")

	s := NewPostgresStore(pool, batchSize)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the extension and tables if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	log.Info().Msg("PostgreSQL schema ensured")
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// SaveRun writes the run, its country totals and provinces in one transaction.
func (s *PostgresStore) SaveRun(ctx context.Context, run Run) (int64, error) {
	if err := run.validate(); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO save_runs (name, save_hash) VALUES ($1, $2) RETURNING id`,
		run.Name, run.SaveHash,
	).Scan(&runID)
	if err != nil {
		return 0, fmt.Errorf("insert save run: %w", err)
	}

	countryBatch := &pgx.Batch{}
	for _, tag := range country.SortedTags(run.Countries) {
		c := run.Countries[tag]
		countryBatch.Queue(`
			INSERT INTO country_totals (
			    run_id, tag, provinces, total_rural_pop, total_urban_pop,
			    total_wealth_growth, total_urban_wealth_growth, profile
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			runID, c.Tag, len(c.Provinces), c.TotalRuralPop, c.TotalUrbanPop,
			c.TotalWealthGrowth, c.TotalUrbanWealthGrowth, pgvector.NewVector(c.Profile()),
		)
	}
	if err := tx.SendBatch(ctx, countryBatch).Close(); err != nil {
		return 0, fmt.Errorf("insert country totals: %w", err)
	}

	rows := provinceRows(run.Countries)
	for _, chunk := range worker.Batch(rows, s.batchSize) {
		b := &pgx.Batch{}
		for _, r := range chunk {
			b.Queue(`
				INSERT INTO country_provinces (
				    run_id, tag, seq, name, rural_pop, urban_pop,
				    wealth_total_growth, wealth_urban_growth
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				runID, r.tag, r.seq, r.p.Name, r.p.RuralPop, r.p.UrbanPop,
				r.p.WealthTotalGrowth, r.p.WealthUrbanGrowth,
			)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return 0, fmt.Errorf("insert provinces: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit save run: %w", err)
	}

	log.Info().
		Int64("run_id", runID).
		Int("countries", len(run.Countries)).
		Int("provinces", len(rows)).
		Msg("Stored save run")
	return runID, nil
}

// SimilarCountry is a similarity search match.
type SimilarCountry struct {
	Tag      string
	Distance float64
}

// Similar returns the k countries of a run whose profile is closest to tag's.
func (s *PostgresStore) Similar(ctx context.Context, runID int64, tag string, k int) ([]SimilarCountry, error) {
	var profile pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT profile FROM country_totals WHERE run_id = $1 AND tag = $2`,
		runID, tag,
	).Scan(&profile)
	if err != nil {
		return nil, fmt.Errorf("load profile of %s: %w", tag, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT tag, profile <-> $3 AS distance
		FROM country_totals
		WHERE run_id = $1 AND tag <> $2
		ORDER BY distance
		LIMIT $4`,
		runID, tag, profile, k,
	)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	matches, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SimilarCountry, error) {
		var m SimilarCountry
		err := row.Scan(&m.Tag, &m.Distance)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("read similarity rows: %w", err)
	}
	return matches, nil
}
