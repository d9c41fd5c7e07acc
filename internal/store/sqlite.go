package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"save-parser/internal/country"
	"save-parser/internal/store/migrations"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const migrationTable = "schema_migrations"

// SQLiteStore persists runs in a local SQLite file.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLite opens path and applies embedded migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun writes the run, its country totals and provinces in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := run.validate(); err != nil {
		return 0, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO save_runs (name, save_hash, created_at) VALUES (?, ?, ?)`,
		run.Name, run.SaveHash, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert save run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read run id: %w", err)
	}

	for _, tag := range country.SortedTags(run.Countries) {
		c := run.Countries[tag]
		_, err := tx.ExecContext(ctx,
			`INSERT INTO country_totals (
			   run_id, tag, provinces, total_rural_pop, total_urban_pop,
			   total_wealth_growth, total_urban_wealth_growth
			 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, c.Tag, len(c.Provinces), c.TotalRuralPop, c.TotalUrbanPop,
			c.TotalWealthGrowth, c.TotalUrbanWealthGrowth,
		)
		if err != nil {
			return 0, fmt.Errorf("insert country %s: %w", c.Tag, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO country_provinces (
		   run_id, tag, seq, name, rural_pop, urban_pop,
		   wealth_total_growth, wealth_urban_growth
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare province insert: %w", err)
	}
	defer stmt.Close()

	rows := provinceRows(run.Countries)
	for _, r := range rows {
		_, err := stmt.ExecContext(ctx,
			runID, r.tag, r.seq, r.p.Name, r.p.RuralPop, r.p.UrbanPop,
			r.p.WealthTotalGrowth, r.p.WealthUrbanGrowth,
		)
		if err != nil {
			return 0, fmt.Errorf("insert province %s/%d: %w", r.tag, r.seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit save run: %w", err)
	}

	log.Info().
		Int64("run_id", runID).
		Int("countries", len(run.Countries)).
		Int("provinces", len(rows)).
		Msg("Stored save run")
	return runID, nil
}

// CountryTotals returns the stored totals of a run ordered by tag.
func (s *SQLiteStore) CountryTotals(ctx context.Context, runID int64) ([]CountryTotals, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT tag, provinces, total_rural_pop, total_urban_pop,
		        total_wealth_growth, total_urban_wealth_growth
		   FROM country_totals
		  WHERE run_id = ?
		  ORDER BY tag`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query country totals: %w", err)
	}
	defer rows.Close()

	var out []CountryTotals
	for rows.Next() {
		var ct CountryTotals
		if err := rows.Scan(&ct.Tag, &ct.Provinces, &ct.TotalRuralPop, &ct.TotalUrbanPop,
			&ct.TotalWealthGrowth, &ct.TotalUrbanWealthGrowth); err != nil {
			return nil, fmt.Errorf("scan country totals: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate country totals: %w", err)
	}
	return out, nil
}

// ProvinceNames returns the province names of one country in stored order.
func (s *SQLiteStore) ProvinceNames(ctx context.Context, runID int64, tag string) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT name FROM country_provinces WHERE run_id = ? AND tag = ? ORDER BY seq`,
		runID, tag,
	)
	if err != nil {
		return nil, fmt.Errorf("query provinces: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan province: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// applyMigrations executes every embedded .sql file at most once.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`, migrationTable)
	if _, err := sqlDB.Exec(createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		upSQL := upMigration(string(content))
		if strings.TrimSpace(upSQL) == "" {
			continue
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
		log.Debug().Str("migration", file).Msg("Applied migration")
	}
	return nil
}

// upMigration returns the SQL in the "-- +migrate Up" section.
func upMigration(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	upIdx := strings.Index(content, up)
	if upIdx == -1 {
		return content
	}
	rest := content[upIdx+len(up):]
	if downIdx := strings.Index(rest, down); downIdx != -1 {
		return rest[:downIdx]
	}
	return rest
}
