package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// migration file names are {version}_{name}.sql, e.g. 0001_outbound_payments.sql
var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

// Migration is one embedded schema change
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// MigrationResult lists what Migrate did
type MigrationResult struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

// ParseMigrations returns the embedded migrations ordered by version
func ParseMigrations() ([]Migration, error) {
	return parseMigrations(migrationsFS, migrationsDir)
}

func parseMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	var migrations []Migration
	seen := make(map[int]string)

	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := migrationFilePattern.FindStringSubmatch(path.Base(p))
		if matches == nil {
			return nil
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return fmt.Errorf("migration %s: %w", p, err)
		}
		if other, ok := seen[version]; ok {
			return fmt.Errorf("migrations %s and %s share version %d", other, p, version)
		}
		seen[version] = p

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		migrations = append(migrations, Migration{Version: version, Name: matches[2], SQL: string(content)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// MigrationStatus is an embedded migration and when it was applied, nil when pending
type MigrationStatus struct {
	Migration
	AppliedAt *time.Time
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INT PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type appliedMigration struct {
	Version   int
	AppliedAt time.Time
}

func (db *DB) appliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	if _, err := db.pool.Exec(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	rows, err := db.pool.Query(ctx, `SELECT version, applied_at FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[appliedMigration])
	if err != nil {
		return nil, fmt.Errorf("read applied migrations: %w", err)
	}

	applied := make(map[int]time.Time, len(list))
	for _, a := range list {
		applied[a.Version] = a.AppliedAt
	}
	return applied, nil
}

// Status lists every embedded migration with its applied time
func (db *DB) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := ParseMigrations()
	if err != nil {
		return nil, fmt.Errorf("parse migrations: %w", err)
	}

	out := make([]MigrationStatus, 0, len(migrations))
	for _, m := range migrations {
		st := MigrationStatus{Migration: m}
		if at, ok := applied[m.Version]; ok {
			at := at
			st.AppliedAt = &at
		}
		out = append(out, st)
	}
	return out, nil
}

// Migrate applies pending embedded migrations, each in its own transaction
func (db *DB) Migrate(ctx context.Context) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return result, err
	}

	migrations, err := ParseMigrations()
	if err != nil {
		return result, fmt.Errorf("parse migrations: %w", err)
	}

	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			result.Skipped = append(result.Skipped, m.Version)
			continue
		}
		err := db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("apply migration %04d_%s: %w", m.Version, m.Name, err)
		}
		result.Applied = append(result.Applied, m.Version)
		db.logger.Info("Applied migration", zap.Int("version", m.Version), zap.String("name", m.Name))
	}

	result.Duration = time.Since(start)
	return result, nil
}
