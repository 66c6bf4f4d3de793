package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/KretovDmitry/joint-account-service/pkg/logger"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	migrationsDir  = "migrations"
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
	// Arbitrary key that keeps concurrent instances from migrating at once.
	migrationLockKey = 7_310_511
)

// Migrate applies every embedded migration that is not recorded in
// schema_migrations yet. Each file runs in its own transaction.
func Migrate(ctx context.Context, db *sql.DB, logger logger.Logger) error {
	if db == nil {
		return errors.New("nil dependency: database")
	}
	return applyMigrations(ctx, db, migrations, migrationsDir, logger)
}

func applyMigrations(ctx context.Context, db *sql.DB, fsys fs.FS, dir string, logger logger.Logger) error {
	entries, err := fs.ReadDir(fsys, dir)
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

	const createTable = `
		CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`

	if _, err = db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		content, err := fs.ReadFile(fsys, path.Join(dir, file))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		applied, err := applyMigration(ctx, db, file, upSection(string(content)))
		if err != nil {
			return err
		}
		if applied {
			logger.Infof("migration %s applied", file)
		}
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, name, up string) (applied bool, err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return false, fmt.Errorf("lock migrations: %w", err)
	}

	var found int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = $1", name).Scan(&found)
	switch {
	case err == nil:
		return false, tx.Commit()
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}

	if strings.TrimSpace(up) != "" {
		if _, err = tx.ExecContext(ctx, up); err != nil && !isAlreadyExists(err) {
			return false, fmt.Errorf("exec migration %s: %w", name, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO "+migrationTable+" (name) VALUES ($1) ON CONFLICT DO NOTHING", name)
	if err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, err)
	}

	return true, nil
}

// upSection returns the SQL between the Up and Down markers.
// A file without markers is applied whole.
func upSection(content string) string {
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	content = content[start+len(upMarker):]

	if end := strings.Index(content, downMarker); end != -1 {
		content = content[:end]
	}
	return content
}

func isAlreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.DuplicateTable, pgerrcode.DuplicateObject, pgerrcode.DuplicateColumn:
		return true
	}
	return false
}
