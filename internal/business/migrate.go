package business

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	"github.com/samber/oops"

	// Register pgx driver
	_ "github.com/jackc/pgx/v5/stdlib"

	slogctx "github.com/veqryn/slog-context"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/eventbot/dashboard/internal/config"
	migrations "github.com/eventbot/dashboard/sql"
)

const (
	migrateDialect   = "pgx"
	embeddedSource   = "embedded"
	fileSourcePrefix = "file://"
)

// MigrateMain applies the pending goose migrations to the user config database.
func MigrateMain(ctx context.Context, cfg *config.Config) error {
	source, err := migrationSource(cfg.Migrate.Source)
	if err != nil {
		return err
	}

	connStr, err := config.MakeConnStr(cfg.Database)
	if err != nil {
		return fmt.Errorf("making connection string from config: %w", err)
	}

	dbSystemName := semconv.DBSystemNamePostgreSQL

	db, err := otelsql.Open(migrateDialect, connStr, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return oops.In("migrate").Wrapf(err, "opening DB connection")
	}
	defer db.Close()

	reg, err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(dbSystemName))
	if err != nil {
		return fmt.Errorf("registering db stats metrics: %w", err)
	}
	defer func() {
		if err := reg.Unregister(); err != nil {
			slogctx.Error(ctx, "Failed to unregister db stats metrics", "error", err)
		}
	}()

	return applyMigrations(ctx, db, source)
}

// migrationSource resolves the configured source to a filesystem of goose sql files.
func migrationSource(source string) (fs.FS, error) {
	switch {
	case source == "" || source == embeddedSource:
		return migrations.FS, nil
	case strings.HasPrefix(source, fileSourcePrefix):
		dir := strings.TrimPrefix(source, fileSourcePrefix)
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("reading migrations directory: %w", err)
		}

		return os.DirFS(dir), nil
	default:
		return nil, fmt.Errorf("unsupported migrations source %q", source)
	}
}

func applyMigrations(ctx context.Context, db *sql.DB, source fs.FS) error {
	goose.SetBaseFS(source)

	if err := goose.SetDialect(migrateDialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	slogctx.Info(ctx, "Database schema is up to date", "version", version)

	return nil
}
