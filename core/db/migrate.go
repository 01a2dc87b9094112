package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	iofs "github.com/golang-migrate/migrate/v4/source/iofs"

	"elva.app/accounting/core/db/migrations"
)

// Migrate applies all pending SQL migrations bundled with the service.
func (db *DB) Migrate(ctx context.Context) (err error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(db.dsn))
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := migrator.Close()
		if err == nil && (srcErr != nil || dbErr != nil) {
			err = fmt.Errorf("closing migrator: %v", errors.Join(srcErr, dbErr))
		}
	}()

	version, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		slog.InfoContext(ctx, "no migrations applied yet")
	case err != nil:
		return fmt.Errorf("reading migration version: %w", err)
	case dirty:
		// A dirty version means a previous run died mid-migration; every statement is idempotent.
		slog.WarnContext(ctx, "database is dirty, forcing version", "version", version)
		if err := migrator.Force(int(version)); err != nil {
			return fmt.Errorf("forcing version %d: %w", version, err)
		}
	default:
		slog.InfoContext(ctx, "current migration state", "version", version)
	}

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.InfoContext(ctx, "no new migrations to apply")
			return nil
		}
		return fmt.Errorf("applying migrations: %w", err)
	}

	slog.InfoContext(ctx, "migrations applied")
	return nil
}

// migrateURL rewrites a postgres DSN to the scheme registered by the pgx/v5 migrate driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
