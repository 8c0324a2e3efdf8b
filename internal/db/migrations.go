package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/httpfs"
)

// LatestMigrationVersion is the newest schema version this binary knows.
//
// NOTE: This MUST be updated when a new migration is added.
const LatestMigrationVersion uint = 4

// ErrMigrationDowngrade is returned when the database was written by a newer
// binary.
var ErrMigrationDowngrade = errors.New("database downgrade detected")

// MigrationTarget moves mig to the desired version.
type MigrationTarget func(mig *migrate.Migrate) error

var (
	// TargetLatest migrates all the way up.
	TargetLatest MigrationTarget = func(mig *migrate.Migrate) error {
		return mig.Up()
	}

	// TargetVersion migrates to an exact version.
	TargetVersion = func(version uint) MigrationTarget {
		return func(mig *migrate.Migrate) error {
			return mig.Migrate(version)
		}
	}
)

// migrationLogger adapts the package logger to migrate.Logger.
type migrationLogger struct {
	ctx context.Context
}

func (m migrationLogger) Printf(format string, v ...any) {
	log.DebugS(m.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (m migrationLogger) Verbose() bool {
	return false
}

// ApplyMigrations runs the embedded migrations against sqlDB. It refuses to
// run against a dirty database or one that is newer than this binary.
func ApplyMigrations(ctx context.Context, sqlDB *sql.DB,
	target MigrationTarget) error {

	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	source, err := httpfs.New(http.FS(sqlSchemas), "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	mig, err := migrate.NewWithInstance("httpfs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	mig.Log = migrationLogger{ctx: ctx}

	version, dirty, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("database is dirty at version %d, manual "+
			"intervention required", version)
	}
	if version > LatestMigrationVersion {
		return fmt.Errorf("%w: db_version=%d latest=%d",
			ErrMigrationDowngrade, version, LatestMigrationVersion)
	}

	log.InfoS(ctx, "Applying migrations", "current_version", version,
		"latest_version", LatestMigrationVersion)

	if err := target(mig); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, _, err = mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	log.InfoS(ctx, "Database schema ready", "version", version)

	return nil
}
