package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	embeddedmigrations "github.com/terraincognita07/heartnote/migrations"
	"gorm.io/gorm"
)

const schemaMigrationsTable = "schema_migrations"

// applyEmbeddedMigrations brings the schema up to the newest embedded
// migration for the dialect.
func applyEmbeddedMigrations(database *gorm.DB, dialect string, databaseURL string, writer gormLogWriter) error {
	source, err := iofs.New(embeddedmigrations.Files, dialect)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dialect, err)
	}

	var migrator *migrate.Migrate
	switch dialect {
	case dialectPostgres:
		// The pgx5 driver dials its own pool and closes it with the migrator.
		migrator, err = migrate.NewWithSourceInstance("iofs", source, postgresMigrationURL(databaseURL))
	default:
		driver, driverErr := newSQLiteMigrationDriver(database)
		if driverErr != nil {
			_ = source.Close()
			return driverErr
		}
		migrator, err = migrate.NewWithInstance("iofs", source, dialectSQLite, driver)
	}
	if err != nil {
		return fmt.Errorf("init %s migrations: %w", dialect, err)
	}
	migrator.Log = migrationLogger{writer: writer}
	defer migrator.Close()

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run %s migrations: %w", dialect, err)
	}
	return nil
}

// SchemaVersion reports the last applied migration and whether it failed
// half way.
func SchemaVersion(database *gorm.DB) (uint, bool, error) {
	var state struct {
		Version int64
		Dirty   bool
	}
	result := database.Raw(`SELECT version, dirty FROM ` + schemaMigrationsTable + ` LIMIT 1`).Scan(&state)
	if result.Error != nil {
		return 0, false, fmt.Errorf("read schema version: %w", result.Error)
	}
	if result.RowsAffected == 0 || state.Version < 0 {
		return 0, false, nil
	}
	return uint(state.Version), state.Dirty, nil
}

func postgresMigrationURL(databaseURL string) string {
	_, rest, found := strings.Cut(strings.TrimSpace(databaseURL), "://")
	if !found {
		return databaseURL
	}
	return "pgx5://" + rest
}

type migrationLogger struct {
	writer gormLogWriter
}

func (logger migrationLogger) Printf(format string, args ...any) {
	logger.writer.Printf(strings.TrimSuffix(format, "\n"), args...)
}

func (logger migrationLogger) Verbose() bool {
	return false
}
