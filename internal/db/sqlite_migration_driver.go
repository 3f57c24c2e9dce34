package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	migratedb "github.com/golang-migrate/migrate/v4/database"
	"gorm.io/gorm"
)

// sqliteMigrationDriver lets golang-migrate run on the pool gorm already
// holds. The upstream sqlite driver registers the "sqlite" database/sql name,
// which glebarez/sqlite claims as well.
type sqliteMigrationDriver struct {
	db     *sql.DB
	locked atomic.Bool
}

var _ migratedb.Driver = (*sqliteMigrationDriver)(nil)

func newSQLiteMigrationDriver(database *gorm.DB) (*sqliteMigrationDriver, error) {
	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("get underlying sql.DB: %w", err)
	}

	query := `CREATE TABLE IF NOT EXISTS ` + schemaMigrationsTable + ` (version BIGINT NOT NULL, dirty BOOLEAN NOT NULL)`
	if _, err := sqlDB.Exec(query); err != nil {
		return nil, fmt.Errorf("create %s table: %w", schemaMigrationsTable, err)
	}
	return &sqliteMigrationDriver{db: sqlDB}, nil
}

func (driver *sqliteMigrationDriver) Open(string) (migratedb.Driver, error) {
	return nil, errors.New("sqlite migrations run on an already open connection")
}

// Close leaves the pool to its owner.
func (driver *sqliteMigrationDriver) Close() error {
	return nil
}

func (driver *sqliteMigrationDriver) Lock() error {
	if !driver.locked.CompareAndSwap(false, true) {
		return migratedb.ErrLocked
	}
	return nil
}

func (driver *sqliteMigrationDriver) Unlock() error {
	if !driver.locked.CompareAndSwap(true, false) {
		return migratedb.ErrNotLocked
	}
	return nil
}

func (driver *sqliteMigrationDriver) Run(migration io.Reader) error {
	body, err := io.ReadAll(migration)
	if err != nil {
		return err
	}

	tx, err := driver.db.Begin()
	if err != nil {
		return &migratedb.Error{OrigErr: err, Err: "transaction start failed"}
	}
	if _, err := tx.Exec(string(body)); err != nil {
		return &migratedb.Error{OrigErr: errors.Join(err, tx.Rollback()), Query: body}
	}
	if err := tx.Commit(); err != nil {
		return &migratedb.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

func (driver *sqliteMigrationDriver) SetVersion(version int, dirty bool) error {
	tx, err := driver.db.Begin()
	if err != nil {
		return &migratedb.Error{OrigErr: err, Err: "transaction start failed"}
	}

	if _, err := tx.Exec(`DELETE FROM ` + schemaMigrationsTable); err != nil {
		return &migratedb.Error{OrigErr: errors.Join(err, tx.Rollback()), Err: "clear schema version"}
	}
	if version >= 0 || (version == migratedb.NilVersion && dirty) {
		if _, err := tx.Exec(`INSERT INTO `+schemaMigrationsTable+` (version, dirty) VALUES (?, ?)`, version, dirty); err != nil {
			return &migratedb.Error{OrigErr: errors.Join(err, tx.Rollback()), Err: "record schema version"}
		}
	}
	if err := tx.Commit(); err != nil {
		return &migratedb.Error{OrigErr: err, Err: "transaction commit failed"}
	}
	return nil
}

func (driver *sqliteMigrationDriver) Version() (int, bool, error) {
	var version int
	var dirty bool
	err := driver.db.QueryRow(`SELECT version, dirty FROM ` + schemaMigrationsTable + ` LIMIT 1`).Scan(&version, &dirty)
	if errors.Is(err, sql.ErrNoRows) {
		return migratedb.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, &migratedb.Error{OrigErr: err, Err: "read schema version"}
	}
	return version, dirty, nil
}

// Drop is never needed for forward-only migrations.
func (driver *sqliteMigrationDriver) Drop() error {
	return errors.New("dropping the sqlite schema is not supported")
}
