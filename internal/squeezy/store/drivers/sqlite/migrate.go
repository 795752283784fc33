package sqlite

import (
	"errors"
	"fmt"

	"github.com/aussiebroadwan/squeezy/internal/squeezy/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations brings the schema up to the newest embedded migration.
// Running it against an up to date database does nothing.
func (s *Store) ApplyMigrations() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlite: migrate up: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version and whether the last
// run stopped half way.
func (s *Store) SchemaVersion() (version uint, dirty bool, err error) {
	m, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration source: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("sqlite: migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", src, "sqlite", driver)
}
