package store

import (
	"context"
	"fmt"

	"github.com/Danticipation/chakrai/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Store struct {
	db     *gorm.DB
	driver string
}

func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	db = db.WithContext(ctx)

	if err := db.AutoMigrate(
		&models.Install{},
		&models.Session{},
		&models.UserDevice{},
		&models.LegacyUserMap{},
	); err != nil {
		return nil, err
	}

	s := &Store{db: db, driver: driver}

	// Row-level security is a postgres feature; the sqlite driver exists for
	// tests and single-user development where the process is the only caller.
	if driver == DriverPostgres {
		if err := s.applyRowLevelSecurity(); err != nil {
			return nil, fmt.Errorf("failed to apply row-level security: %w", err)
		}
	}

	return s, nil
}

// Driver returns the active database driver name.
func (s *Store) Driver() string { return s.driver }

// Health pings the underlying database connection.
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CountActiveSessions returns the number of sessions not yet revoked.
// Used by the periodic metrics gauge job.
func (s *Store) CountActiveSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("revoked_at IS NULL").
		Count(&n).Error
	return n, err
}

// CountInstalls returns the number of registered device installs.
func (s *Store) CountInstalls(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Install{}).Count(&n).Error
	return n, err
}

// CountUserDevices returns the number of user-device bindings.
func (s *Store) CountUserDevices(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.UserDevice{}).Count(&n).Error
	return n, err
}
