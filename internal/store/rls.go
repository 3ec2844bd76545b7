package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// rlsPolicies is the forced row-level-security schema for the uid-scoped
// tables. FORCE means even the table owner is subject to the policy, so an
// application bug or an elevated role cannot read another caller's rows.
// installs carries no uid column: device registration happens before an
// identity exists, so it stays outside the policy set.
var rlsPolicies = []string{
	`ALTER TABLE sessions ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE sessions FORCE ROW LEVEL SECURITY`,
	`DROP POLICY IF EXISTS sessions_self ON sessions`,
	`CREATE POLICY sessions_self ON sessions
		USING (uid = current_setting('app.uid', true))
		WITH CHECK (uid = current_setting('app.uid', true))`,

	`ALTER TABLE user_devices ENABLE ROW LEVEL SECURITY`,
	`ALTER TABLE user_devices FORCE ROW LEVEL SECURITY`,
	`DROP POLICY IF EXISTS user_devices_self ON user_devices`,
	`CREATE POLICY user_devices_self ON user_devices
		USING (uid = current_setting('app.uid', true))
		WITH CHECK (uid = current_setting('app.uid', true))`,
}

func (s *Store) applyRowLevelSecurity() error {
	for _, stmt := range rlsPolicies {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("rls statement failed (%s): %w", stmt, err)
		}
	}
	return nil
}

// RLSPolicies exposes the policy DDL for inspection (tests, migration tools).
func RLSPolicies() []string {
	out := make([]string, len(rlsPolicies))
	copy(out, rlsPolicies)
	return out
}

// BeginScoped opens a transaction with the caller's uid bound to the
// transaction-local `app.uid` setting, so the database-side policies scope
// every query inside it to that identifier. The returned Store wraps the
// transaction; the caller must finish it with Commit or Rollback.
//
// set_config(..., true) is transaction-local, which is the only safe scope
// on a pooled connection: nothing leaks to the next request that borrows
// the same connection.
func (s *Store) BeginScoped(ctx context.Context, uid string) (*Store, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	if s.driver == DriverPostgres {
		if err := tx.Exec(`SELECT set_config('app.uid', ?, true)`, uid).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to bind app.uid: %w", err)
		}
	}

	return &Store{db: tx, driver: s.driver}, nil
}

// Commit commits a transaction opened by BeginScoped.
func (s *Store) Commit() error { return s.db.Commit().Error }

// Rollback aborts a transaction opened by BeginScoped.
func (s *Store) Rollback() error { return s.db.Rollback().Error }

// Transaction runs fn inside a transaction on the current store handle.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}
