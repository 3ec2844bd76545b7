package store

import (
	"context"
	"fmt"
	"regexp"

	"github.com/Danticipation/chakrai/internal/models"

	"gorm.io/gorm/clause"
)

// identifiers are interpolated into DDL-ish statements and cannot be bound
// as parameters, so they are restricted to plain snake_case names.
var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func validIdent(s string) error {
	if !identPattern.MatchString(s) {
		return fmt.Errorf("invalid sql identifier: %q", s)
	}
	return nil
}

// ListUnmappedLegacyIDs returns the distinct legacy integer user ids in
// table.idColumn that have no uid yet and no entry in legacy_user_map.
func (s *Store) ListUnmappedLegacyIDs(ctx context.Context, table, idColumn string) ([]int64, error) {
	if err := validIdent(table); err != nil {
		return nil, err
	}
	if err := validIdent(idColumn); err != nil {
		return nil, err
	}

	var ids []int64
	query := fmt.Sprintf(
		`SELECT DISTINCT %[2]s FROM %[1]s
		 WHERE %[2]s IS NOT NULL
		   AND uid IS NULL
		   AND %[2]s NOT IN (SELECT legacy_id FROM legacy_user_map)`,
		table, idColumn,
	)
	if err := s.db.WithContext(ctx).Raw(query).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateLegacyMapping records a (uid, legacy id) pair. The unique index on
// legacy_id turns a re-run over an already-mapped id into a no-op; the bool
// reports whether a row was actually inserted.
func (s *Store) CreateLegacyMapping(ctx context.Context, m *models.LegacyUserMap) (bool, error) {
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "legacy_id"}},
			DoNothing: true,
		}).
		Create(m)
	return tx.RowsAffected > 0, tx.Error
}

// BackfillUIDColumn stamps the mapped uid onto every row of table still
// missing one, joining through legacy_user_map. Rows already backfilled do
// not match the predicate, so repeat runs change nothing.
func (s *Store) BackfillUIDColumn(ctx context.Context, table, idColumn string) (int64, error) {
	if err := validIdent(table); err != nil {
		return 0, err
	}
	if err := validIdent(idColumn); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(
		`UPDATE %[1]s SET uid = m.uid
		 FROM legacy_user_map m
		 WHERE %[1]s.%[2]s = m.legacy_id AND %[1]s.uid IS NULL`,
		table, idColumn,
	)
	tx := s.db.WithContext(ctx).Exec(query)
	return tx.RowsAffected, tx.Error
}

// CountLegacyMappings reports the size of the mapping table.
func (s *Store) CountLegacyMappings(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.LegacyUserMap{}).Count(&n).Error
	return n, err
}
