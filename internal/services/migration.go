package services

import (
	"context"
	"fmt"
	"log"

	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/models"
	"github.com/Danticipation/chakrai/internal/store"
)

// LegacyTable names a pre-migration table carrying integer user ids in
// IDColumn and a nullable uid column to backfill.
type LegacyTable struct {
	Name     string
	IDColumn string
}

// MigrationResult reports what a backfill run actually changed.
type MigrationResult struct {
	MappingsCreated int64
	RowsBackfilled  int64
}

// MigrationService performs the one-time bridge from integer user ids to
// pseudonymous UIDs. Safe to re-run: already-mapped ids and already-stamped
// rows are no-ops.
type MigrationService struct {
	store *store.Store
}

func NewMigrationService(s *store.Store) *MigrationService {
	return &MigrationService{store: s}
}

// BackfillLegacyUsers mints a UID for every distinct unmapped legacy id
// found across tables, records the mapping, then stamps the uid column on
// each affected row by joining through the mapping table.
func (s *MigrationService) BackfillLegacyUsers(ctx context.Context, tables []LegacyTable) (*MigrationResult, error) {
	result := &MigrationResult{}

	for _, t := range tables {
		ids, err := s.store.ListUnmappedLegacyIDs(ctx, t.Name, t.IDColumn)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s for legacy ids: %w", t.Name, err)
		}

		for _, legacyID := range ids {
			uid, err := identity.NewUID()
			if err != nil {
				return nil, err
			}
			created, err := s.store.CreateLegacyMapping(ctx, &models.LegacyUserMap{
				UID:      uid,
				LegacyID: legacyID,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to map legacy id %d: %w", legacyID, err)
			}
			if created {
				result.MappingsCreated++
			}
		}
	}

	for _, t := range tables {
		n, err := s.store.BackfillUIDColumn(ctx, t.Name, t.IDColumn)
		if err != nil {
			return nil, fmt.Errorf("failed to backfill %s: %w", t.Name, err)
		}
		result.RowsBackfilled += n
	}

	log.Printf(
		"Legacy migration: %d mappings created, %d rows backfilled across %d tables",
		result.MappingsCreated, result.RowsBackfilled, len(tables),
	)
	return result, nil
}
