package store

import (
	"context"
	"errors"

	"github.com/Danticipation/chakrai/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateInstall inserts an install row with insert-or-ignore semantics:
// repeat registration of the same device is a no-op, and concurrent first
// registrations are absorbed by the primary-key conflict clause instead of
// application-level locking.
func (s *Store) CreateInstall(ctx context.Context, install *models.Install) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(install).Error
}

// GetInstall fetches an install by its anonymized device tag.
func (s *Store) GetInstall(ctx context.Context, adid string) (*models.Install, error) {
	var install models.Install
	err := s.db.WithContext(ctx).First(&install, "adid = ?", adid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &install, nil
}
