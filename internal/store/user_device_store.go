package store

import (
	"context"
	"errors"
	"time"

	"github.com/Danticipation/chakrai/internal/models"

	"gorm.io/gorm"
)

// CreateUserDevice inserts a new user-device binding. The unique adid index
// rejects a second binding for the same device, reported as ErrBindingExists
// so racing first binds converge on whichever row landed first.
func (s *Store) CreateUserDevice(ctx context.Context, ud *models.UserDevice) error {
	err := s.db.WithContext(ctx).Create(ud).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrBindingExists
	}
	return err
}

// GetUserDeviceByADID fetches the binding for a device tag. The unique adid
// index guarantees at most one row.
func (s *Store) GetUserDeviceByADID(ctx context.Context, adid string) (*models.UserDevice, error) {
	var ud models.UserDevice
	err := s.db.WithContext(ctx).First(&ud, "adid = ?", adid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ud, nil
}

// TouchUserDevice refreshes LastSeenAt on a repeat visit from a known device.
func (s *Store) TouchUserDevice(ctx context.Context, uid, adid string, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&models.UserDevice{}).
		Where("uid = ? AND adid = ?", uid, adid).
		Update("last_seen_at", at).Error
}
