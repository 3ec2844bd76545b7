package store

import (
	"context"
	"errors"
	"time"

	"github.com/Danticipation/chakrai/internal/models"

	"gorm.io/gorm"
)

// CreateSession inserts a session row at session start.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	return s.db.WithContext(ctx).Create(sess).Error
}

// GetSession fetches a session by sid.
func (s *Store) GetSession(ctx context.Context, sid string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).First(&sess, "sid = ?", sid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// RevokeSession marks a session revoked. Rows are never deleted; the revoked
// record stays behind for audit. Returns ErrSessionAlreadyRevoked when the
// session was already revoked or does not exist.
func (s *Store) RevokeSession(ctx context.Context, sid string, at time.Time) error {
	tx := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("sid = ? AND revoked_at IS NULL", sid).
		Update("revoked_at", at)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrSessionAlreadyRevoked
	}
	return nil
}
