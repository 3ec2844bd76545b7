package models

import "time"

// Session is one row per usage session. Revocation is soft (RevokedAt set,
// row retained) to preserve the audit trail.
type Session struct {
	SID       string `gorm:"column:sid;primaryKey"`
	ADID      string `gorm:"column:adid;not null;index"`
	UID       string `gorm:"column:uid;not null;index"`
	CreatedAt time.Time
	RevokedAt *time.Time
}

func (Session) TableName() string { return "sessions" }

// Revoked reports whether the session has been marked revoked.
func (s *Session) Revoked() bool { return s.RevokedAt != nil }
