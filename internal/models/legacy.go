package models

import "time"

// LegacyUserMap bridges pre-migration integer user ids to the pseudonymous
// UID scheme. The uniqueness constraint on LegacyID is what makes the batch
// backfill idempotent: re-running the migration skips ids already mapped.
type LegacyUserMap struct {
	UID       string `gorm:"column:uid;primaryKey"`
	LegacyID  int64  `gorm:"column:legacy_id;uniqueIndex;not null"`
	CreatedAt time.Time
}

func (LegacyUserMap) TableName() string { return "legacy_user_map" }
