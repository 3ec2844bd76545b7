package models

import "time"

// Install is one row per distinct device. ADID is the anonymized device tag
// (truncated HMAC of the raw device id); DIDHash lets us store an install
// without ever persisting the raw device id itself.
type Install struct {
	ADID      string `gorm:"column:adid;primaryKey"`
	DIDHash   string `gorm:"column:did_hash;uniqueIndex;not null"`
	Platform  string `gorm:"not null;default:'web'"`
	CreatedAt time.Time
}

func (Install) TableName() string { return "installs" }
