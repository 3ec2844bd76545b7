package models

import "time"

// UserDevice is the durable association between a pseudonymous user and a
// device tag. The adid is unique: a device binds to exactly one uid, and
// repeat visits refresh LastSeenAt rather than creating new rows. The uid
// index serves the RLS-scoped per-user queries.
type UserDevice struct {
	ID         uint   `gorm:"primaryKey"`
	UID        string `gorm:"column:uid;not null;index:ix_user_devices_uid"`
	ADID       string `gorm:"column:adid;not null;uniqueIndex:ux_user_devices_adid"`
	UDID       string `gorm:"column:udid;not null"`
	LastSeenAt time.Time
	CreatedAt  time.Time
}

func (UserDevice) TableName() string { return "user_devices" }
