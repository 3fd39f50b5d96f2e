package models

import "gorm.io/gorm"

// Setting is one durable key/value row backing per-user view state.
// Keys follow the `${namespace}-${field}` layout used by list screens.
type Setting struct {
	gorm.Model
	UserID uint   `gorm:"not null;uniqueIndex:idx_settings_user_key" json:"user_id"`
	Key    string `gorm:"not null;uniqueIndex:idx_settings_user_key;type:varchar(128)" json:"key"`
	Value  string `gorm:"type:text" json:"value"`
}
