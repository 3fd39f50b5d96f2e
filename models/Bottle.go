package models

import (
	"time"

	"gorm.io/gorm"
)

// Bottle is a physical container of a resin, tracked for consumption.
// UsedWeight is the canonical consumption measure; remaining and gross
// weights are derived views over it plus the resin's weight data.
type Bottle struct {
	gorm.Model
	ResinID    uint       `gorm:"not null;index" json:"resin_id"`
	Resin      *Resin     `gorm:"foreignKey:ResinID" json:"resin,omitempty"`
	UsedWeight float64    `gorm:"not null;default:0" json:"used_weight"`
	FirstUsed  *time.Time `json:"first_used"`
	LastUsed   *time.Time `json:"last_used"`
	Location   string     `gorm:"type:varchar(64);index" json:"location"`
	LotNr      string     `gorm:"type:varchar(64)" json:"lot_nr"`
	Comment    string     `gorm:"type:text" json:"comment"`
	Archived   bool       `gorm:"not null;default:false" json:"archived"`
}
