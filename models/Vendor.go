package models

import "gorm.io/gorm"

// Vendor is a resin manufacturer or reseller.
type Vendor struct {
	gorm.Model
	Name    string `gorm:"uniqueIndex;not null" json:"name"`
	Comment string `gorm:"type:text" json:"comment"`
	Resins  []Resin `gorm:"foreignKey:VendorID" json:"resins,omitempty"`
}
