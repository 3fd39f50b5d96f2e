package models

import "gorm.io/gorm"

// Resin is a material lot definition. Weight is the net weight of a full
// bottle and BottleWeight the empty packaging weight; either may be zero when
// the vendor does not publish it, which disables the derived weight displays.
type Resin struct {
	gorm.Model
	Name          string  `gorm:"not null" json:"name"`
	VendorID      *uint   `json:"vendor_id"`
	Vendor        *Vendor `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	Material      string  `json:"material"`
	Price         float64 `json:"price"`
	Density       float64 `gorm:"not null" json:"density"`
	Diameter      float64 `json:"diameter"`
	Weight        float64 `json:"weight"`
	BottleWeight  float64 `json:"bottle_weight"`
	ArticleNumber string  `json:"article_number"`
	Comment       string  `gorm:"type:text" json:"comment"`
	CureTemp      int     `json:"cure_temp"`
	CureTime      int     `json:"cure_time"`
	WashTime      int     `json:"wash_time"`
	ColorHex      string  `gorm:"type:varchar(8)" json:"color_hex"`
}
