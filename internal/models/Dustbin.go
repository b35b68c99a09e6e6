// internal/models/dustbin.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Dustbin status values.
const (
	BinClean    = "clean"
	BinOverflow = "overflow"
	BinMissed   = "missed"
)

// Dustbin is a collection point owned by an office. RouteID is a weak
// reference managed by the fleet manager; Seq orders the stops within a
// route. A dustbin with a non-clean status counts as a pending stop.
type Dustbin struct {
	gorm.Model

	OfficeID uint  `gorm:"index" json:"office_id"`
	RouteID  *uint `gorm:"index" json:"route_id"`
	Seq      int   `json:"seq"`

	Name string `json:"name" binding:"required"`
	Area string `json:"area"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	Status        string     `gorm:"default:clean" json:"status"` // "clean" | "overflow" | "missed"
	LastCleanedAt *time.Time `json:"last_cleaned_at"`
	ImageURL      string     `json:"image_url"` // set by the excluded upload layer
	Active        bool       `gorm:"default:true" json:"active"`
}
