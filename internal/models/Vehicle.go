// internal/models/vehicle.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// Vehicle status values.
const (
	VehicleActive   = "Active"
	VehicleInactive = "Inactive"
)

// Vehicle is a collection vehicle owned by exactly one office.
// CurrentRouteID and CurrentDriverID are the write-protected link fields:
// only the fleet manager mutates them.
type Vehicle struct {
	gorm.Model

	OfficeID      uint   `gorm:"index;uniqueIndex:idx_office_vehicle_no" json:"office_id"`
	VehicleNumber string `gorm:"uniqueIndex:idx_office_vehicle_no;not null" json:"vehicle_number"`
	Type          string `json:"type"`
	Status        string `gorm:"default:Inactive" json:"status"` // "Active" | "Inactive"

	CurrentRouteID  *uint `gorm:"index" json:"current_route_id"`
	CurrentDriverID *uint `gorm:"index" json:"current_driver_id"`

	// Last-known position; nil until the first report comes in.
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	LocationUpdatedAt *time.Time `json:"location_updated_at"`

	IsOnline bool       `gorm:"default:false" json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}
