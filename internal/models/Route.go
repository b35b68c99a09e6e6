package models

import (
	"gorm.io/gorm"
)

// Route represents an ordered collection round operated by an office.
// At most one vehicle is assigned to an active route at any time;
// AssignedVehicleID is a link field owned by the fleet manager.
type Route struct {
	gorm.Model

	OfficeID    uint   `gorm:"index" json:"office_id"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	AssignedVehicleID *uint `gorm:"index" json:"assigned_vehicle_id"`
	Active            bool  `gorm:"default:true" json:"active"`

	// Geometry stored as a WKB LINESTRING (SRID 4326).
	// When creating, provide GeoJSON; the controllers convert both ways.
	Geometry []byte `gorm:"type:bytea" json:"-"`

	// Stops in visit order (Dustbin.Seq ascending).
	Dustbins []Dustbin `gorm:"foreignKey:RouteID" json:"dustbins,omitempty"`
}
