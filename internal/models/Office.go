// internal/models/office.go
package models

import (
	"gorm.io/gorm"
)

// Office status values.
const (
	OfficeActive   = "Active"
	OfficeInactive = "Inactive"
)

// Office represents a municipal ward office that owns staff, vehicles,
// routes and dustbins. Offices are registered by an administrator and only
// removed through the cascading delete path.
type Office struct {
	gorm.Model

	StateName  string `json:"state_name" binding:"required"`
	CityName   string `json:"city_name" binding:"required"`
	Name       string `json:"name" binding:"required"`
	AdminName  string `json:"admin_name"`
	AdminEmail string `gorm:"uniqueIndex;not null" json:"admin_email" binding:"required,email"`
	Username   string `gorm:"uniqueIndex;not null" json:"username"`
	Password   string `json:"-"`

	Status    string  `gorm:"default:Active" json:"status"` // "Active" | "Inactive"
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Associations (back-references; lifecycle handled by the cascade path)
	Staff    []Staff   `gorm:"foreignKey:OfficeID" json:"staff,omitempty"`
	Vehicles []Vehicle `gorm:"foreignKey:OfficeID" json:"vehicles,omitempty"`
	Routes   []Route   `gorm:"foreignKey:OfficeID" json:"routes,omitempty"`
	Dustbins []Dustbin `gorm:"foreignKey:OfficeID" json:"dustbins,omitempty"`
}
