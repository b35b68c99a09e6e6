// internal/models/staff.go
package models

import (
	"gorm.io/gorm"
)

// Staff roles.
const (
	RoleDriver     = "driver"
	RoleHelper     = "helper"
	RoleSupervisor = "supervisor"
)

// Staff is a field worker (driver / helper / supervisor) employed by an
// office. AssignedVehicleID is a link field owned by the fleet manager:
// when set, the vehicle's CurrentDriverID points back at this record.
type Staff struct {
	gorm.Model

	OfficeID uint   `gorm:"index" json:"office_id"`
	Name     string `json:"name" binding:"required"`
	Role     string `json:"role" binding:"required"` // "driver" | "helper" | "supervisor"
	Phone    string `gorm:"uniqueIndex;not null" json:"phone"`

	// Login identity; username is the phone number, password is issued at
	// registration (bcrypt hash).
	Username string `gorm:"index" json:"username"`
	Password string `json:"-"`

	AssignedVehicleID *uint `gorm:"index" json:"assigned_vehicle_id"`
	Active            bool  `gorm:"default:true" json:"active"`
}
