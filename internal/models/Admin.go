package models

import "gorm.io/gorm"

// Admin is the system-level administrator account that registers offices.
type Admin struct {
	gorm.Model
	Name     string `json:"name" binding:"required"`
	Email    string `gorm:"uniqueIndex" json:"email" binding:"required,email"`
	Username string `gorm:"uniqueIndex" json:"username" binding:"required"`
	Password string `json:"-"`
}
