package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waste_tracker/internal/middleware"
	"waste_tracker/internal/models"
)

// callerOfficeID pulls the office scope from the JWT claims set by RequireAuth.
func callerOfficeID(c *gin.Context) uint {
	claims := middleware.CallerClaims(c)
	return claims.OfficeID
}

// CreateVehicle registers a new collection vehicle under the caller's office.
func CreateVehicle(c *gin.Context) {
	var input struct {
		VehicleNumber string `json:"vehicle_number" binding:"required"`
		Type          string `json:"type" binding:"required"`
		Status        string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle input: " + err.Error()})
		return
	}

	status := input.Status
	if status == "" {
		status = models.VehicleInactive
	}
	vehicle := models.Vehicle{
		OfficeID:      callerOfficeID(c),
		VehicleNumber: input.VehicleNumber,
		Type:          input.Type,
		Status:        status,
	}
	if err := db.CreateVehicle(c.Request.Context(), &vehicle); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": vehicle})
}

// ListVehicles lists every vehicle belonging to the caller's office.
func ListVehicles(c *gin.Context) {
	vehicles, err := db.ListVehiclesByOffice(c.Request.Context(), callerOfficeID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

// GetVehicle returns a single vehicle in the caller's office.
func GetVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	vehicle, err := db.GetVehicle(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if vehicle.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// UpdateVehicle modifies number, type or status. Link fields are managed by
// the fleet manager, not here.
func UpdateVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	vehicle, err := db.GetVehicle(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if vehicle.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}

	var input struct {
		VehicleNumber *string `json:"vehicle_number"`
		Type          *string `json:"type"`
		Status        *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}
	if input.VehicleNumber != nil {
		vehicle.VehicleNumber = *input.VehicleNumber
	}
	if input.Type != nil {
		vehicle.Type = *input.Type
	}
	if input.Status != nil {
		if *input.Status != models.VehicleActive && *input.Status != models.VehicleInactive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Active or Inactive"})
			return
		}
		vehicle.Status = *input.Status
	}

	if err := db.SaveVehicle(c.Request.Context(), vehicle); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": vehicle})
}

// DeleteVehicle removes a vehicle and clears any route or driver links
// pointing at it.
func DeleteVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := manager.DeleteVehicle(c.Request.Context(), callerOfficeID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}
