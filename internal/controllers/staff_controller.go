package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"waste_tracker/internal/middleware"
	"waste_tracker/internal/models"
	"waste_tracker/internal/tracking"
)

// RegisterStaff creates a staff member under the caller's office. Login
// credentials are provisioned from the phone number: the username is the
// phone itself and the initial password is its last five digits.
func RegisterStaff(c *gin.Context) {
	var input struct {
		Name  string `json:"name" binding:"required"`
		Role  string `json:"role" binding:"required"`
		Phone string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid staff input: " + err.Error()})
		return
	}
	switch input.Role {
	case models.RoleDriver, models.RoleHelper, models.RoleSupervisor:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be driver, helper or supervisor"})
		return
	}
	if len(input.Phone) < 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone must have at least 5 digits"})
		return
	}

	rawPassword := input.Phone[len(input.Phone)-5:]
	hashed, err := hashPassword(rawPassword)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	staff := models.Staff{
		OfficeID: callerOfficeID(c),
		Name:     input.Name,
		Role:     input.Role,
		Phone:    input.Phone,
		Username: input.Phone,
		Password: hashed,
		Active:   true,
	}
	if err := db.CreateStaff(c.Request.Context(), &staff); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"staff": staff,
		"loginInfo": gin.H{
			"username": staff.Username,
			"password": rawPassword,
		},
	})
}

// ListStaff lists the caller office's staff.
func ListStaff(c *gin.Context) {
	staff, err := db.ListStaffByOffice(c.Request.Context(), callerOfficeID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// GetStaff returns a single staff member in the caller's office.
func GetStaff(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	staff, err := db.GetStaff(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if staff.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// UpdateStaff modifies name, role, phone or active flag.
func UpdateStaff(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	staff, err := db.GetStaff(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if staff.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Staff not found"})
		return
	}

	var input struct {
		Name   *string `json:"name"`
		Role   *string `json:"role"`
		Phone  *string `json:"phone"`
		Active *bool   `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}
	if input.Name != nil {
		staff.Name = *input.Name
	}
	if input.Role != nil {
		switch *input.Role {
		case models.RoleDriver, models.RoleHelper, models.RoleSupervisor:
			staff.Role = *input.Role
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be driver, helper or supervisor"})
			return
		}
	}
	if input.Phone != nil {
		staff.Phone = *input.Phone
		staff.Username = *input.Phone
	}
	if input.Active != nil {
		staff.Active = *input.Active
	}

	if err := db.SaveStaff(c.Request.Context(), staff); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// DeleteStaff removes a staff member, releasing any vehicle they hold.
func DeleteStaff(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := manager.DeleteStaff(c.Request.Context(), callerOfficeID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Staff deleted"})
}

// AssignStaffVehicle hands a vehicle to a driver. If another driver held the
// vehicle, it is taken over and the displaced driver is reported back so the
// office can notify them.
func AssignStaffVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		VehicleID uint `json:"vehicle_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle_id is required"})
		return
	}

	staff, vehicle, displaced, err := manager.AssignVehicleToStaff(c.Request.Context(), callerOfficeID(c), id, input.VehicleID)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := gin.H{"staff": staff, "vehicle": vehicle}
	if displaced != nil {
		logrus.WithFields(logrus.Fields{
			"vehicle_id":      vehicle.ID,
			"displaced_staff": displaced.ID,
			"new_staff":       staff.ID,
		}).Info("Vehicle reassigned, previous driver displaced")
		resp["displaced_staff"] = displaced
	}
	c.JSON(http.StatusOK, resp)
}

// UnassignStaffVehicle releases the staff member's vehicle, if any.
func UnassignStaffVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	staff, err := manager.UnassignVehicleFromStaff(c.Request.Context(), callerOfficeID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

// StaffDashboard returns everything a driver's app needs on startup: their
// record, the assigned vehicle, its active route and the ordered stops.
func StaffDashboard(c *gin.Context) {
	claims := middleware.CallerClaims(c)
	staff, err := db.GetStaff(c.Request.Context(), claims.SubjectID)
	if err != nil {
		respondErr(c, err)
		return
	}

	resp := gin.H{"staff": staff}
	if staff.AssignedVehicleID != nil {
		vehicle, err := db.GetVehicle(c.Request.Context(), *staff.AssignedVehicleID)
		if err == nil {
			resp["vehicle"] = vehicle
			if vehicle.CurrentRouteID != nil {
				route, err := db.GetRoute(c.Request.Context(), *vehicle.CurrentRouteID)
				if err == nil && route.Active {
					resp["route"] = toRouteResponse(route)
				}
			}
			if hint, err := tracker.NextStopHint(c.Request.Context(), vehicle.ID); err == nil {
				resp["next_stop"] = hint
			} else if errors.Is(err, tracking.ErrNoRemainingStops) {
				resp["next_stop"] = nil
				resp["route_complete"] = true
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}
