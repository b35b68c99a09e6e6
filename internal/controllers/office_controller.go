package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"waste_tracker/internal/models"
)

// RegisterOffice registers a new ward office (admin only).
func RegisterOffice(c *gin.Context) {
	var input struct {
		StateName  string  `json:"state_name" binding:"required"`
		CityName   string  `json:"city_name" binding:"required"`
		Name       string  `json:"name" binding:"required"`
		AdminName  string  `json:"admin_name" binding:"required"`
		AdminEmail string  `json:"admin_email" binding:"required,email"`
		Password   string  `json:"password" binding:"required"`
		Status     string  `json:"status"`
		Latitude   float64 `json:"latitude"`
		Longitude  float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Latitude < -90 || input.Latitude > 90 || input.Longitude < -180 || input.Longitude > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates. Latitude -90 to 90, Longitude -180 to 180"})
		return
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hash password"})
		return
	}

	status := input.Status
	if status == "" {
		status = models.OfficeActive
	}
	office := models.Office{
		StateName:  input.StateName,
		CityName:   input.CityName,
		Name:       input.Name,
		AdminName:  input.AdminName,
		AdminEmail: input.AdminEmail,
		Username:   input.AdminEmail, // login identity
		Password:   hashed,
		Status:     status,
		Latitude:   input.Latitude,
		Longitude:  input.Longitude,
	}
	if err := db.CreateOffice(c.Request.Context(), &office); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"office": office})
}

// ListOffices lists all registered offices (admin only).
func ListOffices(c *gin.Context) {
	offices, err := db.ListOffices(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offices": offices})
}

// GetOffice returns a single office.
func GetOffice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	office, err := db.GetOffice(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"office": office})
}

// UpdateOffice modifies office details (admin only).
func UpdateOffice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	office, err := db.GetOffice(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}

	var input struct {
		StateName  *string  `json:"state_name"`
		CityName   *string  `json:"city_name"`
		Name       *string  `json:"name"`
		AdminName  *string  `json:"admin_name"`
		AdminEmail *string  `json:"admin_email"`
		Status     *string  `json:"status"`
		Latitude   *float64 `json:"latitude"`
		Longitude  *float64 `json:"longitude"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Latitude != nil || input.Longitude != nil {
		if input.Latitude == nil || input.Longitude == nil ||
			*input.Latitude < -90 || *input.Latitude > 90 ||
			*input.Longitude < -180 || *input.Longitude > 180 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates. Latitude -90 to 90, Longitude -180 to 180"})
			return
		}
		office.Latitude = *input.Latitude
		office.Longitude = *input.Longitude
	}
	if input.StateName != nil {
		office.StateName = *input.StateName
	}
	if input.CityName != nil {
		office.CityName = *input.CityName
	}
	if input.Name != nil {
		office.Name = *input.Name
	}
	if input.AdminName != nil {
		office.AdminName = *input.AdminName
	}
	if input.AdminEmail != nil {
		office.AdminEmail = *input.AdminEmail
		// The admin email is the login identity; keep them in lockstep.
		office.Username = *input.AdminEmail
	}
	if input.Status != nil {
		if *input.Status != models.OfficeActive && *input.Status != models.OfficeInactive {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status must be Active or Inactive"})
			return
		}
		office.Status = *input.Status
	}

	if err := db.SaveOffice(c.Request.Context(), office); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"office": office})
}

// DeleteOffice removes an office and cascades to everything it owns.
func DeleteOffice(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := manager.DeleteOfficeCascade(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	logrus.WithField("office_id", id).Info("Office deleted with full cascade.")
	c.JSON(http.StatusOK, gin.H{"message": "Office and all related data deleted"})
}
