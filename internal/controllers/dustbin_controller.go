package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"waste_tracker/internal/models"
	"waste_tracker/internal/tracking"
)

// CreateDustbin registers a collection point under the caller's office.
// It starts unattached; use the route attach endpoint to sequence it.
func CreateDustbin(c *gin.Context) {
	var input struct {
		Name      string  `json:"name" binding:"required"`
		Area      string  `json:"area"`
		Latitude  float64 `json:"latitude" binding:"required"`
		Longitude float64 `json:"longitude" binding:"required"`
		ImageURL  string  `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dustbin input: " + err.Error()})
		return
	}
	if !tracking.ValidCoordinate(input.Latitude, input.Longitude) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates. Latitude -90 to 90, Longitude -180 to 180"})
		return
	}

	bin := models.Dustbin{
		OfficeID:  callerOfficeID(c),
		Name:      input.Name,
		Area:      input.Area,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Status:    models.BinClean,
		ImageURL:  input.ImageURL,
		Active:    true,
	}
	if err := db.CreateDustbin(c.Request.Context(), &bin); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"dustbin": bin})
}

// ListDustbins lists the office's dustbins. Pass ?route_id= to list only
// one route's stops in visit order.
func ListDustbins(c *gin.Context) {
	ctx := c.Request.Context()
	officeID := callerOfficeID(c)

	if raw := c.Query("route_id"); raw != "" {
		route, err := db.GetRoute(ctx, parseUintQuery(raw))
		if err != nil {
			respondErr(c, err)
			return
		}
		if route.OfficeID != officeID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
			return
		}
		bins, err := db.ListDustbinsByRoute(ctx, route.ID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"dustbins": bins})
		return
	}

	bins, err := db.ListDustbinsByOffice(ctx, officeID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dustbins": bins})
}

// GetDustbin returns a single dustbin in the caller's office.
func GetDustbin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bin, err := db.GetDustbin(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if bin.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dustbin not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dustbin": bin})
}

// UpdateDustbin modifies a dustbin's descriptive fields and location.
func UpdateDustbin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bin, err := db.GetDustbin(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if bin.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dustbin not found"})
		return
	}

	var input struct {
		Name      *string  `json:"name"`
		Area      *string  `json:"area"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
		ImageURL  *string  `json:"image_url"`
		Active    *bool    `json:"active"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid update"})
		return
	}
	if input.Latitude != nil || input.Longitude != nil {
		if input.Latitude == nil || input.Longitude == nil || !tracking.ValidCoordinate(*input.Latitude, *input.Longitude) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates. Latitude -90 to 90, Longitude -180 to 180"})
			return
		}
		bin.Latitude = *input.Latitude
		bin.Longitude = *input.Longitude
	}
	if input.Name != nil {
		bin.Name = *input.Name
	}
	if input.Area != nil {
		bin.Area = *input.Area
	}
	if input.ImageURL != nil {
		bin.ImageURL = *input.ImageURL
	}
	if input.Active != nil {
		bin.Active = *input.Active
	}

	if err := db.SaveDustbin(c.Request.Context(), bin); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dustbin": bin})
}

// MarkDustbinStatus transitions a dustbin between clean, overflow and
// missed. Marking clean stamps the collection time.
func MarkDustbinStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}
	switch input.Status {
	case models.BinClean, models.BinOverflow, models.BinMissed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be clean, overflow or missed"})
		return
	}

	bin, err := db.GetDustbin(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if bin.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dustbin not found"})
		return
	}

	bin.Status = input.Status
	if input.Status == models.BinClean {
		now := time.Now()
		bin.LastCleanedAt = &now
	}
	if err := db.SaveDustbin(c.Request.Context(), bin); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dustbin": bin})
}

// DeleteDustbin removes a dustbin. Detach it from any route first so the
// remaining stops keep a coherent order.
func DeleteDustbin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	bin, err := db.GetDustbin(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if bin.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Dustbin not found"})
		return
	}
	if bin.RouteID != nil {
		if _, err := manager.DetachDustbinFromRoute(c.Request.Context(), bin.OfficeID, bin.ID); err != nil {
			respondErr(c, err)
			return
		}
	}
	if err := db.DeleteDustbin(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Dustbin deleted"})
}
