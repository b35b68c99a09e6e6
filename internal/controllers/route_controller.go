package controllers

import (
	"encoding/binary"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"waste_tracker/internal/models"
	"waste_tracker/internal/store"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// RouteResponse mirrors models.Route but carries Geometry as a GeoJSON
// string for API output instead of raw WKB bytes.
type RouteResponse struct {
	ID                uint             `json:"ID"`
	CreatedAt         time.Time        `json:"CreatedAt"`
	UpdatedAt         time.Time        `json:"UpdatedAt"`
	DeletedAt         gorm.DeletedAt   `json:"DeletedAt,omitempty"`
	OfficeID          uint             `json:"office_id"`
	Name              string           `json:"name"`
	Description       string           `json:"description"`
	AssignedVehicleID *uint            `json:"assigned_vehicle_id"`
	Active            bool             `json:"active"`
	Geometry          string           `json:"geometry"`
	Dustbins          []models.Dustbin `json:"dustbins"`
}

func toRouteResponse(route *models.Route) RouteResponse {
	jsonGeom, _ := convertWKBToGeoJSON(route.Geometry)
	return RouteResponse{
		ID:                route.ID,
		CreatedAt:         route.CreatedAt,
		UpdatedAt:         route.UpdatedAt,
		DeletedAt:         route.DeletedAt,
		OfficeID:          route.OfficeID,
		Name:              route.Name,
		Description:       route.Description,
		AssignedVehicleID: route.AssignedVehicleID,
		Active:            route.Active,
		Geometry:          jsonGeom,
		Dustbins:          route.Dustbins,
	}
}

// parseAndConvertGeometry parses a GeoJSON string into a geom.T and returns WKB bytes
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	return wkb.Marshal(g, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateRoute creates a collection route, optionally with a GeoJSON
// LineString geometry and an initial ordered set of stops.
func CreateRoute(c *gin.Context) {
	var input struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		Geometry    string `json:"geometry"`
		Stops       []struct {
			Name      string  `json:"name"`
			Area      string  `json:"area"`
			Seq       int     `json:"seq"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"stops"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("CreateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	wkbGeom, err := parseAndConvertGeometry(input.Geometry)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
		return
	}

	officeID := callerOfficeID(c)
	route := models.Route{
		OfficeID:    officeID,
		Name:        input.Name,
		Description: input.Description,
		Active:      true,
		Geometry:    wkbGeom,
	}

	err = db.InTx(c.Request.Context(), func(tx store.Store) error {
		if err := tx.CreateRoute(c.Request.Context(), &route); err != nil {
			return err
		}
		for _, s := range input.Stops {
			rid := route.ID
			bin := models.Dustbin{
				OfficeID:  officeID,
				RouteID:   &rid,
				Seq:       s.Seq,
				Name:      s.Name,
				Area:      s.Area,
				Latitude:  s.Latitude,
				Longitude: s.Longitude,
				Status:    models.BinClean,
				Active:    true,
			}
			if err := tx.CreateDustbin(c.Request.Context(), &bin); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	full, err := db.GetRoute(c.Request.Context(), route.ID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"route": toRouteResponse(full)})
}

// ListRoutes returns the caller office's routes with their stops.
func ListRoutes(c *gin.Context) {
	routes, err := db.ListRoutesByOffice(c.Request.Context(), callerOfficeID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	responses := make([]RouteResponse, 0, len(routes))
	for i := range routes {
		responses = append(responses, toRouteResponse(&routes[i]))
	}
	c.JSON(http.StatusOK, gin.H{"routes": responses})
}

// GetRouteDetail returns a single route with its stops in visit order.
func GetRouteDetail(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	route, err := db.GetRoute(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if route.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// UpdateRoute modifies name, description, active flag or geometry.
func UpdateRoute(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	route, err := db.GetRoute(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if route.OfficeID != callerOfficeID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
		return
	}

	var input struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Active      *bool   `json:"active"`
		Geometry    *string `json:"geometry"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		logrus.WithError(err).Warn("UpdateRoute: invalid input payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		route.Name = *input.Name
	}
	if input.Description != nil {
		route.Description = *input.Description
	}
	if input.Active != nil {
		route.Active = *input.Active
	}
	if input.Geometry != nil {
		if *input.Geometry == "" {
			route.Geometry = nil
		} else {
			wkbGeom, err := parseAndConvertGeometry(*input.Geometry)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid geometry: " + err.Error()})
				return
			}
			route.Geometry = wkbGeom
		}
	}

	if err := db.SaveRoute(c.Request.Context(), route); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// DeleteRouteHandler removes a route, releasing its vehicle and detaching
// its stops.
func DeleteRouteHandler(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := manager.DeleteRoute(c.Request.Context(), callerOfficeID(c), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

// AssignRouteVehicle dedicates a vehicle to this route. A vehicle already
// serving another active route is rejected with a conflict.
func AssignRouteVehicle(c *gin.Context) {
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
	route, vehicle, err := manager.AssignVehicleToRoute(c.Request.Context(), callerOfficeID(c), id, input.VehicleID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route), "vehicle": vehicle})
}

// UnassignRouteVehicle releases the route's vehicle, if any.
func UnassignRouteVehicle(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	route, err := manager.UnassignVehicleFromRoute(c.Request.Context(), callerOfficeID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"route": toRouteResponse(route)})
}

// AttachRouteDustbin adds an existing dustbin to the route's visit order.
// A missing or non-positive seq appends at the end.
func AttachRouteDustbin(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	dustbinID, ok := pathID(c, "dustbinId")
	if !ok {
		return
	}
	var input struct {
		Seq int `json:"seq"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}
	}
	bin, err := manager.AttachDustbinToRoute(c.Request.Context(), callerOfficeID(c), id, dustbinID, input.Seq)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dustbin": bin})
}

// DetachRouteDustbin removes a dustbin from whatever route holds it.
func DetachRouteDustbin(c *gin.Context) {
	dustbinID, ok := pathID(c, "dustbinId")
	if !ok {
		return
	}
	bin, err := manager.DetachDustbinFromRoute(c.Request.Context(), callerOfficeID(c), dustbinID)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dustbin": bin})
}
