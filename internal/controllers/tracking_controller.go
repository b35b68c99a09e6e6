package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"waste_tracker/internal/middleware"
	"waste_tracker/internal/models"
	"waste_tracker/internal/tracking"
)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all for development (restrict in production!)
	},
}

// LocationData is the incoming JSON from a driver's app. ObservedAt keeps
// time.Time, relying on the custom UnmarshalJSON for lenient formats.
type LocationData struct {
	VehicleID  uint      `json:"vehicle_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Accuracy   float64   `json:"accuracy"` // GPS accuracy in meters
	Speed      float64   `json:"speed"`    // Speed in m/s
	ObservedAt time.Time `json:"observed_at"`
}

// UnmarshalJSON handles device timestamps that arrive without a timezone
// suffix by assuming UTC.
func (ld *LocationData) UnmarshalJSON(data []byte) error {
	type alias LocationData
	aux := &struct {
		ObservedAt string `json:"observed_at"`
		*alias
	}{alias: (*alias)(ld)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	ts := aux.ObservedAt
	if ts == "" {
		ld.ObservedAt = time.Now().UTC()
		return nil
	}
	if len(ts) >= 6 && !(strings.HasSuffix(ts, "Z") || strings.ContainsAny(ts[len(ts)-6:], "+-")) {
		ts += "Z"
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return fmt.Errorf("invalid observed_at %q: %w", aux.ObservedAt, err)
	}
	ld.ObservedAt = t
	return nil
}

// LocationHub fans vehicle position updates out to the ward office
// dashboards watching them.
type LocationHub struct {
	officeClients map[uint]map[*websocket.Conn]bool
	broadcast     chan map[string]interface{}
	mu            sync.Mutex
}

// NewLocationHub creates a hub and starts its broadcast loop.
func NewLocationHub() *LocationHub {
	hub := &LocationHub{
		officeClients: make(map[uint]map[*websocket.Conn]bool),
		broadcast:     make(chan map[string]interface{}, 100),
	}
	go hub.run()
	return hub
}

func (h *LocationHub) run() {
	for msg := range h.broadcast {
		h.mu.Lock()
		officeIDFloat, ok := msg["office_id"].(float64)
		if !ok {
			logrus.Warn("Broadcast message missing 'office_id'. Skipping.")
			h.mu.Unlock()
			continue
		}
		officeID := uint(officeIDFloat)

		if clients, exists := h.officeClients[officeID]; exists {
			for conn := range clients {
				go func(c *websocket.Conn, m map[string]interface{}) {
					if err := c.WriteJSON(m); err != nil {
						if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
							h.UnregisterClient(officeID, c)
						} else {
							logrus.WithError(err).WithField("office_id", officeID).Warn("Failed to send broadcast message to client.")
						}
					}
				}(conn, msg)
			}
		}
		h.mu.Unlock()
	}
}

// RegisterClient registers an office dashboard connection with the hub.
func (h *LocationHub) RegisterClient(officeID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.officeClients[officeID]; !ok {
		h.officeClients[officeID] = make(map[*websocket.Conn]bool)
	}
	h.officeClients[officeID][conn] = true
	logrus.WithField("office_id", officeID).Info("Client registered with LocationHub.")
}

// UnregisterClient removes a disconnected dashboard connection.
func (h *LocationHub) UnregisterClient(officeID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.officeClients[officeID]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.officeClients, officeID)
		}
	}
	logrus.WithField("office_id", officeID).Info("Client unregistered from LocationHub.")
}

// PublishLocation hands an update to the broadcast channel, dropping it if
// the channel is full rather than blocking the sender.
func (h *LocationHub) PublishLocation(data map[string]interface{}) {
	select {
	case h.broadcast <- data:
	default:
		logrus.Warn("Location broadcast channel full, dropping message.")
	}
}

var locationHub = NewLocationHub()

// authenticateWebSocket validates the JWT passed as a query parameter and
// resolves the caller to an office scope plus, for drivers, their vehicle.
func authenticateWebSocket(c *gin.Context) (claims *middleware.Claims, vehicleID uint, err error) {
	tokenString := c.Query("token")
	if tokenString == "" {
		return nil, 0, errors.New("missing authentication token")
	}
	claims, err = middleware.ValidateToken(tokenString)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid token: %w", err)
	}

	switch claims.Role {
	case models.RoleDriver:
		staff, err := db.GetStaff(c.Request.Context(), claims.SubjectID)
		if err != nil {
			return nil, 0, fmt.Errorf("driver profile not found: %w", err)
		}
		if staff.AssignedVehicleID == nil {
			return nil, 0, errors.New("driver has no assigned vehicle")
		}
		return claims, *staff.AssignedVehicleID, nil
	case middleware.RoleOffice:
		return claims, 0, nil
	default:
		return nil, 0, errors.New("unauthorized role for WebSocket connection")
	}
}

// HandleTrackingWebSocket is the gin handler for /ws/track. Drivers stream
// positions in; office dashboards receive them.
func HandleTrackingWebSocket(c *gin.Context) {
	claims, vehicleID, authErr := authenticateWebSocket(c)
	if authErr != nil {
		logrus.WithError(authErr).Warn("WebSocket connection attempt rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": authErr.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Error("Failed to upgrade WebSocket connection.")
		return
	}
	defer conn.Close()

	if claims.Role == models.RoleDriver {
		handleDriverWebSocket(c, conn, vehicleID, claims.OfficeID)
	} else {
		handleOfficeWebSocket(conn, claims.OfficeID)
	}
}

// handleDriverWebSocket reads position frames from a driver until the
// connection drops, then marks the vehicle offline.
func handleDriverWebSocket(c *gin.Context, conn *websocket.Conn, vehicleID, officeID uint) {
	logrus.WithFields(logrus.Fields{
		"vehicle_id": vehicleID,
		"office_id":  officeID,
	}).Info("Driver WebSocket connection established.")

	defer func() {
		// The request context is gone once the socket drops.
		if err := tracker.MarkOffline(context.Background(), vehicleID); err != nil {
			logrus.WithError(err).WithField("vehicle_id", vehicleID).Warn("Failed to mark vehicle offline on disconnect")
		}
	}()

	for {
		messageType, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("vehicle_id", vehicleID).Info("Driver WebSocket closed.")
			} else {
				logrus.WithError(err).Errorf("Error reading WebSocket message for vehicle %d", vehicleID)
			}
			break
		}
		if messageType == websocket.TextMessage {
			processDriverLocation(c, conn, p, vehicleID, officeID)
		}
	}
}

// handleOfficeWebSocket parks a dashboard connection on the hub until it
// disconnects. Dashboards only receive; inbound frames are ignored.
func handleOfficeWebSocket(conn *websocket.Conn, officeID uint) {
	locationHub.RegisterClient(officeID, conn)
	defer locationHub.UnregisterClient(officeID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("office_id", officeID).Info("Office monitoring WebSocket closed.")
			} else {
				logrus.WithError(err).Errorf("Error reading WebSocket message from office %d", officeID)
			}
			return
		}
		logrus.WithField("office_id", officeID).Warn("Office client sent unexpected message. Ignoring.")
	}
}

// processDriverLocation feeds one frame into the tracker and, when it is
// accepted, broadcasts the position and the driver's next stop hint.
func processDriverLocation(c *gin.Context, conn *websocket.Conn, p []byte, vehicleID, officeID uint) {
	var locData LocationData
	if err := json.Unmarshal(p, &locData); err != nil {
		logrus.WithError(err).WithField("vehicle_id", vehicleID).Error("Error unmarshaling location data.")
		conn.WriteJSON(gin.H{"error": "Invalid location data format. Check observed_at format."})
		return
	}
	if locData.VehicleID != 0 && locData.VehicleID != vehicleID {
		logrus.WithFields(logrus.Fields{
			"authenticated_vehicle_id": vehicleID,
			"payload_vehicle_id":       locData.VehicleID,
		}).Warn("Driver attempted to report for a different vehicle. Denying.")
		conn.WriteJSON(gin.H{"error": "Unauthorized location update."})
		return
	}

	accepted, err := tracker.ReportPosition(c.Request.Context(), vehicleID, locData.Latitude, locData.Longitude, locData.ObservedAt)
	if err != nil {
		conn.WriteJSON(gin.H{"error": err.Error()})
		return
	}
	if !accepted {
		conn.WriteMessage(websocket.TextMessage, []byte("Location received - superseded by a newer sample"))
		return
	}

	response := gin.H{
		"status":      "saved",
		"observed_at": locData.ObservedAt.Format(time.RFC3339Nano),
	}
	if hint, err := tracker.NextStopHint(c.Request.Context(), vehicleID); err == nil {
		response["next_stop"] = hint
	} else if errors.Is(err, tracking.ErrNoRemainingStops) {
		response["route_complete"] = true
	}
	conn.WriteJSON(response)

	locationHub.PublishLocation(map[string]interface{}{
		"vehicle_id":  vehicleID,
		"latitude":    locData.Latitude,
		"longitude":   locData.Longitude,
		"accuracy":    locData.Accuracy,
		"speed":       locData.Speed,
		"observed_at": locData.ObservedAt.Format(time.RFC3339Nano),
		"office_id":   float64(officeID),
	})
}

// callerVehicleID resolves the authenticated staff member to their assigned
// vehicle. Location reports always target the caller's own vehicle.
func callerVehicleID(c *gin.Context) (uint, bool) {
	claims := middleware.CallerClaims(c)
	staff, err := db.GetStaff(c.Request.Context(), claims.SubjectID)
	if err != nil {
		respondErr(c, err)
		return 0, false
	}
	if staff.AssignedVehicleID == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "no vehicle assigned to caller"})
		return 0, false
	}
	return *staff.AssignedVehicleID, true
}

// ReportVehicleLocation is the REST fallback for devices without a stable
// WebSocket connection.
func ReportVehicleLocation(c *gin.Context) {
	id, ok := callerVehicleID(c)
	if !ok {
		return
	}
	var locData LocationData
	if err := c.ShouldBindJSON(&locData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid location data: " + err.Error()})
		return
	}

	accepted, err := tracker.ReportPosition(c.Request.Context(), id, locData.Latitude, locData.Longitude, locData.ObservedAt)
	if err != nil {
		respondErr(c, err)
		return
	}
	if accepted {
		locationHub.PublishLocation(map[string]interface{}{
			"vehicle_id":  id,
			"latitude":    locData.Latitude,
			"longitude":   locData.Longitude,
			"observed_at": locData.ObservedAt.Format(time.RFC3339Nano),
			"office_id":   float64(callerOfficeID(c)),
		})
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted})
}

// MarkVehicleOffline is the explicit end-of-shift beacon.
func MarkVehicleOffline(c *gin.Context) {
	id, ok := callerVehicleID(c)
	if !ok {
		return
	}
	if err := tracker.MarkOffline(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle marked offline"})
}

// StaffNavigation answers the authenticated driver's next-stop query.
func StaffNavigation(c *gin.Context) {
	id, ok := callerVehicleID(c)
	if !ok {
		return
	}
	answerNavigation(c, id)
}

// VehicleNavigation returns the next pending stop for a vehicle along with
// distance and compass bearing from its latest position.
func VehicleNavigation(c *gin.Context) {
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
	answerNavigation(c, id)
}

func answerNavigation(c *gin.Context, id uint) {
	hint, err := tracker.NextStopHint(c.Request.Context(), id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"next_stop": hint, "online": tracker.Online(id)})
	case errors.Is(err, tracking.ErrNoRemainingStops):
		c.JSON(http.StatusOK, gin.H{"next_stop": nil, "route_complete": true, "online": tracker.Online(id)})
	case errors.Is(err, tracking.ErrNoActiveRoute):
		c.JSON(http.StatusConflict, gin.H{"error": "vehicle has no active route"})
	case errors.Is(err, tracking.ErrNoPosition):
		c.JSON(http.StatusConflict, gin.H{"error": "no position reported for vehicle yet"})
	default:
		respondErr(c, err)
	}
}

// VehiclePositions returns the latest known position of every vehicle in
// the caller's office, for dashboard bootstrap before the socket opens.
func VehiclePositions(c *gin.Context) {
	vehicles, err := db.ListVehiclesByOffice(c.Request.Context(), callerOfficeID(c))
	if err != nil {
		respondErr(c, err)
		return
	}

	positions := make([]gin.H, 0, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		entry := gin.H{
			"vehicle_id":     v.ID,
			"vehicle_number": v.VehicleNumber,
			"online":         tracker.Online(v.ID),
		}
		if lat, lon, at, ok := tracker.LastKnown(v.ID); ok {
			entry["latitude"] = lat
			entry["longitude"] = lon
			entry["observed_at"] = at
		} else if v.Latitude != nil && v.Longitude != nil {
			entry["latitude"] = *v.Latitude
			entry["longitude"] = *v.Longitude
			if v.LocationUpdatedAt != nil {
				entry["observed_at"] = *v.LocationUpdatedAt
			}
		}
		positions = append(positions, entry)
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}
