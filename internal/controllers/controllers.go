package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"waste_tracker/internal/apperr"
	"waste_tracker/internal/fleet"
	"waste_tracker/internal/store"
	"waste_tracker/internal/tracking"
)

// Package-level handles wired once at startup; handlers are plain functions
// bound into the gin router.
var (
	db      store.Store
	manager *fleet.Manager
	tracker *tracking.Tracker
)

// Wire installs the store, fleet manager and tracker the handlers use.
func Wire(s store.Store, m *fleet.Manager, t *tracking.Tracker) {
	db = s
	manager = m
	tracker = t
}

// respondErr maps a service error onto the standard JSON error body.
func respondErr(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), gin.H{"error": err.Error()})
}

// parseUintQuery parses a numeric query value, returning zero when malformed.
func parseUintQuery(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

// pathID parses a numeric id path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name + " parameter"})
		return 0, false
	}
	return uint(id), true
}
