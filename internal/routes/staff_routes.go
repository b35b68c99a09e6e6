package routes

import (
	"waste_tracker/internal/controllers"
	"waste_tracker/internal/middleware"
	"waste_tracker/internal/models"

	"github.com/gin-gonic/gin"
)

// StaffRoutes is the crew-facing surface used by the driver app.
func StaffRoutes(r *gin.Engine) {
	staff := r.Group("/staff")
	staff.Use(middleware.RequireAuth(), middleware.RequireRole(models.RoleDriver, models.RoleHelper, models.RoleSupervisor))
	{
		staff.GET("/dashboard", controllers.StaffDashboard)
		staff.POST("/location", controllers.ReportVehicleLocation)
		staff.POST("/offline", controllers.MarkVehicleOffline)
		staff.GET("/navigation", controllers.StaffNavigation)
		staff.PATCH("/dustbins/:id/status", controllers.MarkDustbinStatus)
	}
}
