package routes

import (
	"waste_tracker/internal/controllers"
	"waste_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

// OfficeRoutes is the ward office management surface: everything an office
// admin does with their own vehicles, staff, routes and dustbins.
func OfficeRoutes(r *gin.Engine) {
	office := r.Group("/office")
	office.Use(middleware.RequireAuth(), middleware.RequireRole(middleware.RoleOffice))
	{
		office.POST("/vehicles", controllers.CreateVehicle)
		office.GET("/vehicles", controllers.ListVehicles)
		office.GET("/vehicles/:id", controllers.GetVehicle)
		office.PUT("/vehicles/:id", controllers.UpdateVehicle)
		office.DELETE("/vehicles/:id", controllers.DeleteVehicle)
		office.GET("/vehicles/positions", controllers.VehiclePositions)
		office.GET("/vehicles/:id/navigation", controllers.VehicleNavigation)

		office.POST("/staff", controllers.RegisterStaff)
		office.GET("/staff", controllers.ListStaff)
		office.GET("/staff/:id", controllers.GetStaff)
		office.PUT("/staff/:id", controllers.UpdateStaff)
		office.DELETE("/staff/:id", controllers.DeleteStaff)
		office.POST("/staff/:id/vehicle", controllers.AssignStaffVehicle)
		office.DELETE("/staff/:id/vehicle", controllers.UnassignStaffVehicle)

		office.POST("/routes", controllers.CreateRoute)
		office.GET("/routes", controllers.ListRoutes)
		office.GET("/routes/:id", controllers.GetRouteDetail)
		office.PUT("/routes/:id", controllers.UpdateRoute)
		office.DELETE("/routes/:id", controllers.DeleteRouteHandler)
		office.POST("/routes/:id/vehicle", controllers.AssignRouteVehicle)
		office.DELETE("/routes/:id/vehicle", controllers.UnassignRouteVehicle)
		office.POST("/routes/:id/dustbins/:dustbinId", controllers.AttachRouteDustbin)
		office.DELETE("/routes/:id/dustbins/:dustbinId", controllers.DetachRouteDustbin)

		office.POST("/dustbins", controllers.CreateDustbin)
		office.GET("/dustbins", controllers.ListDustbins)
		office.GET("/dustbins/:id", controllers.GetDustbin)
		office.PUT("/dustbins/:id", controllers.UpdateDustbin)
		office.PATCH("/dustbins/:id/status", controllers.MarkDustbinStatus)
		office.DELETE("/dustbins/:id", controllers.DeleteDustbin)
	}
}
