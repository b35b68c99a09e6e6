package routes

import (
	"waste_tracker/internal/controllers"
	"waste_tracker/internal/middleware"

	"github.com/gin-gonic/gin"
)

func AdminRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAuth(), middleware.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/offices", controllers.RegisterOffice)
		admin.GET("/offices", controllers.ListOffices)
		admin.GET("/offices/:id", controllers.GetOffice)
		admin.PUT("/offices/:id", controllers.UpdateOffice)
		admin.DELETE("/offices/:id", controllers.DeleteOffice)
	}
}
