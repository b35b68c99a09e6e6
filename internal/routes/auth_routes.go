package routes

import (
	"waste_tracker/internal/controllers"

	"github.com/gin-gonic/gin"
)

func AuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/admin/login", controllers.LoginAdmin)
		auth.POST("/office/login", controllers.LoginOffice)
		auth.POST("/staff/login", controllers.LoginStaff)
	}
}
