package analytics

import "github.com/gin-gonic/gin"

func SetupAnalyticsRoutes(rg *gin.RouterGroup, controller *Controller, adminAuth ...gin.HandlerFunc) {
	admin := rg.Group("/admin/analytics")
	admin.Use(adminAuth...)
	{
		admin.GET("/overview", controller.GetOverview)             // GET /api/v1/admin/analytics/overview
		admin.GET("/sessions/:id", controller.GetSessionOccupancy) // GET /api/v1/admin/analytics/sessions/:id
	}
}
