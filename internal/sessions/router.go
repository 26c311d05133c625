package sessions

import "github.com/gin-gonic/gin"

func SetupSessionRoutes(rg *gin.RouterGroup, controller *Controller, adminAuth ...gin.HandlerFunc) {
	rg.GET("/sessions/:id", controller.GetSession) // GET /api/v1/sessions/:id

	admin := rg.Group("/admin")
	admin.Use(adminAuth...)
	{
		admin.POST("/cinemas", controller.CreateCinema)               // POST /api/v1/admin/cinemas
		admin.POST("/auditoriums", controller.CreateAuditorium)       // POST /api/v1/admin/auditoriums
		admin.PUT("/auditoriums/:id/layout", controller.UpdateLayout) // PUT /api/v1/admin/auditoriums/:id/layout

		admin.GET("/sessions", controller.ListSessions)         // GET /api/v1/admin/sessions
		admin.POST("/sessions", controller.CreateSession)       // POST /api/v1/admin/sessions
		admin.DELETE("/sessions/:id", controller.DeleteSession) // DELETE /api/v1/admin/sessions/:id
	}
}
