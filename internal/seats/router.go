package seats

import "github.com/gin-gonic/gin"

func SetupSeatRoutes(rg *gin.RouterGroup, controller *Controller, adminAuth ...gin.HandlerFunc) {
	sessions := rg.Group("/sessions")
	{
		sessions.GET("/:id/seats", controller.GetSeatMap)             // GET /api/v1/sessions/:id/seats
		sessions.GET("/:id/seats/:seatCode", controller.GetSeat)      // GET /api/v1/sessions/:id/seats/:seatCode
		sessions.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/sessions/:id/availability?type=VIP
	}

	admin := rg.Group("/admin/seats")
	admin.Use(adminAuth...)
	{
		admin.POST("/:sessionId/:seatCode/release", controller.AdminRelease) // POST /api/v1/admin/seats/:sessionId/:seatCode/release
	}
}
