package checkout

import "github.com/gin-gonic/gin"

// SetupCartRoutes registers the cart API. holdLimit guards seat-taking endpoints and
// checkoutLimit guards confirmation; either may be nil.
func SetupCartRoutes(rg *gin.RouterGroup, controller *Controller, holdLimit, checkoutLimit gin.HandlerFunc) {
	cartGroup := rg.Group("/carts")
	{
		cartGroup.POST("", controller.CreateCart)            // POST /api/v1/carts
		cartGroup.GET("/:id", controller.GetCart)            // GET /api/v1/carts/:id
		cartGroup.POST("/:id/extend", controller.ExtendCart) // POST /api/v1/carts/:id/extend
		cartGroup.POST("/:id/quote", controller.Quote)       // POST /api/v1/carts/:id/quote
		cartGroup.POST("/:id/cancel", controller.CancelCart) // POST /api/v1/carts/:id/cancel

		cartGroup.POST("/:id/holds", chain(holdLimit, controller.HoldSeats)...)         // POST /api/v1/carts/:id/holds
		cartGroup.DELETE("/:id/holds/:sessionId/:seatCode", controller.ReleaseSeat)     // DELETE /api/v1/carts/:id/holds/:sessionId/:seatCode
		cartGroup.POST("/:id/confirm", chain(checkoutLimit, controller.ConfirmCart)...) // POST /api/v1/carts/:id/confirm
	}
}

func chain(limit gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{limit, handler}
}
