package pricing

import "github.com/gin-gonic/gin"

func SetupPriceRuleRoutes(rg *gin.RouterGroup, controller *Controller, adminAuth ...gin.HandlerFunc) {
	rules := rg.Group("/admin/price-rules")
	rules.Use(adminAuth...)
	{
		rules.GET("", controller.ListRules)         // GET /api/v1/admin/price-rules
		rules.POST("", controller.CreateRule)       // POST /api/v1/admin/price-rules
		rules.GET("/:id", controller.GetRule)       // GET /api/v1/admin/price-rules/:id
		rules.PUT("/:id", controller.UpdateRule)    // PUT /api/v1/admin/price-rules/:id
		rules.DELETE("/:id", controller.DeleteRule) // DELETE /api/v1/admin/price-rules/:id
	}
}
