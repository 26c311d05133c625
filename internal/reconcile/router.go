package reconcile

import "github.com/gin-gonic/gin"

func SetupReconcileRoutes(rg *gin.RouterGroup, controller *Controller, adminAuth ...gin.HandlerFunc) {
	adminGroup := rg.Group("/admin/reconcile")
	adminGroup.Use(adminAuth...)
	{
		adminGroup.POST("", controller.ReconcileAll)                // POST /api/v1/admin/reconcile
		adminGroup.POST("/:sessionId", controller.ReconcileSession) // POST /api/v1/admin/reconcile/:sessionId
	}
}
