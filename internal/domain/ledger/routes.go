package ledger

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterWorkerRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/workers/me")
	{
		me.GET("/wallet", h.GetMyWallet)
		me.GET("/payments", h.ListMyPayments)
		me.POST("/withdrawals", h.Withdraw)
	}
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/wallet", h.GetPlatformWallet)
	rg.GET("/wallet/audit", h.AuditPlatform)
	rg.GET("/workers/:id/audit", h.AuditWorker)
}

// RegisterInternalRoutes mounts the callbacks used by the payment processor.
func (h *Handler) RegisterInternalRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("/confirm", h.ConfirmPayment)
		payments.POST("/cash", h.RecordCashPayment)
		payments.POST("/:id/reconcile", h.ReconcileCashPayment)
	}
}
