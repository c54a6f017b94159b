package availability

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the public slot lookup routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workers/:id/slots", h.GetSlots)
	rg.GET("/workers/:id/availability", h.GetAvailability)
}

// RegisterWorkerRoutes mounts the self-service routes. rg must be guarded by
// the worker role.
func (h *Handler) RegisterWorkerRoutes(rg *gin.RouterGroup) {
	me := rg.Group("/workers/me/availability")
	{
		me.PUT("/fixed", h.ReplaceFixedSlots)
		me.POST("/dates", h.AddDateSlots)
		me.DELETE("/dates/slots/:slotId", h.RemoveDateSlot)
		me.POST("/blocked", h.BlockDate)
		me.DELETE("/blocked/:date", h.UnblockDate)
	}
}
