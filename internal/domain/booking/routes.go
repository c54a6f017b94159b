package booking

import (
	"github.com/gin-gonic/gin"
)

// RegisterCustomerRoutes mounts booking creation and the customer's history.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings", h.CreateBooking)
	rg.GET("/bookings/me", h.GetMyBookings)
}

// RegisterWorkerRoutes mounts the worker side of the lifecycle.
func (h *Handler) RegisterWorkerRoutes(rg *gin.RouterGroup) {
	rg.GET("/workers/me/bookings", h.GetWorkerBookings)
	rg.POST("/bookings/:id/accept", h.AcceptBooking)
	rg.POST("/bookings/:id/reject", h.RejectBooking)
	rg.POST("/bookings/:id/complete", h.CompleteBooking)
}

// RegisterParticipantRoutes mounts routes open to either side of a booking.
func (h *Handler) RegisterParticipantRoutes(rg *gin.RouterGroup) {
	rg.GET("/bookings/:id", h.GetBooking)
	rg.POST("/bookings/:id/cancel", h.CancelBooking)
}
