package booking

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"servicehub/internal/domain/availability"
	"servicehub/internal/domain/worker"
	"servicehub/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type reserveRequest struct {
	WorkerID      int64  `json:"worker_id" binding:"required,gt=0"`
	Date          string `json:"date" binding:"required,isodate"`
	SlotID        string `json:"slot_id" binding:"required"`
	ServiceName   string `json:"service_name" binding:"required,max=255"`
	Amount        int64  `json:"amount" binding:"required,gt=0"`
	PaymentMethod string `json:"payment_method" binding:"required,oneof=online cod"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type bookingView struct {
	*Booking
	SlotID string `json:"slot_id"`
}

func view(b *Booking) bookingView {
	return bookingView{Booking: b, SlotID: availability.SlotID(b.Slot())}
}

func views(bookings []Booking) []bookingView {
	out := make([]bookingView, 0, len(bookings))
	for i := range bookings {
		out = append(out, view(&bookings[i]))
	}
	return out
}

func (h *Handler) CreateBooking(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Unauthorized(c)
		return
	}

	var req reserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	date, err := availability.ParseDate(req.Date, h.service.Location())
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	ref, err := availability.ParseSlotID(req.SlotID, date)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	b, err := h.service.Reserve(c.Request.Context(), ReserveInput{
		WorkerID:      req.WorkerID,
		UserID:        userID,
		Date:          req.Date,
		Slot:          ref,
		ServiceName:   req.ServiceName,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, gin.H{"booking": view(b)})
}

func (h *Handler) GetBooking(c *gin.Context) {
	actorID := c.GetInt64("user_id")
	if actorID == 0 {
		response.Unauthorized(c)
		return
	}
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	b, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !b.IsParticipant(actorID) && c.GetString("role") != "admin" {
		writeError(c, ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": view(b)})
}

func (h *Handler) GetMyBookings(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if userID == 0 {
		response.Unauthorized(c)
		return
	}

	f := parseFilter(c)
	bookings, total, err := h.service.ListByUser(c.Request.Context(), userID, f)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bookings": views(bookings), "total": total})
}

func (h *Handler) GetWorkerBookings(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	f := parseFilter(c)
	bookings, total, err := h.service.ListByWorker(c.Request.Context(), workerID, f)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"bookings": views(bookings), "total": total})
}

func (h *Handler) AcceptBooking(c *gin.Context) {
	h.workerAction(c, h.service.Accept)
}

func (h *Handler) RejectBooking(c *gin.Context) {
	h.workerAction(c, h.service.Reject)
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	h.workerAction(c, h.service.Complete)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	actorID := c.GetInt64("user_id")
	if actorID == 0 {
		response.Unauthorized(c)
		return
	}
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), id, actorID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": view(b)})
}

func (h *Handler) workerAction(c *gin.Context, action func(ctx context.Context, bookingID, workerID int64) (*Booking, error)) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}
	id, ok := parseBookingID(c)
	if !ok {
		return
	}

	b, err := action(c.Request.Context(), id, workerID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"booking": view(b)})
}

func parseBookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking id")
		return 0, false
	}
	return id, true
}

func parseFilter(c *gin.Context) ListFilter {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return ListFilter{
		Status: Status(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, availability.ErrSlotUnavailable):
		response.Error(c, http.StatusConflict, "SLOT_UNAVAILABLE", "Slot is no longer available")
	case errors.Is(err, ErrInvalidCancellationReason):
		response.Error(c, http.StatusBadRequest, "INVALID_CANCELLATION_REASON", err.Error())
	case errors.Is(err, ErrBookingNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, worker.ErrWorkerNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Worker not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to act on this booking")
	case errors.Is(err, ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, "INVALID_STATUS_TRANSITION", err.Error())
	case errors.Is(err, ErrValidation),
		errors.Is(err, availability.ErrValidation),
		errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidSlotID),
		errors.Is(err, availability.ErrInvalidTimeRange):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		response.Internal(c, "Failed to process booking request")
	}
}
