package ledger

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"servicehub/internal/domain/worker"
	"servicehub/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type amountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

type confirmRequest struct {
	BookingID   int64  `json:"booking_id" binding:"required,gt=0"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	ExternalRef string `json:"external_ref" binding:"required,max=128"`
}

type cashRequest struct {
	BookingID int64 `json:"booking_id" binding:"required,gt=0"`
}

type reconcileRequest struct {
	Collected *bool `json:"collected" binding:"required"`
}

func (h *Handler) GetMyWallet(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	wallet, err := h.service.GetWallet(c.Request.Context(), workerID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"wallet": wallet})
}

func (h *Handler) ListMyPayments(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	payments, total, err := h.service.ListPayments(c.Request.Context(), workerID, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payments": payments, "total": total})
}

func (h *Handler) Withdraw(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	p, err := h.service.Withdraw(c.Request.Context(), workerID, req.Amount)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, gin.H{"payment": p})
}

func (h *Handler) GetPlatformWallet(c *gin.Context) {
	wallet, err := h.service.GetPlatformWallet(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"wallet": wallet})
}

func (h *Handler) AuditWorker(c *gin.Context) {
	workerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || workerID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid worker id")
		return
	}

	report, err := h.service.Audit(c.Request.Context(), workerID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"audit": report, "balanced": report.Balanced()})
}

func (h *Handler) AuditPlatform(c *gin.Context) {
	report, err := h.service.AuditPlatform(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"audit": report, "balanced": report.Balanced()})
}

func (h *Handler) ConfirmPayment(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	p, err := h.service.ConfirmPayment(c.Request.Context(), ConfirmInput{
		BookingID:   req.BookingID,
		Amount:      req.Amount,
		ExternalRef: req.ExternalRef,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payment": p})
}

func (h *Handler) RecordCashPayment(c *gin.Context) {
	var req cashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	p, err := h.service.RecordCashPayment(c.Request.Context(), req.BookingID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, gin.H{"payment": p})
}

func (h *Handler) ReconcileCashPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid payment id")
		return
	}

	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	p, err := h.service.ReconcileCashPayment(c.Request.Context(), id, *req.Collected)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"payment": p})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrBookingNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Booking not found")
	case errors.Is(err, ErrPaymentNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Payment not found")
	case errors.Is(err, worker.ErrWorkerNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Worker not found")
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAmount):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrAmountMismatch):
		response.Error(c, http.StatusUnprocessableEntity, "AMOUNT_MISMATCH", err.Error())
	case errors.Is(err, ErrAlreadyPaid):
		response.Error(c, http.StatusConflict, "ALREADY_PAID", err.Error())
	case errors.Is(err, ErrBookingNotPayable):
		response.Error(c, http.StatusConflict, "BOOKING_NOT_PAYABLE", err.Error())
	case errors.Is(err, ErrPaymentNotPending):
		response.Error(c, http.StatusConflict, "PAYMENT_NOT_PENDING", err.Error())
	case errors.Is(err, ErrInsufficientBalance):
		response.Error(c, http.StatusConflict, "INSUFFICIENT_BALANCE", err.Error())
	case errors.Is(err, ErrPaymentConfirmationFailed):
		response.Error(c, http.StatusInternalServerError, "PAYMENT_CONFIRMATION_FAILED", "Payment could not be confirmed")
	default:
		response.Internal(c, "Failed to process ledger request")
	}
}
