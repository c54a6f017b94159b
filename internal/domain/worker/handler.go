package worker

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"servicehub/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the public worker profile route.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/workers/:id", h.GetWorker)
}

// RegisterAdminRoutes expects rg to be guarded by the admin role.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("/workers", h.RegisterWorker)
	rg.GET("/workers", h.ListWorkers)
}

func (h *Handler) RegisterWorker(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	w, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		response.Internal(c, "Failed to register worker")
		return
	}

	response.Created(c, gin.H{"worker": w})
}

func (h *Handler) GetWorker(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid worker ID")
		return
	}

	w, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrWorkerNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Worker not found")
			return
		}
		response.Internal(c, "Failed to get worker")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"worker": gin.H{
			"id":           w.ID,
			"name":         w.Name,
			"service_name": w.ServiceName,
		},
	})
}

func (h *Handler) ListWorkers(c *gin.Context) {
	workers, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Internal(c, "Failed to list workers")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"workers": workers})
}
