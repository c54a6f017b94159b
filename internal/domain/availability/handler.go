package availability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"servicehub/internal/domain/worker"
	"servicehub/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type fixedSlotRequest struct {
	Day       string `json:"day" binding:"required"`
	TimeRange string `json:"time_range" binding:"required,timerange"`
	Enabled   *bool  `json:"enabled"`
}

type replaceFixedRequest struct {
	Slots []fixedSlotRequest `json:"slots" binding:"dive"`
}

type addDateSlotsRequest struct {
	Date       string   `json:"date" binding:"required,isodate"`
	TimeRanges []string `json:"time_ranges" binding:"required,min=1,dive,timerange"`
}

type blockDateRequest struct {
	Date string `json:"date" binding:"required,isodate"`
}

func (h *Handler) GetSlots(c *gin.Context) {
	workerID, ok := parseID(c, "id")
	if !ok {
		return
	}

	date := c.Query("date")
	if date == "" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "date query parameter is required")
		return
	}

	slots, err := h.service.GetSlots(c.Request.Context(), workerID, date)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"worker_id": workerID,
		"date":      date,
		"slots":     slots,
	})
}

func (h *Handler) GetAvailability(c *gin.Context) {
	workerID, ok := parseID(c, "id")
	if !ok {
		return
	}

	av, err := h.service.GetAvailability(c.Request.Context(), workerID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, availabilityView(av))
}

func (h *Handler) ReplaceFixedSlots(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	var req replaceFixedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	inputs := make([]FixedSlotInput, 0, len(req.Slots))
	for _, s := range req.Slots {
		day, err := ParseWeekday(s.Day)
		if err != nil {
			writeError(c, err)
			return
		}
		enabled := true
		if s.Enabled != nil {
			enabled = *s.Enabled
		}
		inputs = append(inputs, FixedSlotInput{Day: day, TimeRange: s.TimeRange, Enabled: enabled})
	}

	slots, err := h.service.ReplaceFixedSlots(c.Request.Context(), workerID, inputs)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"fixed_slots": groupFixed(slots)})
}

func (h *Handler) AddDateSlots(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	var req addDateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	slots, err := h.service.AddDateSlots(c.Request.Context(), workerID, req.Date, req.TimeRanges)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, gin.H{"date": req.Date, "slots": slots})
}

func (h *Handler) RemoveDateSlot(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	slotID, ok := parseID(c, "slotId")
	if !ok {
		return
	}

	if err := h.service.RemoveDateSlot(c.Request.Context(), workerID, slotID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": slotID})
}

func (h *Handler) BlockDate(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	var req blockDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c, err)
		return
	}

	if err := h.service.BlockDate(c.Request.Context(), workerID, req.Date); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"blocked": req.Date})
}

func (h *Handler) UnblockDate(c *gin.Context) {
	workerID := c.GetInt64("user_id")
	if workerID == 0 {
		response.Unauthorized(c)
		return
	}

	date := c.Param("date")
	if err := h.service.UnblockDate(c.Request.Context(), workerID, date); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unblocked": date})
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid "+param)
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, worker.ErrWorkerNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Worker not found")
	case errors.Is(err, ErrSlotNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Slot not found")
	case errors.Is(err, ErrSlotInUse):
		response.Error(c, http.StatusConflict, "SLOT_IN_USE", err.Error())
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidTimeRange),
		errors.Is(err, ErrOverlappingSlots):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		response.Internal(c, "Failed to process availability request")
	}
}

type fixedSlotView struct {
	TimeRange string `json:"time_range"`
	Enabled   bool   `json:"enabled"`
}

type dateSlotView struct {
	ID        int64  `json:"id"`
	TimeRange string `json:"time_range"`
	Booked    bool   `json:"booked"`
}

func groupFixed(slots []FixedSlot) map[string][]fixedSlotView {
	out := make(map[string][]fixedSlotView)
	for _, s := range slots {
		key := weekdayKey(time.Weekday(s.DayOfWeek))
		out[key] = append(out[key], fixedSlotView{TimeRange: s.TimeRange, Enabled: s.Enabled})
	}
	return out
}

func availabilityView(av *Availability) gin.H {
	dates := make(map[string][]dateSlotView)
	for _, s := range av.DateSlots {
		dates[s.Date] = append(dates[s.Date], dateSlotView{ID: s.ID, TimeRange: s.TimeRange, Booked: s.Booked})
	}

	unavailable := av.UnavailableDates
	if unavailable == nil {
		unavailable = []string{}
	}

	return gin.H{
		"worker_id":         av.WorkerID,
		"fixed_slots":       groupFixed(av.FixedSlots),
		"dates":             dates,
		"unavailable_dates": unavailable,
	}
}
