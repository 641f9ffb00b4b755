package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/response"
	"github.com/smkbandara/cbt-backend/internal/service"
	"github.com/smkbandara/cbt-backend/internal/validator"
)

// ScheduleHandler handles exam window administration endpoints.
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(scheduleService *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

// List godoc
// GET /api/v1/admin/schedules
func (h *ScheduleHandler) List(c *gin.Context) {
	schedules, err := h.scheduleService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"schedules": schedules})
}

// Save godoc
// PUT /api/v1/admin/subjects/:id/schedule
// Upserts a subject's exam window.
func (h *ScheduleHandler) Save(c *gin.Context) {
	subjectID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	var req model.SaveScheduleRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	schedule, err := h.scheduleService.Save(c.Request.Context(), subjectID, &req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"schedule": schedule})
}

// Delete godoc
// DELETE /api/v1/admin/subjects/:id/schedule
// Removes the window, leaving the subject open.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	subjectID, ok := paramInt(c, "id")
	if !ok {
		return
	}

	if err := h.scheduleService.Delete(c.Request.Context(), subjectID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
