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

// MonitorHandler handles live proctoring endpoints.
type MonitorHandler struct {
	monitorService *service.MonitorService
	sessionService *service.SessionService
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(monitorService *service.MonitorService, sessionService *service.SessionService) *MonitorHandler {
	return &MonitorHandler{monitorService: monitorService, sessionService: sessionService}
}

// Overview godoc
// GET /api/v1/admin/monitor
// Polling view of every ongoing session with live answer progress. Clients
// poll this endpoint; there is no push channel for proctors.
func (h *MonitorHandler) Overview(c *gin.Context) {
	rows, err := h.monitorService.Overview(c.Request.Context())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"sessions": rows,
		"total":    len(rows),
	})
}

// ForceFinish godoc
// POST /api/v1/admin/sessions/:id/force-finish
// Finalizes a session on behalf of a proctor, as completed or terminated.
// Racing against the student's own submit is safe: exactly one wins.
func (h *MonitorHandler) ForceFinish(c *gin.Context) {
	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req model.ForceFinishRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.ForceFinish(c.Request.Context(), sessionID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, model.ErrAlreadyFinalized):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyFinalized)
		case errors.Is(err, model.ErrMalformedSession):
			response.Fail(c, http.StatusUnprocessableEntity, response.ErrSessionMalformed)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": session})
}
