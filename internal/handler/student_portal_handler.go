package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/smkbandara/cbt-backend/internal/middleware"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/response"
	"github.com/smkbandara/cbt-backend/internal/service"
	"github.com/smkbandara/cbt-backend/internal/validator"
)

// StudentPortalHandler handles the student-facing exam endpoints.
type StudentPortalHandler struct {
	sessionService  *service.SessionService
	subjectService  *service.SubjectService
	questionService *service.QuestionService
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.SessionService,
	subjectService *service.SubjectService,
	questionService *service.QuestionService,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService:  sessionService,
		subjectService:  subjectService,
		questionService: questionService,
	}
}

// ListSubjects godoc
// GET /api/v1/student/subjects
// Returns all subjects annotated with the student's attempt state and
// schedule availability.
func (h *StudentPortalHandler) ListSubjects(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	states, err := h.subjectService.ListForStudent(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subjects": states})
}

// StartSession godoc
// POST /api/v1/student/sessions
// Starts the student's single attempt at a subject.
func (h *StudentPortalHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.Start(c.Request.Context(), claims.UserID, req.SubjectID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyAttempted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyAttempted)
		case errors.Is(err, service.ErrScheduleClosed):
			response.Fail(c, http.StatusForbidden, response.ErrScheduleClosed)
		case errors.Is(err, service.ErrNoQuestions):
			response.Fail(c, http.StatusConflict, response.ErrNoQuestions)
		case errors.Is(err, pgx.ErrNoRows):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"session": session})
}

// GetPaper godoc
// GET /api/v1/student/sessions/:id/paper
// Returns the question set stripped of correct options. Only the session
// owner may fetch it, and only while the session is ongoing.
func (h *StudentPortalHandler) GetPaper(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}
	if session.Status.Terminal() {
		response.Fail(c, http.StatusConflict, response.ErrAlreadyFinalized)
		return
	}

	paper, err := h.questionService.Paper(c.Request.Context(), session.SubjectID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": paper})
}

// GetState godoc
// GET /api/v1/student/sessions/:id/state
// Recovery endpoint for a reloading exam client: merged answers, violation
// count and remaining countdown.
func (h *StudentPortalHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	state, err := h.sessionService.State(c.Request.Context(), sessionID, claims.UserID)
	if err != nil {
		failSessionError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// failSessionError maps session lifecycle errors onto response codes.
func failSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrSessionNotOwned):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, model.ErrAlreadyFinalized):
		response.Fail(c, http.StatusConflict, response.ErrAlreadyFinalized)
	case errors.Is(err, model.ErrMalformedSession):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrSessionMalformed)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
