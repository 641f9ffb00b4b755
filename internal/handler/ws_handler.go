package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/smkbandara/cbt-backend/internal/middleware"
	"github.com/smkbandara/cbt-backend/internal/model"
	"github.com/smkbandara/cbt-backend/internal/service"
	ws "github.com/smkbandara/cbt-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket exam stream: autosaves, violation signals
// and submission over one connection.
type WSHandler struct {
	sessionService *service.SessionService
	maxViolations  int
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, maxViolations int, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		maxViolations:  maxViolations,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/student/sessions/:id/stream
// Upgrades to WebSocket for real-time autosave, violation reporting and
// submission of one exam session.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	studentID := claims.UserID

	// Ownership and liveness are checked before the upgrade commits.
	session, err := h.sessionService.Get(c.Request.Context(), sessionID, studentID)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "no such session"})
		return
	}
	if session.Status.Terminal() {
		c.JSON(http.StatusConflict, gin.H{"error": "session already finished"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("student_id", studentID).
		Str("session_id", sessionID.String()).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg struct {
			ws.RequestEnvelope
			QID    string `json:"q_id"`
			Answer string `json:"ans"`
			Signal string `json:"signal"`
		}
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAutosave:
			h.handleAutosave(conn, wsLog, sessionID, studentID, msg.QID, msg.Answer)
		case ws.ActionViolation:
			if done := h.handleViolation(conn, wsLog, sessionID, studentID, msg.Signal); done {
				return
			}
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, sessionID, studentID)
			return
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

// handleAutosave records a single answer.
func (h *WSHandler) handleAutosave(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int, qid, answer string) {
	ctx := context.Background()

	if qid == "" || answer == "" {
		ws.WriteError(conn, "q_id and ans are required")
		return
	}

	// SECURITY: Validate QID is a well-formed UUID to prevent Redis key injection.
	if _, err := uuid.Parse(qid); err != nil {
		ws.WriteError(conn, "invalid q_id format")
		return
	}

	if err := h.sessionService.SaveAnswer(ctx, sessionID, studentID, qid, answer); err != nil {
		if errors.Is(err, model.ErrAlreadyFinalized) {
			ws.WriteError(conn, "session already finished")
			return
		}
		wsLog.Error().Err(err).Msg("Autosave failed")
		ws.WriteError(conn, "save failed")
		return
	}

	ws.WriteTyped(conn, ws.AutosaveResponse{Event: ws.EventSuccess, Status: "saved"})
}

// handleViolation applies one anti-cheat signal. Returns true when the
// signal triggered an auto-submit and the stream should close.
func (h *WSHandler) handleViolation(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int, signal string) bool {
	ctx := context.Background()

	sig := model.ViolationSignal(signal)
	if !sig.Known() {
		ws.WriteError(conn, "unknown signal: "+signal)
		return false
	}

	outcome, err := h.sessionService.RecordViolation(ctx, sessionID, studentID, sig)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyFinalized) {
			ws.WriteError(conn, "session already finished")
			return true
		}
		wsLog.Error().Err(err).Msg("Violation recording failed")
		ws.WriteError(conn, "violation failed")
		return false
	}

	ws.WriteTyped(conn, ws.ViolationResponse{
		Event:   ws.EventViolation,
		Count:   outcome.Count,
		Limit:   h.maxViolations,
		Counted: outcome.Counted,
	})

	if outcome.AutoSubmitted {
		resp := ws.FinishedResponse{Event: ws.EventFinished, Status: string(model.SessionStatusCompleted)}
		if outcome.Session != nil && outcome.Session.Score != nil {
			resp.Score = *outcome.Session.Score
		}
		ws.WriteTyped(conn, resp)
		wsLog.Info().Int("count", outcome.Count).Msg("Violation ceiling reached, session auto-submitted")
		return true
	}
	return false
}

// handleSubmit finalizes the session at the student's request.
func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, sessionID uuid.UUID, studentID int) {
	ctx := context.Background()

	session, err := h.sessionService.Submit(ctx, sessionID, studentID)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyFinalized) {
			ws.WriteError(conn, "session already finished")
			return
		}
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "submit failed")
		return
	}

	resp := ws.FinishedResponse{Event: ws.EventFinished, Status: string(session.Status)}
	if session.Score != nil {
		resp.Score = *session.Score
	}
	ws.WriteTyped(conn, resp)
	wsLog.Info().Msg("Session submitted")
}
