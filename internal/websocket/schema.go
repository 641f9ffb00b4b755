package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAutosave  Action = "autosave"
	ActionViolation Action = "violation"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AutosaveRequest is sent by the client to save a single answer.
type AutosaveRequest struct {
	Action Action `json:"action"`
	QID    string `json:"q_id"`
	Answer string `json:"ans"`
}

// ViolationRequest is sent by the client to report an anti-cheat signal.
type ViolationRequest struct {
	Action Action `json:"action"`
	Signal string `json:"signal"`
}

// SubmitRequest is sent by the client to finish and grade the exam.
type SubmitRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventSuccess   Event = "success"
	EventViolation Event = "violation"
	EventFinished  Event = "finished"
	EventPong      Event = "pong"
)

type AutosaveResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

// ViolationResponse tells the client its updated count against the ceiling.
// Suppressed signals come back with Counted false and an unchanged count.
type ViolationResponse struct {
	Event   Event `json:"event"`
	Count   int   `json:"count"`
	Limit   int   `json:"limit"`
	Counted bool  `json:"counted"`
}

// FinishedResponse announces the terminal state, whether the client asked
// for it (submit) or the server forced it (ceiling, timer, proctor).
type FinishedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
	Score  int    `json:"score"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
