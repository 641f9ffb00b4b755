package model

// ViolationSignal classifies a suspicious runtime signal reported by the exam
// client. The client captures raw browser events; the server decides whether a
// signal counts against the violation ceiling.
type ViolationSignal string

const (
	// The viewing surface became hidden or inactive (tab switch, minimize).
	SignalFocusLoss ViolationSignal = "focus_loss"
	// Disallowed key combinations.
	SignalPrintScreen ViolationSignal = "print_screen"
	SignalDevtoolsKey ViolationSignal = "devtools_key"
	SignalCopy        ViolationSignal = "copy"
	SignalPaste       ViolationSignal = "paste"
	// Right-click/context-menu. Suppressed on the client and never counted here;
	// it is accepted on the wire only so malformed clients get a clean answer.
	SignalContextMenu ViolationSignal = "context_menu"
)

// Known reports whether the signal is one the detector understands.
func (v ViolationSignal) Known() bool {
	switch v {
	case SignalFocusLoss, SignalPrintScreen, SignalDevtoolsKey,
		SignalCopy, SignalPaste, SignalContextMenu:
		return true
	}
	return false
}

// Counts reports whether the signal increments the violation counter.
// Context-menu gestures are suppressed outright, not counted.
func (v ViolationSignal) Counts() bool {
	return v.Known() && v != SignalContextMenu
}

// ViolationEvent is the audit record queued for batch persistence.
type ViolationEvent struct {
	SessionID string          `json:"session_id"`
	StudentID int             `json:"student_id"`
	Signal    ViolationSignal `json:"signal"`
	Timestamp int64           `json:"timestamp"`
}
