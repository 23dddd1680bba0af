package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing      Action = "ping"
	ActionSync      Action = "sync"
	ActionFocusLoss Action = "focus_loss"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// SyncRequest asks the server for the authoritative remaining time.
type SyncRequest struct {
	Action Action `json:"action"`
}

// FocusLossRequest reports one focus-loss event (tab switch, window blur).
type FocusLossRequest struct {
	Action  Action `json:"action"`
	Payload string `json:"payload"` // Receives the JSON string directly
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError       Event = "error"
	EventPong        Event = "pong"
	EventTime        Event = "time"
	EventWarning     Event = "warning"
	EventForceSubmit Event = "force_submit"
)

// TimeResponse carries the server-computed remaining seconds.
type TimeResponse struct {
	Event            Event   `json:"event"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

// WarningResponse acknowledges a focus loss with the running count.
type WarningResponse struct {
	Event     Event `json:"event"`
	Warnings  int   `json:"warnings"`
	Threshold int   `json:"threshold"`
}

// ForceSubmitResponse tells the client its attempt was closed server-side,
// either by the deadline or by the warning threshold.
type ForceSubmitResponse struct {
	Event  Event  `json:"event"`
	Reason string `json:"reason"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
