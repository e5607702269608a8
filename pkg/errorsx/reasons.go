package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	// Fatal to the session: the conversation cannot proceed.
	ReasonMicDenied    ReasonCode = "mic_denied"
	ReasonCaptureStart ReasonCode = "capture_start"
	ReasonSocketDial   ReasonCode = "socket_dial"

	// Recoverable mid-session: the turn fails, the conversation continues.
	ReasonSocketSend  ReasonCode = "socket_send"
	ReasonAgentError  ReasonCode = "agent_error"
	ReasonToolBackend ReasonCode = "tool_backend"

	// Local-only: converted to fallback text or dropped.
	ReasonToolArgs    ReasonCode = "tool_args"
	ReasonTurnlogShip ReasonCode = "turnlog_ship"

	ReasonBootstrapFetch ReasonCode = "bootstrap_fetch"
)
