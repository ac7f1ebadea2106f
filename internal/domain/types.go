package domain

// SessionState models the interview session lifecycle.
type SessionState string

const (
	SessionStateConnecting      SessionState = "connecting"
	SessionStateActiveListening SessionState = "active-listening"
	SessionStateActiveSpeaking  SessionState = "active-speaking"
	SessionStateError           SessionState = "error"
	SessionStateClosed          SessionState = "closed"
)

// Active reports whether the session is past the handshake and still usable.
func (s SessionState) Active() bool {
	return s == SessionStateActiveListening || s == SessionStateActiveSpeaking
}

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonConnecting       SessionStateReason = "connecting"
	SessionReasonRestarted        SessionStateReason = "restarted"
	SessionReasonMicrophoneLive   SessionStateReason = "microphone_live"
	SessionReasonModelSpeaking    SessionStateReason = "model_speaking"
	SessionReasonTurnComplete     SessionStateReason = "turn_complete"
	SessionReasonInterrupted      SessionStateReason = "interrupted"
	SessionReasonPermissionDenied SessionStateReason = "permission_denied"
	SessionReasonMicrophoneLost   SessionStateReason = "microphone_lost"
	SessionReasonTransportFailed  SessionStateReason = "transport_failed"
	SessionReasonTransportClosed  SessionStateReason = "transport_closed"
	SessionReasonEnded            SessionStateReason = "ended"
	SessionReasonDiscarded        SessionStateReason = "discarded"
)

// ErrorCode identifies errors surfaced to the host.
type ErrorCode string

const (
	ErrorCodeStartup          ErrorCode = "startup"
	ErrorCodePermissionDenied ErrorCode = "permission_denied"
	ErrorCodeTransport        ErrorCode = "transport"
	ErrorCodeAudioStream      ErrorCode = "audio_stream"
	ErrorCodePlayback         ErrorCode = "playback"
	ErrorCodeReport           ErrorCode = "report"
	ErrorCodeClipboard        ErrorCode = "clipboard"
)

// Role identifies the speaker of a transcript turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// TranscriptTurn is one finalized utterance. It is never mutated after creation.
type TranscriptTurn struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Brief carries the interview context supplied by the host.
type Brief struct {
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription"`
}

// Recording is the durable artifact delivered when a session ends.
type Recording struct {
	SessionID      string           `json:"sessionId"`
	Brief          Brief            `json:"brief"`
	Events         []ServerEvent    `json:"events"`
	Turns          []TranscriptTurn `json:"turns"`
	PendingUser    string           `json:"pendingUser,omitempty"`
	PendingModel   string           `json:"pendingModel,omitempty"`
	ElapsedSeconds int              `json:"elapsedSeconds"`
	FinalState     SessionState     `json:"finalState"`
}

// Report is the coaching report generated from a recording.
type Report struct {
	SessionID  string `json:"sessionId"`
	Transcript string `json:"transcript"`
	Markdown   string `json:"markdown"`
	Copied     bool   `json:"copied"`
}

// Status summarizes the current runtime status.
type Status struct {
	SessionID      string       `json:"sessionId,omitempty"`
	State          SessionState `json:"state"`
	Active         bool         `json:"active"`
	ElapsedSeconds int          `json:"elapsedSeconds"`
	Message        string       `json:"message,omitempty"`
}
