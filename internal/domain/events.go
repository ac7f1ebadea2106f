package domain

// EventKind tags a ServerEvent.
type EventKind string

const (
	EventInputTranscription EventKind = "input_transcription_delta"
	EventModelAudio         EventKind = "model_audio_delta"
	EventModelText          EventKind = "model_text_delta"
	EventTurnComplete       EventKind = "turn_complete"
	EventInterrupted        EventKind = "interrupted"
	EventError              EventKind = "error"
	EventSessionOpened      EventKind = "session_opened"
	EventSessionClosed      EventKind = "session_closed"
)

// ServerEvent is one downstream event from the voice session, in delivery order.
// Seq is assigned when the event is appended to a session log.
type ServerEvent struct {
	Seq   int       `json:"seq"`
	Kind  EventKind `json:"kind"`
	Text  string    `json:"text,omitempty"`
	Audio string    `json:"audio,omitempty"`
	Error string    `json:"error,omitempty"`
}

func InputTranscription(text string) ServerEvent {
	return ServerEvent{Kind: EventInputTranscription, Text: text}
}

func ModelAudio(frame string) ServerEvent {
	return ServerEvent{Kind: EventModelAudio, Audio: frame}
}

func ModelText(text string) ServerEvent {
	return ServerEvent{Kind: EventModelText, Text: text}
}

func TurnComplete() ServerEvent {
	return ServerEvent{Kind: EventTurnComplete}
}

func Interrupted() ServerEvent {
	return ServerEvent{Kind: EventInterrupted}
}

func SessionError(message string) ServerEvent {
	return ServerEvent{Kind: EventError, Error: message}
}

func SessionOpened() ServerEvent {
	return ServerEvent{Kind: EventSessionOpened}
}

func SessionClosed() ServerEvent {
	return ServerEvent{Kind: EventSessionClosed}
}
