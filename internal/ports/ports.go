package ports

import (
	"context"
	"io"
	"time"

	"hotseat/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live capture session yielding little-endian float32 samples.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// OutputConfig describes the speaker device.
type OutputConfig struct {
	SampleRate   int
	Channels     int
	OutputFormat string
	OutputDevice string
}

// OutputDevice plays scheduled chunks against its own monotonic clock.
type OutputDevice interface {
	// Now returns the device clock, measured from the moment the device opened.
	Now() time.Duration
	Play(chunk domain.PlaybackChunk) error
	Close() error
}

// OutputOpener opens speaker devices.
type OutputOpener interface {
	Open(ctx context.Context, cfg OutputConfig) (OutputDevice, error)
}

// SessionConfig is the setup payload for a remote voice session.
type SessionConfig struct {
	Model               string
	Voice               string
	SystemInstruction   string
	MIMEType            string
	InputTranscription  bool
	OutputTranscription bool
	PendingFrames       int
}

// VoiceStream is one duplex stream to the remote voice model.
type VoiceStream interface {
	// Send queues an encoded audio frame. Frames sent before the stream opens
	// are delivered in order once it does.
	Send(frame string)
	// Events delivers server events in arrival order. It is closed when the
	// stream ends.
	Events() <-chan domain.ServerEvent
	// Close is idempotent and never fails.
	Close()
}

// VoiceTransport opens voice streams. Open returns immediately; the handshake
// completes in the background and is reported as a session_opened event.
type VoiceTransport interface {
	Open(ctx context.Context, cfg SessionConfig) VoiceStream
}

// EventSink emits session state and transcript updates to the host.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	PartialTranscript(role domain.Role, text string)
	TurnFinalized(turn domain.TranscriptTurn)
	TimerTick(elapsedSeconds int)
	SessionError(code domain.ErrorCode, detail string)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// ReportGenerator turns a coaching prompt into a Markdown report.
type ReportGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
