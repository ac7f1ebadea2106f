package domain

import "errors"

var (
	// ErrPermissionDenied means microphone access was refused or no capture
	// capability exists. Terminal for the session.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrTransport is a stream-level failure of the remote voice session. Terminal.
	ErrTransport = errors.New("voice session transport error")

	// ErrTransportClosed reports a normal remote closure. Informational only.
	ErrTransportClosed = errors.New("voice session closed")
)
