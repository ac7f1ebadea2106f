package usecase

import (
	"hotseat/internal/domain"
)

// buildRecording snapshots a torn-down session. The loop must have exited.
func buildRecording(active *activeSession, finalState domain.SessionState) domain.Recording {
	events := make([]domain.ServerEvent, len(active.log))
	copy(events, active.log)
	pendingUser, pendingModel := active.assembler.Pending()

	return domain.Recording{
		SessionID:      active.id,
		Brief:          active.brief,
		Events:         events,
		Turns:          active.assembler.Turns(),
		PendingUser:    pendingUser,
		PendingModel:   pendingModel,
		ElapsedSeconds: active.elapsed,
		FinalState:     finalState,
	}
}

// VerifyRecording reports whether the recorded turns are exactly what the
// event log replays to.
func VerifyRecording(rec domain.Recording) bool {
	replayed := Replay(rec.SessionID, rec.Events)
	if len(replayed) != len(rec.Turns) {
		return false
	}
	for i := range replayed {
		if replayed[i] != rec.Turns[i] {
			return false
		}
	}
	return true
}
