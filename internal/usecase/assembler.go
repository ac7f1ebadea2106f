package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hotseat/internal/domain"
)

const interruptedSuffix = " [Interrupted]"

// Player receives model audio. *audio.Scheduler implements it.
type Player interface {
	Enqueue(frame string) (domain.PlaybackChunk, error)
	Stop()
}

// Update describes the effect of applying one event.
type Update struct {
	State   domain.SessionState
	Reason  domain.SessionStateReason
	Changed bool

	PartialRole domain.Role
	PartialText string
	HasPartial  bool

	Finalized   []domain.TranscriptTurn
	PlaybackErr error
}

// Assembler folds server events into transcript turns. It is not safe for
// concurrent use; the session loop owns it.
type Assembler struct {
	namespace uuid.UUID
	player    Player

	state domain.SessionState
	user  strings.Builder
	model strings.Builder
	turns []domain.TranscriptTurn
	err   string
}

// NewAssembler creates an assembler for one session. player may be nil, which
// is how recordings are replayed.
func NewAssembler(sessionID string, player Player) *Assembler {
	return &Assembler{
		namespace: sessionNamespace(sessionID),
		player:    player,
		state:     domain.SessionStateConnecting,
	}
}

// Replay rebuilds the finalized turns of a recorded event log.
func Replay(sessionID string, events []domain.ServerEvent) []domain.TranscriptTurn {
	a := NewAssembler(sessionID, nil)
	for _, ev := range events {
		a.Apply(ev)
	}
	return a.Turns()
}

func sessionNamespace(sessionID string) uuid.UUID {
	if id, err := uuid.Parse(sessionID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(sessionID))
}

// Apply advances the state machine by one event.
func (a *Assembler) Apply(ev domain.ServerEvent) Update {
	if a.Terminal() {
		return Update{State: a.state}
	}

	var u Update
	switch ev.Kind {
	case domain.EventInputTranscription:
		a.user.WriteString(ev.Text)
		u.PartialRole, u.PartialText, u.HasPartial = domain.RoleUser, a.user.String(), true

	case domain.EventModelAudio:
		if a.player != nil {
			if _, err := a.player.Enqueue(ev.Audio); err != nil {
				u.PlaybackErr = err
			}
		}
		a.transition(&u, domain.SessionStateActiveSpeaking, domain.SessionReasonModelSpeaking)

	case domain.EventModelText:
		a.model.WriteString(ev.Text)
		u.PartialRole, u.PartialText, u.HasPartial = domain.RoleModel, a.model.String(), true
		a.transition(&u, domain.SessionStateActiveSpeaking, domain.SessionReasonModelSpeaking)

	case domain.EventTurnComplete:
		if turn, ok := a.finalize(ev.Seq, domain.RoleUser, a.user.String()); ok {
			u.Finalized = append(u.Finalized, turn)
		}
		if turn, ok := a.finalize(ev.Seq, domain.RoleModel, a.model.String()); ok {
			u.Finalized = append(u.Finalized, turn)
		}
		a.user.Reset()
		a.model.Reset()
		a.transition(&u, domain.SessionStateActiveListening, domain.SessionReasonTurnComplete)

	case domain.EventInterrupted:
		// Silence the speaker before anything else from this event is applied.
		if a.player != nil {
			a.player.Stop()
		}
		if text := a.model.String(); strings.TrimSpace(text) != "" {
			if turn, ok := a.finalize(ev.Seq, domain.RoleModel, text+interruptedSuffix); ok {
				u.Finalized = append(u.Finalized, turn)
			}
		}
		a.model.Reset()
		a.transition(&u, domain.SessionStateActiveListening, domain.SessionReasonInterrupted)

	case domain.EventError:
		a.err = ev.Error
		a.transition(&u, domain.SessionStateError, domain.SessionReasonTransportFailed)

	case domain.EventSessionClosed:
		a.transition(&u, domain.SessionStateClosed, domain.SessionReasonTransportClosed)
	}

	u.State = a.state
	return u
}

// MicrophoneLive marks the point where the session becomes usable. A session
// still connecting moves to active-speaking since the interviewer opens;
// otherwise the state the events already produced is kept and re-announced.
func (a *Assembler) MicrophoneLive() Update {
	if a.Terminal() {
		return Update{State: a.state}
	}
	u := Update{Reason: domain.SessionReasonMicrophoneLive, Changed: true}
	if a.state == domain.SessionStateConnecting {
		a.state = domain.SessionStateActiveSpeaking
	}
	u.State = a.state
	return u
}

func (a *Assembler) transition(u *Update, state domain.SessionState, reason domain.SessionStateReason) {
	u.Reason = reason
	if a.state != state {
		a.state = state
		u.Changed = true
	}
}

// finalize records the accumulated text verbatim. Whitespace-only text never
// becomes a turn.
func (a *Assembler) finalize(seq int, role domain.Role, text string) (domain.TranscriptTurn, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.TranscriptTurn{}, false
	}
	turn := domain.TranscriptTurn{
		ID:   uuid.NewSHA1(a.namespace, []byte(fmt.Sprintf("%d:%s", seq, role))).String(),
		Role: role,
		Text: text,
	}
	a.turns = append(a.turns, turn)
	return turn, true
}

// Terminal reports whether the assembler has stopped accepting events.
func (a *Assembler) Terminal() bool {
	return a.state == domain.SessionStateError || a.state == domain.SessionStateClosed
}

func (a *Assembler) State() domain.SessionState {
	return a.state
}

// Err is the message of the error event that ended the session, if any.
func (a *Assembler) Err() string {
	return a.err
}

func (a *Assembler) Turns() []domain.TranscriptTurn {
	out := make([]domain.TranscriptTurn, len(a.turns))
	copy(out, a.turns)
	return out
}

// Pending returns the accumulators that have not been finalized yet.
func (a *Assembler) Pending() (user string, model string) {
	return a.user.String(), a.model.String()
}
