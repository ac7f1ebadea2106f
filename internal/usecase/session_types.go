package usecase

import (
	"context"
	"sync"
	"time"

	"hotseat/internal/audio"
	"hotseat/internal/domain"
	"hotseat/internal/ports"
)

type msgKind int

const (
	msgMicStarted msgKind = iota
	msgMicFailed
	msgCaptureFailed
)

// sessionMsg carries device callbacks into the session loop.
type sessionMsg struct {
	kind msgKind
	err  error
}

type activeSession struct {
	id     string
	brief  domain.Brief
	ctx    context.Context
	cancel context.CancelFunc

	encoder   *audio.Encoder
	scheduler *audio.Scheduler
	stream    ports.VoiceStream

	inbox    chan sessionMsg
	loopDone chan struct{}
	micWG    sync.WaitGroup

	// Owned by the session loop until loopDone is closed.
	assembler *Assembler
	log       []domain.ServerEvent
	micLive   bool
	ticker    *time.Ticker
	elapsed   int

	stateMu  sync.Mutex
	state    domain.SessionState
	seconds  int
	message  string
	finished bool
}

// post hands a message to the loop unless the session is no longer wanted.
func (s *activeSession) post(msg sessionMsg) {
	select {
	case s.inbox <- msg:
	case <-s.ctx.Done():
	}
}

func (s *activeSession) setState(state domain.SessionState, message string) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = state
	if message != "" {
		s.message = message
	}
}

func (s *activeSession) setElapsed(seconds int) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.seconds = seconds
}

func (s *activeSession) status() domain.Status {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return domain.Status{
		SessionID:      s.id,
		State:          s.state,
		Active:         s.state.Active(),
		ElapsedSeconds: s.seconds,
		Message:        s.message,
	}
}

func (s *activeSession) getState() domain.SessionState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// markFinished reports false if the session was already finished.
func (s *activeSession) markFinished() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.finished {
		return false
	}
	s.finished = true
	return true
}
