package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"hotseat/internal/audio"
	"hotseat/internal/domain"
	"hotseat/internal/metrics"
	"hotseat/internal/ports"
)

var ErrNoActiveSession = errors.New("no active interview session")

const permissionDeniedMessage = "Microphone permission denied. Please allow microphone access to continue."

// Config controls interview session behavior.
type Config struct {
	Audio     ports.AudioConfig
	Output    ports.OutputConfig
	Session   ports.SessionConfig
	BlockSize int

	// Instruction renders the system instruction for a brief.
	Instruction func(domain.Brief) string

	// TickInterval is the length of one elapsed-time tick. Defaults to one second.
	TickInterval time.Duration
}

// SessionController orchestrates one live interview at a time.
type SessionController struct {
	capture   ports.AudioCapture
	output    ports.OutputOpener
	transport ports.VoiceTransport
	events    ports.EventSink
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cfg       Config

	mu      sync.Mutex
	current *activeSession
}

func NewSessionController(
	capture ports.AudioCapture,
	output ports.OutputOpener,
	transport ports.VoiceTransport,
	events ports.EventSink,
	logger *slog.Logger,
	m *metrics.Metrics,
	cfg Config,
) *SessionController {
	if cfg.BlockSize < 256 {
		cfg.BlockSize = domain.CaptureBlockSize
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}
	if cfg.Session.MIMEType == "" {
		cfg.Session.MIMEType = domain.CaptureMIMEType
	}
	cfg.Session.InputTranscription = true
	cfg.Session.OutputTranscription = true
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionController{
		capture:   capture,
		output:    output,
		transport: transport,
		events:    events,
		logger:    logger,
		metrics:   m,
		cfg:       cfg,
	}
}

// Start opens a new interview. Any running interview is discarded first.
// Start returns once the session is connecting; the outcome of the handshake
// and of the microphone start is reported through the event sink.
func (c *SessionController) Start(ctx context.Context, brief domain.Brief) error {
	var previous *activeSession

	c.mu.Lock()
	if c.current != nil {
		previous = c.current
		c.current = nil
	}
	c.mu.Unlock()

	if previous != nil {
		c.teardown(previous)
		c.finishSession(previous, domain.SessionStateClosed, domain.SessionReasonDiscarded)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	logger := c.logger.With("session_id", id)

	sessionCfg := c.cfg.Session
	if c.cfg.Instruction != nil {
		sessionCfg.SystemInstruction = c.cfg.Instruction(brief)
	}

	active := &activeSession{
		id:       id,
		brief:    brief,
		ctx:      sessionCtx,
		cancel:   cancel,
		inbox:    make(chan sessionMsg, 4),
		loopDone: make(chan struct{}),
		state:    domain.SessionStateConnecting,
	}
	active.scheduler = audio.NewScheduler(sessionCtx, c.output, c.cfg.Output, logger, c.metrics)
	active.assembler = NewAssembler(id, active.scheduler)
	active.stream = c.transport.Open(sessionCtx, sessionCfg)

	stream := active.stream
	active.encoder = audio.NewEncoder(c.capture, audio.EncoderConfig{
		Audio:     c.cfg.Audio,
		BlockSize: c.cfg.BlockSize,
		OnFrame: func(frame string) {
			if sessionCtx.Err() != nil {
				return
			}
			stream.Send(frame)
		},
		OnError: func(err error) {
			if sessionCtx.Err() != nil {
				return
			}
			active.post(sessionMsg{kind: msgCaptureFailed, err: err})
		},
	}, logger, c.metrics)

	c.mu.Lock()
	c.current = active
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SessionsStarted.Inc()
		c.metrics.ActiveSessions.Inc()
	}

	go c.run(active, logger)

	reason := domain.SessionReasonConnecting
	if previous != nil {
		reason = domain.SessionReasonRestarted
	}
	logger.Info("interview session connecting")
	c.events.SessionStateChanged(domain.SessionStateConnecting, reason)
	return nil
}

// End terminates the active interview and returns its recording.
func (c *SessionController) End(ctx context.Context) (domain.Recording, error) {
	active, err := c.takeCurrent()
	if err != nil {
		return domain.Recording{}, err
	}

	finalState := active.getState()
	c.teardown(active)
	recording := buildRecording(active, finalState)
	c.logger.InfoContext(ctx, "interview session ended",
		"session_id", active.id,
		"events", len(recording.Events),
		"turns", len(recording.Turns),
		"elapsed_seconds", recording.ElapsedSeconds,
	)

	c.finishSession(active, domain.SessionStateClosed, domain.SessionReasonEnded)
	return recording, nil
}

// Abort tears down the active interview without producing a recording.
func (c *SessionController) Abort() error {
	active, err := c.takeCurrent()
	if err != nil {
		return err
	}

	c.teardown(active)
	c.finishSession(active, domain.SessionStateClosed, domain.SessionReasonDiscarded)
	return nil
}

// Status returns the current backend status.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return domain.Status{State: domain.SessionStateClosed}
	}
	return c.current.status()
}

func (c *SessionController) takeCurrent() (*activeSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, ErrNoActiveSession
	}
	active := c.current
	c.current = nil
	return active, nil
}

// run is the session loop. It is the only goroutine that touches the
// assembler, the event log, the playback schedule and the timer.
func (c *SessionController) run(active *activeSession, logger *slog.Logger) {
	defer close(active.loopDone)

	events := active.stream.Events()
	var tick <-chan time.Time
	for {
		select {
		case <-active.ctx.Done():
			return

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if active.ctx.Err() != nil {
				return
			}
			c.handleEvent(active, logger, ev)
			if ev.Kind == domain.EventSessionOpened && !active.assembler.Terminal() {
				c.startMicrophone(active)
			}
			if active.assembler.Terminal() {
				tick = c.stopTimer(active)
			}

		case msg := <-active.inbox:
			if active.ctx.Err() != nil {
				return
			}
			switch msg.kind {
			case msgMicStarted:
				if active.assembler.Terminal() {
					continue
				}
				active.micLive = true
				active.ticker = time.NewTicker(c.cfg.TickInterval)
				tick = active.ticker.C
				u := active.assembler.MicrophoneLive()
				logger.Info("microphone live", "state", u.State)
				c.publishState(active, u.State, u.Reason)
			case msgMicFailed:
				logger.Warn("microphone start failed", "err", msg.err)
				tick = c.stopTimer(active)
				c.fail(active, domain.ErrorCodePermissionDenied, domain.SessionReasonPermissionDenied, permissionDeniedMessage)
			case msgCaptureFailed:
				logger.Warn("microphone stream failed", "err", msg.err)
				tick = c.stopTimer(active)
				c.fail(active, domain.ErrorCodeAudioStream, domain.SessionReasonMicrophoneLost, msg.err.Error())
			}

		case <-tick:
			active.elapsed++
			active.setElapsed(active.elapsed)
			c.events.TimerTick(active.elapsed)
		}
	}
}

func (c *SessionController) handleEvent(active *activeSession, logger *slog.Logger, ev domain.ServerEvent) {
	if active.assembler.Terminal() {
		return
	}

	ev.Seq = len(active.log)
	active.log = append(active.log, ev)

	u := active.assembler.Apply(ev)
	if u.HasPartial {
		c.events.PartialTranscript(u.PartialRole, u.PartialText)
	}
	for _, turn := range u.Finalized {
		if c.metrics != nil {
			c.metrics.TurnsFinalized.WithLabelValues(string(turn.Role)).Inc()
		}
		c.events.TurnFinalized(turn)
	}
	if u.PlaybackErr != nil && !errors.Is(u.PlaybackErr, context.Canceled) {
		logger.Warn("playback failed", "seq", ev.Seq, "err", u.PlaybackErr)
		c.events.SessionError(domain.ErrorCodePlayback, u.PlaybackErr.Error())
	}

	switch ev.Kind {
	case domain.EventInterrupted:
		if c.metrics != nil {
			c.metrics.Interruptions.Inc()
		}
	case domain.EventError:
		logger.Warn("voice session failed", "seq", ev.Seq, "err", ev.Error)
		if c.metrics != nil {
			c.metrics.SessionErrors.WithLabelValues(string(domain.ErrorCodeTransport)).Inc()
		}
		active.setState(domain.SessionStateError, ev.Error)
		c.events.SessionError(domain.ErrorCodeTransport, ev.Error)
		c.events.SessionStateChanged(domain.SessionStateError, u.Reason)
		return
	case domain.EventSessionClosed:
		logger.Info("voice session closed by server", "seq", ev.Seq)
		active.setState(domain.SessionStateClosed, "")
		c.events.SessionStateChanged(domain.SessionStateClosed, u.Reason)
		return
	}

	if active.micLive && u.State != active.getState() {
		c.publishState(active, u.State, u.Reason)
	}
}

func (c *SessionController) startMicrophone(active *activeSession) {
	active.micWG.Add(1)
	go func() {
		defer active.micWG.Done()
		if err := active.encoder.Start(active.ctx); err != nil {
			if active.ctx.Err() != nil || errors.Is(err, audio.ErrEncoderStopped) {
				return
			}
			active.post(sessionMsg{kind: msgMicFailed, err: err})
			return
		}
		active.post(sessionMsg{kind: msgMicStarted})
	}()
}

// fail moves the session into the error state. The assembler is driven into
// its terminal state too so that later transport events are neither logged nor
// applied.
func (c *SessionController) fail(active *activeSession, code domain.ErrorCode, reason domain.SessionStateReason, detail string) {
	if active.assembler.Terminal() {
		return
	}
	active.assembler.Apply(domain.SessionError(detail))
	if c.metrics != nil {
		c.metrics.SessionErrors.WithLabelValues(string(code)).Inc()
	}
	active.setState(domain.SessionStateError, detail)
	c.events.SessionError(code, detail)
	c.events.SessionStateChanged(domain.SessionStateError, reason)
}

func (c *SessionController) publishState(active *activeSession, state domain.SessionState, reason domain.SessionStateReason) {
	active.setState(state, "")
	c.events.SessionStateChanged(state, reason)
}

func (c *SessionController) stopTimer(active *activeSession) <-chan time.Time {
	if active.ticker != nil {
		active.ticker.Stop()
	}
	return nil
}

// teardown releases a session in a fixed order: loop, timer, microphone,
// speaker, transport. Each step runs even if an earlier one fails.
func (c *SessionController) teardown(active *activeSession) {
	active.cancel()
	<-active.loopDone

	c.guard(active, "timer", func() error {
		c.stopTimer(active)
		return nil
	})
	c.guard(active, "encoder", func() error {
		active.encoder.Stop()
		active.micWG.Wait()
		return nil
	})
	c.guard(active, "scheduler", func() error {
		active.scheduler.Stop()
		return nil
	})
	c.guard(active, "transport", func() error {
		active.stream.Close()
		return nil
	})
}

func (c *SessionController) guard(active *activeSession, step string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("teardown step panicked", "session_id", active.id, "step", step, "panic", fmt.Sprint(r))
		}
	}()
	if err := fn(); err != nil {
		c.logger.Warn("teardown step failed", "session_id", active.id, "step", step, "err", err)
	}
}

func (c *SessionController) finishSession(active *activeSession, state domain.SessionState, reason domain.SessionStateReason) {
	if !active.markFinished() {
		return
	}
	active.setState(state, "")

	if c.metrics != nil {
		c.metrics.ActiveSessions.Dec()
		c.metrics.SessionDuration.Observe(float64(active.elapsed))
	}
	c.events.SessionStateChanged(state, reason)
}
