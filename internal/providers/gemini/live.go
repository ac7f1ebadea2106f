package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"google.golang.org/genai"

	"hotseat/internal/domain"
	"hotseat/internal/metrics"
	"hotseat/internal/ports"
)

const (
	defaultModel         = "gemini-2.5-flash-native-audio-preview-09-2025"
	defaultVoice         = "Zephyr"
	defaultPendingFrames = 256
)

// Transport implements ports.VoiceTransport over the Gemini Live API.
type Transport struct {
	connector Connector
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func NewTransport(connector Connector, logger *slog.Logger, m *metrics.Metrics) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{connector: connector, logger: logger, metrics: m}
}

// Open returns immediately. The stream reports session_opened once the
// handshake completes, or an error event if it fails.
func (t *Transport) Open(ctx context.Context, cfg ports.SessionConfig) ports.VoiceStream {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.MIMEType == "" {
		cfg.MIMEType = domain.CaptureMIMEType
	}
	if cfg.PendingFrames <= 0 {
		cfg.PendingFrames = defaultPendingFrames
	}

	s := &stream{
		cfg:     cfg,
		logger:  t.logger.With("model", cfg.Model),
		metrics: t.metrics,
		events:  make(chan domain.ServerEvent, 64),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go s.run(ctx, t.connector, connectConfig(cfg))
	return s
}

func connectConfig(cfg ports.SessionConfig) *genai.LiveConnectConfig {
	live := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		},
	}
	if strings.TrimSpace(cfg.SystemInstruction) != "" {
		live.SystemInstruction = genai.NewContentFromText(cfg.SystemInstruction, genai.RoleUser)
	}
	if cfg.InputTranscription {
		live.InputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	if cfg.OutputTranscription {
		live.OutputAudioTranscription = &genai.AudioTranscriptionConfig{}
	}
	return live
}

type stream struct {
	cfg     ports.SessionConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	events chan domain.ServerEvent
	wake   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	session LiveSession
	pending []string
	closed  bool

	errMu   sync.Mutex
	sendErr error

	closeOnce sync.Once
}

func (s *stream) Events() <-chan domain.ServerEvent {
	return s.events
}

// Send queues a frame for the writer. When the queue is full the oldest frame
// is dropped.
func (s *stream) Send(frame string) {
	if frame == "" {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if len(s.pending) >= s.cfg.PendingFrames {
		s.pending = s.pending[1:]
		if s.metrics != nil {
			s.metrics.FramesDropped.Inc()
		}
	}
	s.pending = append(s.pending, frame)
	if s.session == nil && s.metrics != nil {
		s.metrics.FramesQueued.Inc()
	}
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Close tears the stream down. It may be called before the handshake
// finishes, in which case the late session is closed as soon as it arrives.
func (s *stream) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = nil
		session := s.session
		s.mu.Unlock()

		close(s.done)
		if session != nil {
			closeSession(s.logger, session)
		}
	})
}

func (s *stream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *stream) run(ctx context.Context, connector Connector, live *genai.LiveConnectConfig) {
	defer close(s.events)

	session, err := connector.Connect(ctx, s.cfg.Model, live)
	if err != nil {
		if s.isClosed() {
			return
		}
		s.logger.Warn("live session connect failed", "err", err)
		s.emit(domain.SessionError(fmt.Errorf("%w: failed to connect: %v", domain.ErrTransport, err).Error()))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		closeSession(s.logger, session)
		return
	}
	s.session = session
	s.mu.Unlock()

	s.logger.Info("live session opened")
	if !s.emit(domain.SessionOpened()) {
		return
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writeLoop(session)
	}()

	s.readLoop(session)
	s.Close()
	wg.Wait()
}

func (s *stream) readLoop(session LiveSession) {
	for {
		msg, err := session.Receive()
		if err != nil {
			if s.isClosed() {
				return
			}
			if sendErr := s.writeErr(); sendErr != nil {
				err = sendErr
			}
			if isNormalClosure(err) {
				s.logger.Info("live session closed by server")
				s.emit(domain.SessionClosed())
				return
			}
			s.logger.Warn("live session failed", "err", err)
			s.emit(domain.SessionError(fmt.Errorf("%w: %v", domain.ErrTransport, err).Error()))
			return
		}

		for _, event := range translateMessage(msg) {
			if s.metrics != nil {
				s.metrics.EventsReceived.WithLabelValues(string(event.Kind)).Inc()
			}
			if !s.emit(event) {
				return
			}
		}
	}
}

func (s *stream) writeLoop(session LiveSession) {
	for {
		for _, frame := range s.drain() {
			data, err := base64.StdEncoding.DecodeString(frame)
			if err != nil {
				s.logger.Debug("dropping malformed audio frame", "err", err)
				continue
			}
			input := genai.LiveRealtimeInput{Media: &genai.Blob{Data: data, MIMEType: s.cfg.MIMEType}}
			if err := session.SendRealtimeInput(input); err != nil {
				if s.isClosed() {
					return
				}
				if s.metrics != nil {
					s.metrics.SendErrors.Inc()
				}
				s.setErr(fmt.Errorf("failed to send audio: %w", err))
				closeSession(s.logger, session)
				return
			}
			if s.metrics != nil {
				s.metrics.FramesSent.Inc()
			}
		}

		select {
		case <-s.wake:
		case <-s.done:
			return
		}
	}
}

func (s *stream) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := s.pending
	s.pending = nil
	return frames
}

// emit delivers events in order, blocking until the consumer reads them or
// the stream is closed.
func (s *stream) emit(event domain.ServerEvent) bool {
	select {
	case s.events <- event:
		return true
	case <-s.done:
		return false
	}
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.sendErr == nil {
		s.sendErr = err
	}
}

func (s *stream) writeErr() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.sendErr
}

func isNormalClosure(err error) bool {
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) {
		return false
	}
	return websocket.IsCloseError(closeErr,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

func closeSession(logger *slog.Logger, session LiveSession) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("live session close panicked", "panic", r)
		}
	}()
	if err := session.Close(); err != nil {
		logger.Debug("live session close failed", "err", err)
	}
}
