package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"hotseat/internal/domain"
	"hotseat/internal/metrics"
	"hotseat/internal/ports"
)

var (
	ErrEncoderStopped = errors.New("capture encoder is stopped")
	ErrEncoderStarted = errors.New("capture encoder already started")
	errCaptureEnded   = errors.New("microphone stream ended unexpectedly")
)

// EncoderConfig configures a capture Encoder.
type EncoderConfig struct {
	Audio     ports.AudioConfig
	BlockSize int
	OnFrame   func(frame string)
	OnError   func(err error)
}

// Encoder captures fixed-size blocks of microphone samples and hands them to
// OnFrame as base64 16-bit PCM frames.
type Encoder struct {
	capture ports.AudioCapture
	cfg     EncoderConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	started bool
	stopped bool
	session ports.AudioSession
	done    chan struct{}
}

func NewEncoder(capture ports.AudioCapture, cfg EncoderConfig, logger *slog.Logger, m *metrics.Metrics) *Encoder {
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = domain.CaptureBlockSize
	}
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = domain.CaptureSampleRate
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.OnFrame == nil {
		cfg.OnFrame = func(string) {}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(error) {}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{capture: capture, cfg: cfg, logger: logger, metrics: m}
}

// Start acquires the microphone and begins streaming frames. Failure to
// acquire the device is reported as domain.ErrPermissionDenied.
func (e *Encoder) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEncoderStopped
	}
	if e.started {
		e.mu.Unlock()
		return ErrEncoderStarted
	}
	e.started = true
	e.mu.Unlock()

	session, err := e.capture.Start(ctx, e.cfg.Audio)
	if err != nil {
		if !errors.Is(err, domain.ErrPermissionDenied) {
			err = fmt.Errorf("%w: %v", domain.ErrPermissionDenied, err)
		}
		return err
	}

	e.mu.Lock()
	if e.stopped || ctx.Err() != nil {
		e.mu.Unlock()
		_ = closeQuietly(session.Stop)
		return ErrEncoderStopped
	}
	e.session = session
	e.done = make(chan struct{})
	done := e.done
	e.mu.Unlock()

	go e.pump(ctx, session, done)
	return nil
}

// Stop releases the microphone. It is idempotent and may be called before or
// while Start runs.
func (e *Encoder) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	session, done := e.session, e.done
	e.mu.Unlock()

	if session == nil {
		return
	}
	if err := closeQuietly(session.Stop); err != nil {
		e.logger.Debug("microphone stop failed", "err", err)
	}
	<-done
}

func (e *Encoder) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *Encoder) pump(ctx context.Context, session ports.AudioSession, done chan struct{}) {
	defer close(done)

	raw := make([]byte, e.cfg.BlockSize*4)
	var samples []float32
	for {
		_, err := io.ReadFull(session, raw)
		if ctx.Err() != nil || e.isStopped() {
			return
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				e.cfg.OnError(errCaptureEnded)
			} else {
				e.cfg.OnError(fmt.Errorf("audio capture error: %w", err))
			}
			return
		}

		samples = Float32FromLE(raw, samples)
		frame := EncodeFrame(samples)
		if e.metrics != nil {
			e.metrics.FramesCaptured.Inc()
		}
		e.cfg.OnFrame(frame)
	}
}
