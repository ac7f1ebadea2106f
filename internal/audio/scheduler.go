package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"hotseat/internal/domain"
	"hotseat/internal/metrics"
	"hotseat/internal/ports"
)

// Scheduler paces received model audio back to back on the speaker clock.
//
// The output device is opened on the first Enqueue and closed by Stop, so
// anything already handed to the device is silenced by a stop and the next
// Enqueue starts on a fresh device. A Scheduler is owned by a single session
// loop and is not safe for concurrent use.
type Scheduler struct {
	ctx     context.Context
	opener  ports.OutputOpener
	cfg     ports.OutputConfig
	logger  *slog.Logger
	metrics *metrics.Metrics

	device ports.OutputDevice
	next   time.Duration
}

func NewScheduler(ctx context.Context, opener ports.OutputOpener, cfg ports.OutputConfig, logger *slog.Logger, m *metrics.Metrics) *Scheduler {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = domain.PlaybackSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{ctx: ctx, opener: opener, cfg: cfg, logger: logger, metrics: m}
}

// Enqueue decodes a base64 PCM frame and schedules it at
// max(next, device clock), then advances next by the chunk duration.
func (s *Scheduler) Enqueue(frame string) (domain.PlaybackChunk, error) {
	if err := s.ctx.Err(); err != nil {
		return domain.PlaybackChunk{}, err
	}

	samples, err := DecodePlaybackFrame(frame)
	if err != nil {
		return domain.PlaybackChunk{}, err
	}

	if s.device == nil {
		device, err := s.opener.Open(s.ctx, s.cfg)
		if err != nil {
			return domain.PlaybackChunk{}, fmt.Errorf("failed to open output device: %w", err)
		}
		s.device = device
	}

	start := s.next
	if now := s.device.Now(); now > start {
		start = now
	}
	chunk := domain.PlaybackChunk{Samples: samples, SampleRate: s.cfg.SampleRate, Start: start}
	if err := s.device.Play(chunk); err != nil {
		return domain.PlaybackChunk{}, fmt.Errorf("failed to schedule playback: %w", err)
	}
	s.next = chunk.End()

	if s.metrics != nil {
		s.metrics.ChunksScheduled.Inc()
		s.metrics.PlaybackSeconds.Add(chunk.Duration().Seconds())
	}
	return chunk, nil
}

// Stop closes the output device and rewinds the schedule. It is idempotent.
func (s *Scheduler) Stop() {
	if s.device != nil {
		device := s.device
		s.device = nil
		if err := closeQuietly(device.Close); err != nil {
			s.logger.Debug("output device close failed", "err", err)
		}
		if s.metrics != nil {
			s.metrics.PlaybackStops.Inc()
		}
	}
	s.next = 0
}

// Next is the time at which the next chunk would start if the device clock
// has not overtaken it.
func (s *Scheduler) Next() time.Duration {
	return s.next
}

// closeQuietly runs fn and converts a panic into an error.
func closeQuietly(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during close: %v", r)
		}
	}()
	return fn()
}
