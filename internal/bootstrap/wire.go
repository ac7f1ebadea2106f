package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/genai"

	"hotseat/internal/audio"
	"hotseat/internal/config"
	"hotseat/internal/domain"
	"hotseat/internal/logging"
	"hotseat/internal/metrics"
	"hotseat/internal/ports"
	"hotseat/internal/providers/gemini"
	"hotseat/internal/report"
	"hotseat/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Reports    *usecase.ReportFinalizer
	Config     config.Config
	Registry   *prometheus.Registry
	Logger     *slog.Logger
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(context.Background(), cfg, eventSink, clipboard)
}

// BuildWithConfig wires the runtime graph from an already loaded config.
// A missing API key does not fail the build; the first session or report
// reports it instead.
func BuildWithConfig(ctx context.Context, cfg config.Config, eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var (
		client *genai.Client
		models report.ContentGenerator
	)
	if cfg.Gemini.APIKey != "" {
		var err error
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return Services{}, fmt.Errorf("failed to create gemini client: %w", err)
		}
		models = client.Models
	} else {
		logger.Warn("GEMINI_API_KEY is not set; interviews and reports will fail until it is configured")
	}

	controller := usecase.NewSessionController(
		audio.NewFFMPEGCapture(cfg.Audio.FFMPEGCommand),
		audio.NewFFMPEGPlayback(cfg.Audio.FFMPEGCommand),
		gemini.NewTransport(gemini.NewLiveConnector(client), logger, m),
		eventSink,
		logger,
		m,
		usecase.Config{
			Audio: ports.AudioConfig{
				SampleRate:  domain.CaptureSampleRate,
				Channels:    1,
				InputFormat: cfg.Audio.InputFormat,
				InputDevice: cfg.Audio.InputDevice,
			},
			Output: ports.OutputConfig{
				SampleRate:   domain.PlaybackSampleRate,
				Channels:     1,
				OutputFormat: cfg.Audio.OutputFormat,
				OutputDevice: cfg.Audio.OutputDevice,
			},
			Session: ports.SessionConfig{
				Model:         cfg.Gemini.LiveModel,
				Voice:         cfg.Gemini.Voice,
				MIMEType:      domain.CaptureMIMEType,
				PendingFrames: cfg.Session.PendingFrames,
			},
			BlockSize:   cfg.Session.BlockSize,
			Instruction: gemini.SystemInstruction,
		},
	)

	reports := usecase.NewReportFinalizer(
		report.NewGeminiGenerator(models, cfg.Gemini.ReportModel, logger, m),
		clipboard,
		eventSink,
	)

	return Services{
		Controller: controller,
		Reports:    reports,
		Config:     cfg,
		Registry:   registry,
		Logger:     logger,
	}, nil
}
