package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"hotseat/internal/metrics"
)

const defaultModel = "gemini-3-flash-preview"

var (
	ErrEmptyReport   = errors.New("model returned an empty report")
	ErrNotConfigured = errors.New("report model is not configured: GEMINI_API_KEY is not set")
)

// ContentGenerator is the part of *genai.Models used for reports.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator implements ports.ReportGenerator with a Gemini text model.
type GeminiGenerator struct {
	models  ContentGenerator
	model   string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewGeminiGenerator(models ContentGenerator, model string, logger *slog.Logger, m *metrics.Metrics) *GeminiGenerator {
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiGenerator{models: models, model: model, logger: logger, metrics: m}
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.metrics != nil {
		g.metrics.ReportRequests.Inc()
		start := time.Now()
		defer func() { g.metrics.ReportDuration.Observe(time.Since(start).Seconds()) }()
	}

	text, err := g.generate(ctx, prompt)
	if err != nil {
		if g.metrics != nil {
			g.metrics.ReportFailures.Inc()
		}
		g.logger.Warn("report generation failed", "model", g.model, "err", err)
		return "", err
	}
	return text, nil
}

func (g *GeminiGenerator) generate(ctx context.Context, prompt string) (string, error) {
	if g.models == nil {
		return "", ErrNotConfigured
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyReport
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyReport
	}
	return text, nil
}
