package usecase

import (
	"context"
	"errors"
	"fmt"

	"hotseat/internal/domain"
	"hotseat/internal/ports"
	"hotseat/internal/report"
)

var ErrEmptyTranscript = errors.New("recording has no transcript to report on")

// ReportFinalizer turns a finished recording into a coaching report and
// copies it to the clipboard.
type ReportFinalizer struct {
	generator ports.ReportGenerator
	clipboard ports.Clipboard
	events    ports.EventSink
}

func NewReportFinalizer(generator ports.ReportGenerator, clipboard ports.Clipboard, events ports.EventSink) *ReportFinalizer {
	return &ReportFinalizer{generator: generator, clipboard: clipboard, events: events}
}

func (f *ReportFinalizer) Finalize(ctx context.Context, rec domain.Recording) (domain.Report, error) {
	transcript := report.Flatten(rec.Events)
	if transcript == "" {
		f.events.SessionError(domain.ErrorCodeReport, ErrEmptyTranscript.Error())
		return domain.Report{}, ErrEmptyTranscript
	}

	markdown, err := f.generator.Generate(ctx, report.BuildPrompt(rec.Brief, transcript))
	if err != nil {
		f.events.SessionError(domain.ErrorCodeReport, err.Error())
		return domain.Report{}, fmt.Errorf("failed to generate report: %w", err)
	}

	result := domain.Report{
		SessionID:  rec.SessionID,
		Transcript: transcript,
		Markdown:   markdown,
		Copied:     true,
	}
	if f.clipboard == nil {
		result.Copied = false
		return result, nil
	}
	if err := f.clipboard.SetText(ctx, markdown); err != nil {
		result.Copied = false
		f.events.SessionError(domain.ErrorCodeClipboard, "report ready but clipboard write failed")
	}
	return result, nil
}
