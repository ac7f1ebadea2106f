package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"hotseat/internal/bootstrap"
	"hotseat/internal/config"
	"hotseat/internal/domain"
	"hotseat/internal/usecase"
)

const (
	eventSession = "hotseat:session"
	eventPartial = "hotseat:partial"
	eventTurn    = "hotseat:turn"
	eventTimer   = "hotseat:timer"
	eventError   = "hotseat:error"
)

var errNoRecording = errors.New("no finished interview to report on")

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	reports    *usecase.ReportFinalizer
	cfg        config.Config
	bootErr    error

	mu   sync.Mutex
	last *domain.Recording
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.reports = services.Reports
}

func (a *App) shutdown(_ context.Context) {
	if a.controller == nil {
		return
	}
	_ = a.controller.Abort()
}

// StartInterview opens a live interview for the given resume and job description.
func (a *App) StartInterview(resume string, jobDescription string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	brief := domain.Brief{
		ResumeText:     strings.TrimSpace(resume),
		JobDescription: strings.TrimSpace(jobDescription),
	}
	if err := a.controller.Start(a.ctx, brief); err != nil {
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return domain.Status{}, err
	}
	return a.controller.Status(), nil
}

// EndInterview stops the interview and keeps its recording for the report.
func (a *App) EndInterview() (domain.Recording, error) {
	if err := a.requireReady(); err != nil {
		return domain.Recording{}, err
	}
	rec, err := a.controller.End(a.ctx)
	if err != nil {
		return domain.Recording{}, err
	}
	a.mu.Lock()
	a.last = &rec
	a.mu.Unlock()
	return rec, nil
}

// AbortInterview discards an in-progress interview.
func (a *App) AbortInterview() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.controller.Abort(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		return err
	}
	return nil
}

// GenerateReport produces the coaching report for the last finished interview.
func (a *App) GenerateReport() (domain.Report, error) {
	if err := a.requireReady(); err != nil {
		return domain.Report{}, err
	}
	a.mu.Lock()
	last := a.last
	a.mu.Unlock()
	if last == nil {
		return domain.Report{}, errNoRecording
	}
	return a.reports.Finalize(a.ctx, *last)
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateClosed, Active: false}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	return map[string]string{
		"provider":          "Gemini",
		"liveModel":         a.cfg.Gemini.LiveModel,
		"reportModel":       a.cfg.Gemini.ReportModel,
		"voice":             a.cfg.Gemini.Voice,
		"apiKeyConfigured":  fmt.Sprintf("%t", a.cfg.Gemini.APIKey != ""),
		"audioInput":        a.cfg.Audio.InputDevice,
		"audioInputFormat":  a.cfg.Audio.InputFormat,
		"audioOutput":       a.cfg.Audio.OutputDevice,
		"audioOutputFormat": a.cfg.Audio.OutputFormat,
	}
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// PartialTranscript emits the in-progress text of the current utterance.
func (a *App) PartialTranscript(role domain.Role, text string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventPartial, map[string]string{"role": string(role), "text": text})
}

// TurnFinalized emits a committed transcript turn.
func (a *App) TurnFinalized(turn domain.TranscriptTurn) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTurn, turn)
}

// TimerTick emits the elapsed interview time.
func (a *App) TimerTick(elapsedSeconds int) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTimer, map[string]any{
		"seconds": elapsedSeconds,
		"label":   formatElapsed(elapsedSeconds),
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonConnecting:
		return "Connecting to interviewer..."
	case domain.SessionReasonRestarted:
		return "Interview restarted; previous session discarded"
	case domain.SessionReasonMicrophoneLive:
		return "Microphone live"
	case domain.SessionReasonModelSpeaking:
		return "Interviewer speaking"
	case domain.SessionReasonTurnComplete:
		return "Your turn"
	case domain.SessionReasonInterrupted:
		return "Interviewer interrupted"
	case domain.SessionReasonPermissionDenied:
		return "Microphone permission denied"
	case domain.SessionReasonMicrophoneLost:
		return "Microphone stream lost"
	case domain.SessionReasonTransportFailed:
		return "Connection to interviewer failed"
	case domain.SessionReasonTransportClosed:
		return "Interviewer closed the session"
	case domain.SessionReasonEnded:
		return "Interview ended"
	case domain.SessionReasonDiscarded:
		return "Interview discarded"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodePermissionDenied:
		return "Microphone permission denied"
	case domain.ErrorCodeTransport:
		return "Connection error"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodePlayback:
		return "Playback issue"
	case domain.ErrorCodeReport:
		return "Report generation failed"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

// formatElapsed renders seconds as MM:SS.
func formatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
