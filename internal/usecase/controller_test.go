package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"hotseat/internal/domain"
	"hotseat/internal/metrics"
	"hotseat/internal/ports"
)

func TestSessionControllerInterviewLifecycle(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{session: newFakeAudioSession()}
	transport := &fakeTransport{}
	events := &fakeEventSink{}
	m := metrics.New(prometheus.NewRegistry())
	controller := newTestController(capture, &fakeOutputOpener{}, transport, events, m)

	brief := domain.Brief{ResumeText: "Go", JobDescription: "SRE"}
	if err := controller.Start(context.Background(), brief); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stream := transport.stream(0)
	if got := transport.config(0).SystemInstruction; got != "resume=Go jd=SRE" {
		t.Fatalf("unexpected system instruction: %q", got)
	}

	stream.push(domain.SessionOpened())
	events.waitForState(t, domain.SessionStateActiveSpeaking, domain.SessionReasonMicrophoneLive)
	events.waitForTick(t)

	capture.session.write(make([]byte, 256*4))
	stream.waitSent(t, 1)

	stream.push(domain.ModelText("Hi"))
	stream.push(domain.ModelText(" there"))
	stream.push(domain.TurnComplete())
	events.waitForTurns(t, 1)
	events.waitForState(t, domain.SessionStateActiveListening, domain.SessionReasonTurnComplete)

	status := controller.Status()
	if !status.Active || status.SessionID == "" {
		t.Fatalf("unexpected status: %+v", status)
	}

	rec, err := controller.End(context.Background())
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if len(rec.Turns) != 1 || rec.Turns[0].Text != "Hi there" {
		t.Fatalf("unexpected turns: %+v", rec.Turns)
	}
	if len(rec.Events) != 4 {
		t.Fatalf("expected 4 logged events, got %+v", rec.Events)
	}
	for i, ev := range rec.Events {
		if ev.Seq != i {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
	}
	if !VerifyRecording(rec) {
		t.Fatalf("expected turns to replay from the event log")
	}
	if rec.Brief != brief || rec.ElapsedSeconds < 1 {
		t.Fatalf("unexpected recording: %+v", rec)
	}
	if rec.FinalState != domain.SessionStateActiveListening {
		t.Fatalf("unexpected final state: %s", rec.FinalState)
	}

	if !capture.session.stopped() {
		t.Fatalf("expected microphone released")
	}
	if stream.closeCount() != 1 {
		t.Fatalf("expected transport closed once, got %d", stream.closeCount())
	}
	states := events.snapshotStates()
	last := states[len(states)-1]
	if last.state != domain.SessionStateClosed || last.reason != domain.SessionReasonEnded {
		t.Fatalf("unexpected final state event: %+v", last)
	}
	if got := testutil.ToFloat64(m.TurnsFinalized.WithLabelValues("model")); got != 1 {
		t.Fatalf("expected 1 finalized model turn, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions); got != 0 {
		t.Fatalf("expected no active sessions, got %v", got)
	}
}

func TestSessionControllerPermissionDenied(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{err: errors.New("no input device")}
	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(capture, &fakeOutputOpener{}, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	transport.stream(0).push(domain.SessionOpened())
	events.waitForState(t, domain.SessionStateError, domain.SessionReasonPermissionDenied)

	states := events.snapshotStates()
	if len(states) != 2 || states[0].state != domain.SessionStateConnecting {
		t.Fatalf("expected connecting -> error, got %+v", states)
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodePermissionDenied {
		t.Fatalf("expected permission error, got %+v", errs)
	}

	time.Sleep(50 * time.Millisecond)
	if n := events.tickCount(); n != 0 {
		t.Fatalf("expected timer never to start, got %d ticks", n)
	}
	if controller.Status().State != domain.SessionStateError {
		t.Fatalf("unexpected status: %+v", controller.Status())
	}

	rec, err := controller.End(context.Background())
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if rec.FinalState != domain.SessionStateError || rec.ElapsedSeconds != 0 {
		t.Fatalf("unexpected recording: %+v", rec)
	}
}

func TestSessionControllerTransportFailureBeforeOpen(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{session: newFakeAudioSession()}
	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(capture, &fakeOutputOpener{}, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stream := transport.stream(0)
	stream.push(domain.SessionError("voice session transport error: bad key"))
	stream.push(domain.ModelText("late"))
	events.waitForState(t, domain.SessionStateError, domain.SessionReasonTransportFailed)

	rec, err := controller.End(context.Background())
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if len(rec.Events) != 1 || rec.Events[0].Kind != domain.EventError {
		t.Fatalf("expected only the error to be logged, got %+v", rec.Events)
	}
	if capture.starts() != 0 {
		t.Fatalf("expected microphone never started")
	}
	errs := events.snapshotErrors()
	if len(errs) != 1 || errs[0].code != domain.ErrorCodeTransport || !strings.Contains(errs[0].detail, "bad key") {
		t.Fatalf("unexpected errors: %+v", errs)
	}
}

func TestSessionControllerInterruptionSilencesPlayback(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{session: newFakeAudioSession()}
	opener := &fakeOutputOpener{}
	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(capture, opener, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stream := transport.stream(0)
	stream.push(domain.SessionOpened())
	events.waitForState(t, domain.SessionStateActiveSpeaking, domain.SessionReasonMicrophoneLive)

	frame := base64.StdEncoding.EncodeToString(make([]byte, 480))
	stream.push(domain.ModelAudio(frame))
	stream.push(domain.InputTranscription("I led"))
	stream.push(domain.ModelText("Go on"))
	stream.push(domain.Interrupted())
	stream.push(domain.ModelAudio(frame))
	events.waitForTurns(t, 1)
	waitUntil(t, func() bool { return len(opener.snapshot()) == 5 }, "second playback")

	rec, err := controller.End(context.Background())
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if len(rec.Turns) != 1 || rec.Turns[0].Text != "Go on [Interrupted]" {
		t.Fatalf("unexpected turns: %+v", rec.Turns)
	}
	if rec.PendingUser != "I led" {
		t.Fatalf("expected user text pending, got %q", rec.PendingUser)
	}

	want := []string{"open", "play", "close", "open", "play", "close"}
	got := opener.snapshot()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected device operations: %v", got)
	}
}

func TestSessionControllerTurnCompletesBeforeMicrophoneLive(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{session: newFakeAudioSession(), gate: make(chan struct{})}
	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(capture, &fakeOutputOpener{}, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stream := transport.stream(0)
	stream.push(domain.SessionOpened())
	stream.push(domain.ModelText("Hello, thanks for joining."))
	stream.push(domain.TurnComplete())
	events.waitForTurns(t, 1)
	if got := controller.Status().State; got != domain.SessionStateConnecting {
		t.Fatalf("expected connecting until the microphone is live, got %s", got)
	}

	close(capture.gate)
	events.waitForState(t, domain.SessionStateActiveListening, domain.SessionReasonMicrophoneLive)
	if got := controller.Status().State; got != domain.SessionStateActiveListening {
		t.Fatalf("expected listening once the microphone is live, got %s", got)
	}

	stream.push(domain.ModelText("Tell me about a team you led."))
	events.waitForState(t, domain.SessionStateActiveSpeaking, domain.SessionReasonModelSpeaking)
	stream.push(domain.InputTranscription("I led a team"))
	stream.push(domain.TurnComplete())
	events.waitForTurns(t, 3)
	events.waitForState(t, domain.SessionStateActiveListening, domain.SessionReasonTurnComplete)
	if got := controller.Status().State; got != domain.SessionStateActiveListening {
		t.Fatalf("expected listening after turn_complete, got %s", got)
	}

	for _, s := range events.snapshotStates() {
		if s.state == domain.SessionStateActiveSpeaking && s.reason == domain.SessionReasonMicrophoneLive {
			t.Fatalf("microphone went live after the opening turn; expected listening, got %+v", events.snapshotStates())
		}
	}
	if err := controller.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
}

func TestSessionControllerServerClose(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(&fakeAudioCapture{session: newFakeAudioSession()}, &fakeOutputOpener{}, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stream := transport.stream(0)
	stream.push(domain.SessionOpened())
	events.waitForState(t, domain.SessionStateActiveSpeaking, domain.SessionReasonMicrophoneLive)
	stream.push(domain.SessionClosed())
	events.waitForState(t, domain.SessionStateClosed, domain.SessionReasonTransportClosed)

	if errs := events.snapshotErrors(); len(errs) != 0 {
		t.Fatalf("expected a benign close, got errors %+v", errs)
	}
	if err := controller.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
}

func TestSessionControllerEndWithoutActiveSession(t *testing.T) {
	t.Parallel()

	controller := newTestController(&fakeAudioCapture{}, &fakeOutputOpener{}, &fakeTransport{}, &fakeEventSink{}, nil)

	if _, err := controller.End(context.Background()); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if err := controller.Abort(); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestSessionControllerEndWhileConnecting(t *testing.T) {
	t.Parallel()

	capture := &fakeAudioCapture{session: newFakeAudioSession()}
	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(capture, &fakeOutputOpener{}, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	rec, err := controller.End(context.Background())
	if err != nil {
		t.Fatalf("end failed: %v", err)
	}
	if rec.FinalState != domain.SessionStateConnecting || len(rec.Events) != 0 {
		t.Fatalf("unexpected recording: %+v", rec)
	}

	stream := transport.stream(0)
	stream.push(domain.SessionOpened())
	time.Sleep(20 * time.Millisecond)
	if capture.starts() != 0 {
		t.Fatalf("expected late open to be ignored")
	}
	if stream.closeCount() != 1 {
		t.Fatalf("expected transport closed once, got %d", stream.closeCount())
	}
}

func TestSessionControllerRestartDiscardsPrevious(t *testing.T) {
	t.Parallel()

	transport := &fakeTransport{}
	events := &fakeEventSink{}
	controller := newTestController(&fakeAudioCapture{session: newFakeAudioSession()}, &fakeOutputOpener{}, transport, events, nil)

	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := controller.Start(context.Background(), domain.Brief{}); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	if transport.stream(0).closeCount() != 1 {
		t.Fatalf("expected previous stream closed")
	}
	states := events.snapshotStates()
	if len(states) != 3 {
		t.Fatalf("expected 3 state events, got %+v", states)
	}
	if states[1].reason != domain.SessionReasonDiscarded || states[2].reason != domain.SessionReasonRestarted {
		t.Fatalf("unexpected restart reasons: %+v", states)
	}
	if err := controller.Abort(); err != nil {
		t.Fatalf("abort failed: %v", err)
	}
}

func newTestController(
	capture ports.AudioCapture,
	opener ports.OutputOpener,
	transport ports.VoiceTransport,
	events ports.EventSink,
	m *metrics.Metrics,
) *SessionController {
	return NewSessionController(capture, opener, transport, events, nil, m, Config{
		BlockSize:    256,
		TickInterval: 5 * time.Millisecond,
		Instruction: func(b domain.Brief) string {
			return "resume=" + b.ResumeText + " jd=" + b.JobDescription
		},
	})
}

type fakeAudioCapture struct {
	mu      sync.Mutex
	session *fakeAudioSession
	err     error
	calls   int

	// gate, when set, holds Start until it is closed.
	gate chan struct{}
}

func (f *fakeAudioCapture) Start(ctx context.Context, _ ports.AudioConfig) (ports.AudioSession, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.session == nil {
		return nil, errors.New("no audio session configured")
	}
	return f.session, nil
}

func (f *fakeAudioCapture) starts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0
	}
	return f.calls
}

type fakeAudioSession struct {
	reader *io.PipeReader
	writer *io.PipeWriter

	mu        sync.Mutex
	stopCalls int
}

func newFakeAudioSession() *fakeAudioSession {
	r, w := io.Pipe()
	return &fakeAudioSession{reader: r, writer: w}
}

func (f *fakeAudioSession) Read(p []byte) (int, error) { return f.reader.Read(p) }

func (f *fakeAudioSession) Close() error { return f.Stop() }

func (f *fakeAudioSession) Stop() error {
	f.mu.Lock()
	f.stopCalls++
	f.mu.Unlock()
	_ = f.writer.Close()
	return f.reader.Close()
}

func (f *fakeAudioSession) stopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls > 0
}

func (f *fakeAudioSession) write(data []byte) {
	go func() { _, _ = f.writer.Write(data) }()
}

type fakeOutputOpener struct {
	mu  sync.Mutex
	ops []string
}

func (f *fakeOutputOpener) Open(_ context.Context, _ ports.OutputConfig) (ports.OutputDevice, error) {
	f.record("open")
	return &fakeOutputDevice{opener: f}, nil
}

func (f *fakeOutputOpener) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op)
}

func (f *fakeOutputOpener) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

type fakeOutputDevice struct {
	opener *fakeOutputOpener
}

func (d *fakeOutputDevice) Now() time.Duration { return 0 }

func (d *fakeOutputDevice) Play(_ domain.PlaybackChunk) error {
	d.opener.record("play")
	return nil
}

func (d *fakeOutputDevice) Close() error {
	d.opener.record("close")
	return nil
}

type fakeTransport struct {
	mu      sync.Mutex
	streams []*fakeVoiceStream
	configs []ports.SessionConfig
}

func (f *fakeTransport) Open(_ context.Context, cfg ports.SessionConfig) ports.VoiceStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	stream := &fakeVoiceStream{events: make(chan domain.ServerEvent, 32)}
	f.streams = append(f.streams, stream)
	f.configs = append(f.configs, cfg)
	return stream
}

func (f *fakeTransport) stream(i int) *fakeVoiceStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

func (f *fakeTransport) config(i int) ports.SessionConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.configs[i]
}

type fakeVoiceStream struct {
	events chan domain.ServerEvent

	mu         sync.Mutex
	sent       []string
	closeCalls int
}

func (f *fakeVoiceStream) Send(frame string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frame)
}

func (f *fakeVoiceStream) Events() <-chan domain.ServerEvent { return f.events }

func (f *fakeVoiceStream) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
}

func (f *fakeVoiceStream) push(ev domain.ServerEvent) {
	f.events <- ev
}

func (f *fakeVoiceStream) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeVoiceStream) waitSent(t *testing.T, n int) {
	t.Helper()
	waitUntil(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.sent) >= n
	}, "frames sent")
}

type fakeEventSink struct {
	mu sync.Mutex

	states   []stateEvent
	partials []partialEvent
	turns    []domain.TranscriptTurn
	ticks    []int
	errors   []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type partialEvent struct {
	role domain.Role
	text string
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) PartialTranscript(role domain.Role, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.partials = append(f.partials, partialEvent{role: role, text: text})
}

func (f *fakeEventSink) TurnFinalized(turn domain.TranscriptTurn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns = append(f.turns, turn)
}

func (f *fakeEventSink) TimerTick(elapsed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, elapsed)
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) tickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ticks)
}

func (f *fakeEventSink) waitForState(t *testing.T, state domain.SessionState, reason domain.SessionStateReason) {
	t.Helper()
	waitUntil(t, func() bool {
		for _, s := range f.snapshotStates() {
			if s.state == state && s.reason == reason {
				return true
			}
		}
		return false
	}, string(state)+"/"+string(reason))
}

func (f *fakeEventSink) waitForTurns(t *testing.T, n int) {
	t.Helper()
	waitUntil(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.turns) >= n
	}, "finalized turns")
}

func (f *fakeEventSink) waitForTick(t *testing.T) {
	t.Helper()
	waitUntil(t, func() bool { return f.tickCount() > 0 }, "timer tick")
}

func waitUntil(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
