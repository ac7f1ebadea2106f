package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"hotseat/internal/domain"
)

// styles holds the terminal palette.
type styles struct {
	Interviewer lipgloss.Style
	Candidate   lipgloss.Style
	Status      lipgloss.Style
	Error       lipgloss.Style
	Heading     lipgloss.Style
	Dim         lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Interviewer: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffb86c")),
		Candidate:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8be9fd")),
		Status:      lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")).Italic(true),
		Error:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555")),
		Heading:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")).Padding(0, 1),
		Dim:         lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681")),
	}
}

// terminalSink prints session events as a running transcript. Partial
// text is not printed; a turn appears once it is finalized.
type terminalSink struct {
	out    io.Writer
	styles styles

	mu      sync.Mutex
	elapsed int

	doneOnce sync.Once
	done     chan struct{}
}

func newTerminalSink(out io.Writer, s styles) *terminalSink {
	return &terminalSink{out: out, styles: s, done: make(chan struct{})}
}

// Done is closed once the session reaches closed or error on its own.
func (s *terminalSink) Done() <-chan struct{} {
	return s.done
}

func (s *terminalSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.println(s.styles.Status.Render(fmt.Sprintf("[%s] %s", state, reason)))
	if state == domain.SessionStateClosed || state == domain.SessionStateError {
		s.doneOnce.Do(func() { close(s.done) })
	}
}

func (s *terminalSink) PartialTranscript(_ domain.Role, _ string) {}

func (s *terminalSink) TurnFinalized(turn domain.TranscriptTurn) {
	s.mu.Lock()
	stamp := formatClock(s.elapsed)
	s.mu.Unlock()

	label := s.styles.Interviewer.Render("Interviewer:")
	if turn.Role == domain.RoleUser {
		label = s.styles.Candidate.Render("You:")
	}
	s.println(s.styles.Dim.Render(stamp) + " " + label + " " + turn.Text)
}

func (s *terminalSink) TimerTick(elapsedSeconds int) {
	s.mu.Lock()
	s.elapsed = elapsedSeconds
	s.mu.Unlock()
}

func (s *terminalSink) SessionError(code domain.ErrorCode, detail string) {
	s.println(s.styles.Error.Render("error ("+string(code)+"):") + " " + detail)
}

// Summary prints the end-of-interview recap.
func (s *terminalSink) Summary(rec domain.Recording) {
	s.println("")
	s.println(s.styles.Heading.Render("Interview finished"))
	s.println(fmt.Sprintf("Duration: %s  Turns: %d  Final state: %s", formatClock(rec.ElapsedSeconds), len(rec.Turns), rec.FinalState))
	if pending := strings.TrimSpace(rec.PendingUser); pending != "" {
		s.println(s.styles.Dim.Render("Unfinished answer: " + pending))
	}
}

// Report prints a generated coaching report.
func (s *terminalSink) Report(report domain.Report) {
	s.println("")
	s.println(s.styles.Heading.Render("Coaching report"))
	s.println(report.Markdown)
}

func (s *terminalSink) println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

func formatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
