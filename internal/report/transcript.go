package report

import (
	"strings"

	"hotseat/internal/domain"
)

const (
	interviewerLabel = "Interviewer"
	candidateLabel   = "Candidate"
)

// Flatten renders an event log as speaker-labelled lines. Consecutive text
// deltas from the same speaker are joined into one line; a turn boundary
// always starts a new line.
func Flatten(events []domain.ServerEvent) string {
	var (
		lines   []string
		speaker string
		current strings.Builder
	)

	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			lines = append(lines, speaker+": "+text)
		}
		current.Reset()
		speaker = ""
	}

	for _, ev := range events {
		var who string
		switch ev.Kind {
		case domain.EventModelText:
			who = interviewerLabel
		case domain.EventInputTranscription:
			who = candidateLabel
		case domain.EventTurnComplete, domain.EventInterrupted:
			flush()
			continue
		default:
			continue
		}
		if who != speaker {
			flush()
			speaker = who
		}
		current.WriteString(ev.Text)
	}
	flush()

	return strings.Join(lines, "\n")
}
