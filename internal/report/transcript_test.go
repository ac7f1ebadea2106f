package report

import (
	"testing"

	"hotseat/internal/domain"
)

func TestFlattenCoalescesSpeakers(t *testing.T) {
	t.Parallel()

	got := Flatten([]domain.ServerEvent{
		domain.SessionOpened(),
		domain.ModelText("Tell me"),
		domain.ModelAudio("AAA="),
		domain.ModelText(" about Kafka."),
		domain.InputTranscription("We used"),
		domain.InputTranscription(" it for billing."),
		domain.ModelText("Why?"),
		domain.Interrupted(),
		domain.ModelText("Go on."),
		domain.TurnComplete(),
		domain.SessionClosed(),
	})

	want := "Interviewer: Tell me about Kafka.\n" +
		"Candidate: We used it for billing.\n" +
		"Interviewer: Why?\n" +
		"Interviewer: Go on."
	if got != want {
		t.Fatalf("unexpected transcript:\n%s\nwant:\n%s", got, want)
	}
}

func TestFlattenSkipsBlankDeltas(t *testing.T) {
	t.Parallel()

	got := Flatten([]domain.ServerEvent{
		domain.InputTranscription("  "),
		domain.TurnComplete(),
		domain.SessionError("boom"),
	})
	if got != "" {
		t.Fatalf("expected empty transcript, got %q", got)
	}
}
