package gemini

import (
	"encoding/base64"

	"google.golang.org/genai"

	"hotseat/internal/domain"
)

// translateMessage maps one server message onto zero or more events in the
// order the session controller must observe them: user transcription, model
// output, then turn boundaries.
func translateMessage(msg *genai.LiveServerMessage) []domain.ServerEvent {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	content := msg.ServerContent

	var events []domain.ServerEvent
	if t := content.InputTranscription; t != nil && t.Text != "" {
		events = append(events, domain.InputTranscription(t.Text))
	}
	if turn := content.ModelTurn; turn != nil {
		for _, part := range turn.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				events = append(events, domain.ModelAudio(base64.StdEncoding.EncodeToString(part.InlineData.Data)))
			}
			if part.Text != "" && !part.Thought {
				events = append(events, domain.ModelText(part.Text))
			}
		}
	}
	if t := content.OutputTranscription; t != nil && t.Text != "" {
		events = append(events, domain.ModelText(t.Text))
	}
	if content.TurnComplete {
		events = append(events, domain.TurnComplete())
	}
	if content.Interrupted {
		events = append(events, domain.Interrupted())
	}
	return events
}
