package report

import (
	"strings"

	"hotseat/internal/domain"
)

// Headings are the sections every report must contain, in order.
var Headings = []string{
	"## Verified Strengths",
	"## Weak Spots",
	"## Likely Probe Zones",
	"## Overall Readiness",
}

const promptTemplate = `You are an expert interview coach.
I am providing you with a candidate's resume, the job description they applied for, and the transcript of a voice interview session.

Resume:
{{resume}}

Job Description:
{{job}}

Interview Transcript:
{{transcript}}

Analyze the conversation. Generate a detailed breakdown of the candidate's performance.
Do NOT use numerical scores. Provide written summaries only.

Format your response as clean Markdown with the following sections exactly:
## Verified Strengths
(Claims from the CV they defended well or demonstrated strong knowledge of)

## Weak Spots
(Claims or topics they stayed surface-level on, struggled with, or failed to elaborate on)

## Likely Probe Zones
(Areas a real human interviewer would likely push harder on based on this performance)

## Overall Readiness
(A summary of their readiness for the role)`

// BuildPrompt assembles the coaching prompt for a brief and a flattened transcript.
func BuildPrompt(brief domain.Brief, transcript string) string {
	return strings.NewReplacer(
		"{{resume}}", strings.TrimSpace(brief.ResumeText),
		"{{job}}", strings.TrimSpace(brief.JobDescription),
		"{{transcript}}", strings.TrimSpace(transcript),
	).Replace(promptTemplate)
}

// MissingHeadings lists the required headings absent from a report.
func MissingHeadings(markdown string) []string {
	var missing []string
	for _, heading := range Headings {
		if !strings.Contains(markdown, heading) {
			missing = append(missing, heading)
		}
	}
	return missing
}
