package extract

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an executive assistant extracting actionable tasks from email. Output only valid JSON matching the requested structure. Do not include any preamble, markdown formatting, or explanation. If no tasks are found, return an empty list.`

// buildPrompt renders the extraction prompt for one message. The body is
// capped at bodyLimit characters to keep the request within token limits.
func buildPrompt(subject, sender, body string, bodyLimit int) string {
	if r := []rune(body); bodyLimit > 0 && len(r) > bodyLimit {
		body = string(r[:bodyLimit])
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nExtract actionable tasks from this email.\n\n")
	fmt.Fprintf(&b, "From: %s\nSubject: %s\n\n%s\n\n", sender, subject, body)
	b.WriteString(`Rules:
- A task is something somebody must do; status updates, confirmations and newsletters yield no tasks.
- "due" is a deadline mentioned in the email, formatted as YYYY-MM-DD or YYYY-MM-DD HH:MM. Omit it when the email names no deadline.
- "priority" is one of "low", "normal" or "high".
- "confidence" is between 0 and 1.

Output only JSON of the form:
{"tasks": [{"title": "...", "due": "...", "priority": "normal", "confidence": 0.9}]}
`)
	return b.String()
}
