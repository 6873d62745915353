package triage

import "strings"

const (
	minSummaryLine = 30
	ellipsis       = "..."
)

// Summarize picks the first substantial body line as the gist of a message,
// skipping quoted text and signature separators. Falls back to the subject.
func Summarize(subject, body string) string {
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) <= minSummaryLine {
			continue
		}
		if strings.HasPrefix(line, ">") || strings.HasPrefix(line, "--") {
			continue
		}
		if r := []rune(line); len(r) > maxSummaryLen {
			return string(r[:maxSummaryLen]) + ellipsis
		}
		return line
	}
	return subject
}
