package email

import (
	"strings"

	"github.com/k3a/html2text"
)

// ConvertHTMLToText converts HTML content to plain text.
// It strips HTML tags and converts entities to their text equivalents.
func ConvertHTMLToText(htmlContent string) (string, error) {
	if strings.TrimSpace(htmlContent) == "" {
		return "", nil
	}

	text := html2text.HTML2Text(htmlContent)

	return cleanupWhitespace(text), nil
}

// cleanupWhitespace collapses runs of blank lines to one so the summarizer
// sees paragraph lines rather than layout padding
func cleanupWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	result := make([]string, 0, len(lines))
	blank := false

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank {
				result = append(result, "")
			}
			blank = true
			continue
		}
		blank = false
		result = append(result, strings.TrimRight(line, " \t"))
	}

	return strings.TrimSpace(strings.Join(result, "\n"))
}
