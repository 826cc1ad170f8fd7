package services

import (
	"fmt"
	"strings"
)

// maxQuestions bounds how many sub-questions one message may produce.
const maxQuestions = 10

var questionMarkers = []string{"show", "list", "what", "how", "which", "get", "find", "count"}

// Split breaks a message into individual questions when it spans multiple
// question-like lines. The returned slice is never empty and holds at most
// maxQuestions entries in their original order; when more lines qualified,
// notice carries a human-readable truncation note (empty otherwise).
func Split(message string) (questions []string, notice string) {
	var lines []string
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) > 1 {
		var candidates []string
		for _, line := range lines {
			if isQuestionLike(line) {
				candidates = append(candidates, line)
			}
		}
		if len(candidates) > 1 {
			if len(candidates) > maxQuestions {
				notice = fmt.Sprintf("*Note: Showing first %d of %d questions. Please ask fewer questions at once for faster responses.*",
					maxQuestions, len(candidates))
				candidates = candidates[:maxQuestions]
			}
			return candidates, notice
		}
	}

	return []string{message}, ""
}

func isQuestionLike(line string) bool {
	if strings.HasSuffix(line, "?") {
		return true
	}
	lower := strings.ToLower(line)
	for _, marker := range questionMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
