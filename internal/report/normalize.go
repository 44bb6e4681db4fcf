package report

import "strings"

// Normalize cleans raw model output into a bare HTML document. Models
// routinely wrap the document in code fences or surround it with
// commentary; the fences are stripped first, then the output is sliced
// from the first document-start marker to the last </html> when both are
// present. Output failing those heuristics passes through unchanged.
func Normalize(raw string) string {
	text := stripCodeFences(strings.TrimSpace(raw))

	lower := strings.ToLower(text)
	start := strings.Index(lower, "<!doctype")
	if start < 0 {
		start = strings.Index(lower, "<html")
	}
	end := strings.LastIndex(lower, "</html>")
	if start >= 0 && end > start {
		text = text[start : end+len("</html>")]
	}
	return strings.TrimSpace(text)
}

func stripCodeFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
