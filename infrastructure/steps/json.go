// Package steps provides LLM-backed implementations of the refinement
// collaborators: a schema-guided generator, a multi-dimension quality
// validator, and a criteria-driven corrector. The engine itself never
// depends on these; they are one production wiring of its ports.
package steps

import "strings"

// ExtractJSON pulls the first JSON object out of a model response that
// may wrap it in markdown fences or surrounding prose. It returns the
// empty string when no balanced object is found.
func ExtractJSON(response string) string {
	response = strings.TrimSpace(response)

	// Prefer fenced blocks when present.
	if fenced := extractFenced(response); fenced != "" {
		return fenced
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	// Scan for the matching close brace, ignoring braces inside strings.
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		ch := response[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return response[start : i+1]
				}
			}
		}
	}
	return ""
}

// extractFenced returns the contents of the first ```json or generic
// code fence that holds a JSON object.
func extractFenced(response string) string {
	for _, marker := range []string{"```json", "```"} {
		start := strings.Index(response, marker)
		if start == -1 {
			continue
		}
		start += len(marker)
		if newline := strings.Index(response[start:], "\n"); marker == "```" && newline != -1 {
			start += newline + 1
		}
		end := strings.Index(response[start:], "```")
		if end == -1 {
			continue
		}
		candidate := strings.TrimSpace(response[start : start+end])
		if strings.HasPrefix(candidate, "{") {
			return candidate
		}
	}
	return ""
}
