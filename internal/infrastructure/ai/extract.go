package ai

import (
	"encoding/json"
	"errors"
	"strings"
)

var errNoJSON = errors.New("no JSON value found in reply")

// extractJSON strips code fences and surrounding prose and returns the single
// JSON object or array in reply.
func extractJSON(reply string) (string, error) {
	body := stripFences(reply)
	if json.Valid([]byte(body)) {
		return body, nil
	}
	if candidate, ok := firstJSONValue(body); ok {
		return candidate, nil
	}
	return "", errNoJSON
}

// stripFences returns the body of the first fenced block, or the trimmed
// reply when there is none.
func stripFences(reply string) string {
	trimmed := strings.TrimSpace(reply)
	open := strings.Index(trimmed, "```")
	if open == -1 {
		return trimmed
	}
	rest := trimmed[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		// drop the language tag, if any
		if tag := strings.TrimSpace(rest[:nl]); !strings.ContainsAny(tag, "{[") {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end != -1 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// firstJSONValue scans for the first balanced object or array that parses.
func firstJSONValue(text string) (string, bool) {
	for start, r := range text {
		if r != '{' && r != '[' {
			continue
		}
		if end := matchingClose(text[start:]); end > 0 {
			candidate := text[start : start+end]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
	}
	return "", false
}

func matchingClose(text string) int {
	depth := 0
	inString := false
	escape := false
	for i, r := range text {
		switch {
		case escape:
			escape = false
		case inString && r == '\\':
			escape = true
		case r == '"':
			inString = !inString
		case inString:
		case r == '{' || r == '[':
			depth++
		case r == '}' || r == ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
