package proposal

import (
	"regexp"
)

var placeholderPattern = regexp.MustCompile(`(?im)(todo:?\s*implement|your code here|\bplaceholder\b|^\s*\.\.\.\s*$|^\s*//\s*\.\.\.\s*$)`)

var bracketPairs = map[rune]rune{')': '(', ']': '[', '}': '{'}

// bracketDelta counts opening minus closing brackets per kind, ignoring
// anything inside quotes.
func bracketDelta(text string) map[rune]int {
	delta := map[rune]int{'(': 0, '[': 0, '{': 0}
	var quote rune
	escaped := false
	for _, r := range text {
		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == quote:
				quote = 0
			case r == '\n' && quote != '`':
				quote = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			quote = r
		case '(', '[', '{':
			delta[r]++
		case ')', ']', '}':
			delta[bracketPairs[r]]--
		}
	}
	return delta
}

// bracketsShifted reports whether replacing original with replacement changes
// the bracket balance of the file.
func bracketsShifted(original, replacement string) bool {
	before := bracketDelta(original)
	after := bracketDelta(replacement)
	for kind, count := range after {
		if before[kind] != count {
			return true
		}
	}
	return false
}

func hasPlaceholder(text string) bool {
	return placeholderPattern.MatchString(text)
}
