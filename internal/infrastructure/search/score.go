package search

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	wordPattern = regexp.MustCompile(`[a-z0-9]+`)
	testPath    = regexp.MustCompile(`(^|/)(tests?|__tests__|__mocks__|mocks?|fixtures?|testdata|spec)(/|$)|[._-](test|spec|mock|fixture)s?\.[a-z0-9]+$|(^|/)test_[^/]*$`)
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"into": {}, "onto": {}, "when": {}, "then": {}, "than": {}, "are": {}, "was": {},
	"will": {}, "should": {}, "would": {}, "could": {}, "can": {}, "must": {}, "has": {},
	"have": {}, "its": {}, "our": {}, "your": {}, "all": {}, "any": {}, "new": {},
	"add": {}, "make": {}, "create": {}, "update": {}, "change": {}, "modify": {},
	"code": {}, "file": {}, "use": {}, "using": {}, "which": {}, "there": {}, "also": {},
}

// tokenize returns lowercase alphanumeric words of length three or more,
// stopwords removed, in first-seen order.
func tokenize(texts ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, text := range texts {
		for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
			if len(word) < 3 {
				continue
			}
			if _, stop := stopwords[word]; stop {
				continue
			}
			if _, dup := seen[word]; dup {
				continue
			}
			seen[word] = struct{}{}
			out = append(out, word)
		}
	}
	return out
}

// pathScore is the per-file part of every line score.
func pathScore(rel, target string, tokens []string) int {
	relLower := strings.ToLower(rel)
	base := strings.ToLower(path.Base(rel))

	score := 0
	baseHit := false
	for _, token := range tokens {
		if strings.Contains(relLower, token) {
			score += 2
		}
		if !baseHit && (strings.HasPrefix(base, token) || strings.Contains(base, token)) {
			baseHit = true
		}
	}
	if baseHit {
		score++
	}
	if t := strings.ToLower(strings.TrimSpace(target)); t != "" && strings.Contains(relLower, t) {
		score += 30
	}
	if isTestPath(relLower) {
		score -= 40
	}
	return score
}

// lineScore is the per-line part of the score. An exact keyword substring
// earns 20; a case-insensitive hit earns 10.
func lineScore(line, keyword string, tokens []string) int {
	score := 0
	if keyword != "" {
		if strings.Contains(line, keyword) {
			score += 20
		} else if strings.Contains(strings.ToLower(line), strings.ToLower(keyword)) {
			score += 10
		}
	}
	lower := strings.ToLower(line)
	for _, token := range tokens {
		if strings.Contains(lower, token) {
			score += 3
		}
	}
	return score
}

func isTestPath(rel string) bool {
	return testPath.MatchString(strings.ToLower(filepath.ToSlash(rel)))
}

var languages = map[string]string{
	".go":     "go",
	".py":     "python",
	".js":     "javascript",
	".jsx":    "javascript",
	".mjs":    "javascript",
	".cjs":    "javascript",
	".ts":     "typescript",
	".tsx":    "typescript",
	".rs":     "rust",
	".java":   "java",
	".kt":     "kotlin",
	".rb":     "ruby",
	".php":    "php",
	".c":      "c",
	".h":      "c",
	".cpp":    "cpp",
	".cc":     "cpp",
	".hpp":    "cpp",
	".cs":     "csharp",
	".swift":  "swift",
	".scala":  "scala",
	".lua":    "lua",
	".sh":     "shell",
	".bash":   "shell",
	".zsh":    "shell",
	".sql":    "sql",
	".vue":    "vue",
	".svelte": "svelte",
	".html":   "html",
	".css":    "css",
	".scss":   "scss",
	".yaml":   "yaml",
	".yml":    "yaml",
	".json":   "json",
	".toml":   "toml",
	".xml":    "xml",
	".md":     "markdown",
	".txt":    "text",
}

// sourceExtensions are the languages counted when picking a new file's extension.
var sourceExtensions = map[string]struct{}{
	".go": {}, ".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".rs": {},
	".java": {}, ".kt": {}, ".rb": {}, ".php": {}, ".c": {}, ".cpp": {}, ".cc": {},
	".cs": {}, ".swift": {}, ".scala": {}, ".lua": {}, ".vue": {}, ".svelte": {},
	".mjs": {}, ".cjs": {},
}

// fileType tags a path with a coarse category.
func fileType(rel string) string {
	if isTestPath(rel) {
		return "test"
	}
	if lang, ok := languages[strings.ToLower(path.Ext(rel))]; ok {
		return lang
	}
	switch path.Base(rel) {
	case "Dockerfile":
		return "dockerfile"
	case "Makefile", "GNUmakefile":
		return "makefile"
	}
	return "unknown"
}

// dominantExtension returns the most common source extension, ties broken by
// first appearance, or ".txt" when there are no source files.
func dominantExtension(files []fileEntry) string {
	counts := make(map[string]int)
	var order []string
	for _, f := range files {
		ext := strings.ToLower(path.Ext(f.Rel))
		if _, ok := sourceExtensions[ext]; !ok || isTestPath(f.Rel) {
			continue
		}
		if counts[ext] == 0 {
			order = append(order, ext)
		}
		counts[ext]++
	}
	best := ".txt"
	bestCount := 0
	for _, ext := range order {
		if counts[ext] > bestCount {
			best, bestCount = ext, counts[ext]
		}
	}
	return best
}

// looksLikePath reports whether target already names a file.
func looksLikePath(target string) bool {
	target = strings.TrimSpace(target)
	if target == "" || strings.ContainsAny(target, " \t") {
		return false
	}
	return strings.Contains(target, "/") || path.Ext(target) != ""
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// slug turns free text into a file stem in the convention of ext.
func slug(target, ext string) string {
	sep := "-"
	switch ext {
	case ".go", ".py", ".rs", ".rb":
		sep = "_"
	}
	words := tokenize(target)
	if len(words) == 0 {
		for _, part := range slugSeparators.Split(strings.ToLower(target), -1) {
			if part != "" {
				words = append(words, part)
			}
		}
	}
	s := strings.Trim(strings.Join(words, sep), sep+"-_")
	if s == "" {
		return "new" + sep + "file"
	}
	return s
}
