package domain

import "strconv"

// Proposal is one concrete file-content change produced for a single step.
// A nil LineNumber means "append to end of file"; otherwise LineNumber is
// 1-based and Original should be found at or near that line.
type Proposal struct {
	File        string `json:"file"`
	Original    string `json:"original"`
	Replacement string `json:"replacement"`
	LineNumber  *int   `json:"lineNumber"`
	Explanation string `json:"explanation"`
}

// IsAppend reports whether the proposal appends to the end of the file.
func (p Proposal) IsAppend() bool {
	return p.LineNumber == nil
}

// LineLabel renders the line anchor, "null" for appends.
func (p Proposal) LineLabel() string {
	if p.LineNumber == nil {
		return "null"
	}
	return strconv.Itoa(*p.LineNumber)
}

// Line is a convenience constructor for Proposal.LineNumber.
func Line(n int) *int {
	return &n
}

// SearchMatch is one ranked candidate location for an edit.
type SearchMatch struct {
	File           string `json:"file"`
	Line           string `json:"line"`
	LineNumber     int    `json:"lineNumber"`
	FileType       string `json:"fileType"`
	RelevanceScore int    `json:"relevanceScore"`
	// NewFile marks the synthetic suggestion returned when nothing clears the confidence floor.
	NewFile bool `json:"newFile,omitempty"`
}

// ValidationResult is produced once per proposal.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Valid builds a passing result.
func Valid(warnings ...string) ValidationResult {
	return ValidationResult{IsValid: true, Errors: []string{}, Warnings: append([]string{}, warnings...)}
}

// Invalid builds a failing result; errors must be non-empty.
func Invalid(errs ...string) ValidationResult {
	if len(errs) == 0 {
		errs = []string{"invalid proposal"}
	}
	return ValidationResult{IsValid: false, Errors: append([]string{}, errs...), Warnings: []string{}}
}

// WithWarnings returns a copy of r with extra warnings appended.
func (r ValidationResult) WithWarnings(warnings ...string) ValidationResult {
	out := r
	out.Warnings = append(append([]string{}, r.Warnings...), warnings...)
	return out
}
