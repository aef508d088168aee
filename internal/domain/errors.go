package domain

import "errors"

// Failure taxonomy. Callers wrap these with the specific violated rule and
// match them with errors.Is.
var (
	ErrPathEscape        = errors.New("path escapes project root")
	ErrDangerousContent  = errors.New("dangerous content")
	ErrUnsafeCommand     = errors.New("unsafe command")
	ErrOriginalNotFound  = errors.New("original snippet not found")
	ErrCommandTimeout    = errors.New("command timed out")
	ErrNonZeroExit       = errors.New("command exited with non-zero status")
	ErrSchemaInvalid     = errors.New("response does not match schema")
	ErrValidatorParse    = errors.New("validation response could not be parsed")
	ErrNoSearchMatch     = errors.New("no search match")
	ErrStepFailed        = errors.New("compound step failed")
	ErrValidationFailed  = errors.New("proposal validation failed")
	ErrNoProposals       = errors.New("no proposals generated")
	ErrDirectoryNotFound = errors.New("directory not found")
)
