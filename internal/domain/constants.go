package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// FilePermissions is used for files created by edits (rw-r--r--)
	FilePermissions = 0o644
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Execution defaults
const (
	DefaultCommandTimeout = 120 * time.Second
	DefaultGracePeriod    = 5 * time.Second
	// DefaultMaxOutputBytes caps captured stdout and stderr separately.
	DefaultMaxOutputBytes = 1 << 20
	// TimeoutExitCode mirrors coreutils timeout(1).
	TimeoutExitCode = 124
)

// Search defaults
const (
	DefaultConfidenceFloor  = 15
	DefaultMaxSearchResults = 50
	DefaultMaxFileBytes     = 1 << 20
)

// Validation defaults
const (
	DefaultBatchCharBudget = 12000
	// CautionWarning is attached when semantic validation could not be parsed.
	CautionWarning = "could not verify; proceed with caution"
)

// History defaults
const (
	DefaultHistoryLimit = 20
	DefaultRecentTurns  = 5
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
