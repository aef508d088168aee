package commands

// History command defaults
const (
	DefaultHistoryLimit       = 20
	DefaultHistorySearchLimit = 50
	MaxHistoryAnalysisRecords = 1000
	TimestampFormat           = "2006-01-02 15:04:05"
)

// Error messages
const (
	ErrConfigLoaderUnavailable  = "config loader unavailable"
	ErrDoctorServiceUnavailable = "doctor service unavailable"
	ErrHistoryStoreUnavailable  = "history store unavailable"
	ErrSafetyUnavailable        = "safety classifier unavailable"
	ErrQueryRequired            = "--query required"
)

// Success messages
const (
	MsgConfigurationValid       = "Configuration valid"
	MsgNoDifferencesFromDefault = "No differences from default configuration."
	MsgNoHistoryRecorded        = "No history recorded yet."
)
