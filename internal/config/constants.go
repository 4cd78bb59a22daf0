package config

import "time"

// Application constants
const (
	AppName     = "trialmerge"
	ServiceName = "trialmerge"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// Paths are relative to the working directory unless absolute
	DefaultInputDir   = "data"
	DefaultOutputFile = "master_data_for_analysis.csv"
	DefaultLogsDir    = "logs"

	DefaultMergeTimeout   = 2 * time.Minute
	DefaultMaxUploadBytes = 32 << 20 // 32MB
)

// Input extensions accepted by directory discovery
var TrialFileExtensions = []string{".csv", ".txt", ".xlsx"}
