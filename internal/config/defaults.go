package config

const (
	defaultDataDir              = "~/.local/share/docflow"
	defaultLogDir               = "~/.local/share/docflow/logs"
	defaultExportDir            = "~/.local/share/docflow/exports"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultAdvanceRetryAttempts = 3
	defaultReviewSLAHours       = 48
	defaultRevisionSLAHours     = 72
	defaultReviewCheckInterval  = 300
	defaultNotifyRequestTimeout = 10
	defaultServiceName          = "docflowd"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			ExportDir: defaultExportDir,
			APIBind:   defaultAPIBind,
		},
		Workflow: Workflow{
			AdvanceRetryAttempts: defaultAdvanceRetryAttempts,
		},
		Review: Review{
			ReviewSLAHours:       defaultReviewSLAHours,
			RevisionSLAHours:     defaultRevisionSLAHours,
			CheckIntervalSeconds: defaultReviewCheckInterval,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyRequestTimeout,
			ReviewRequested: true,
			Approved:        true,
			Rejected:        true,
			Completed:       true,
			Overdue:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Telemetry: Telemetry{
			ServiceName: defaultServiceName,
		},
	}
}
