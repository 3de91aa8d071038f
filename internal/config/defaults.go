package config

const (
	defaultStateDir          = "~/.local/share/stockmeta"
	defaultExportDir         = "~/stockmeta/exports"
	defaultLogDir            = "~/.local/share/stockmeta/logs"
	defaultGeminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel       = "gemini-2.5-flash"
	defaultGeminiTimeout     = 120
	defaultGroupSize         = 5
	defaultPausePollMillis   = 200
	defaultSettleMillis      = 100
	defaultRetryAttempts     = 3
	defaultRetryBaseMillis   = 2000
	defaultPreviewMaxEdge    = 512
	defaultPlatform          = "AdobeStock"
	defaultMode              = "metadata"
	defaultServerBind        = "127.0.0.1:7878"
	defaultNotifyTimeout     = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultWatchDebounceMsec = 500
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir:  defaultStateDir,
			ExportDir: defaultExportDir,
			LogDir:    defaultLogDir,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TimeoutSeconds: defaultGeminiTimeout,
		},
		Batch: Batch{
			GroupSize:       defaultGroupSize,
			PausePollMillis: defaultPausePollMillis,
			SettleMillis:    defaultSettleMillis,
			RetryAttempts:   defaultRetryAttempts,
			RetryBaseMillis: defaultRetryBaseMillis,
			PreviewMaxEdge:  defaultPreviewMaxEdge,
		},
		Defaults: Defaults{
			Platform: defaultPlatform,
			Mode:     defaultMode,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Watch: Watch{
			DebounceMillis: defaultWatchDebounceMsec,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Batch:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
