package config

const (
	defaultStorageDir            = "~/.local/share/recital/recordings"
	defaultLogDir                = "~/.local/share/recital/logs"
	defaultAPIBind               = "127.0.0.1:7848"
	defaultIngestURL             = "http://127.0.0.1:7848"
	defaultUploadAttemptTimeout  = 1800
	defaultUploadCompletedLinger = 5
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Upload: Upload{
			IngestURL:       defaultIngestURL,
			AttemptTimeout:  defaultUploadAttemptTimeout,
			CompletedLinger: defaultUploadCompletedLinger,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Uploads:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
