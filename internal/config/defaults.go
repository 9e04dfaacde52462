package config

const (
	defaultConfigPath         = "~/.config/docflow/config.toml"
	defaultDataDir            = "~/.local/share/docflow"
	defaultLogDir             = "~/.local/share/docflow/logs"
	defaultGlassDir           = "~/docflow/glass"
	defaultOrdersDir          = "~/docflow/orders"
	defaultAPIBind            = "127.0.0.1:7490"
	defaultPollInterval       = 5
	defaultStabilityMs        = 2000
	defaultArchiveDirName     = "archive"
	defaultSkippedDirName     = "skipped"
	defaultMaxRetries         = 3
	defaultRetryBaseDelayMs   = 2000
	defaultRetryMaxDelayMs    = 30000
	defaultDelayBetweenJobsMs = 500
	defaultBusyTimeoutMs      = 5000
	defaultTxTimeoutSeconds   = 30
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Watch: Watch{
			GlassDir:       defaultGlassDir,
			OrdersDir:      defaultOrdersDir,
			PollInterval:   defaultPollInterval,
			StabilityMs:    defaultStabilityMs,
			StartupScan:    true,
			ArchiveDirName: defaultArchiveDirName,
			SkippedDirName: defaultSkippedDirName,
		},
		Queue: Queue{
			MaxRetries:         defaultMaxRetries,
			RetryBaseDelayMs:   defaultRetryBaseDelayMs,
			RetryMaxDelayMs:    defaultRetryMaxDelayMs,
			DelayBetweenJobsMs: defaultDelayBetweenJobsMs,
		},
		Store: Store{
			BusyTimeoutMs:    defaultBusyTimeoutMs,
			TxTimeoutSeconds: defaultTxTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			EntityChanged:  false,
			Conflicts:      true,
			Errors:         true,
			QueueDrained:   false,
		},
		Authors: Authors{
			Mappings: map[string]int64{},
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
