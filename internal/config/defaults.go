package config

const (
	defaultInputDir  = "~/documents/inbox"
	defaultOutputDir = "~/documents/converted"
	defaultWorkDir   = "~/.local/share/docmill/work"
	defaultLogDir    = "~/.local/share/docmill/logs"
	defaultStateDir  = "~/.local/share/docmill/state"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	defaultQueueParallelism = 3
	defaultQueueEventBuffer = 64

	defaultWorkerCount         = 1
	defaultWorkerQueueDepth    = 16
	defaultWorkerDrainSeconds  = 30
	defaultRetryMaxAttempts    = 3
	defaultRetryBaseDelayMS    = 1000
	defaultRetryFactor         = 2.0
	defaultRetryMaxDelayMS     = 30000
	defaultCircuitThreshold    = 5
	defaultCircuitWindowSec    = 60
	defaultCircuitBreakSec     = 30
	defaultHealthIntervalSec   = 60
	defaultHealthMaxHandles    = 256
	defaultHealthMaxHostRSSMiB = 2048

	defaultHostBinary        = "soffice"
	defaultHostOutputFormat  = "pdf"
	defaultHostRecycleUses   = 20
	defaultHostShutdownGrace = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Queue: Queue{
			Parallelism: defaultQueueParallelism,
			EventBuffer: defaultQueueEventBuffer,
		},
		Workers: Workers{
			Count:               defaultWorkerCount,
			QueueDepth:          defaultWorkerQueueDepth,
			DrainTimeoutSeconds: defaultWorkerDrainSeconds,
		},
		Retry: Retry{
			MaxAttempts: defaultRetryMaxAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
			Factor:      defaultRetryFactor,
			MaxDelayMS:  defaultRetryMaxDelayMS,
		},
		Circuit: Circuit{
			FailureThreshold: defaultCircuitThreshold,
			WindowSeconds:    defaultCircuitWindowSec,
			BreakSeconds:     defaultCircuitBreakSec,
		},
		Health: Health{
			IntervalSeconds:  defaultHealthIntervalSec,
			MaxActiveHandles: defaultHealthMaxHandles,
			MaxHostRSSMiB:    defaultHealthMaxHostRSSMiB,
		},
		Host: Host{
			Binary:               defaultHostBinary,
			OutputFormat:         defaultHostOutputFormat,
			RecycleAfterUses:     defaultHostRecycleUses,
			ShutdownGraceSeconds: defaultHostShutdownGrace,
		},
	}
}
