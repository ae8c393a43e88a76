package config

const (
	defaultPriority          = "normal"
	defaultLockMethod        = "dir"
	defaultMutexDir          = ".proc/mutex"
	defaultLockTimeout       = 120
	defaultLockPollInterval  = 100
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultConfigPath        = "~/.config/ctbb/config.toml"
	defaultProjectConfigName = "ctbb.toml"
)

// Default parameter sets applied when a configuration leaves them out.
var (
	DefaultDoses            = []int{100, 10}
	DefaultSliceThicknesses = []float64{0.6, 5.0}
	DefaultKernels          = []int{1, 3}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Pipeline: Pipeline{
			Doses:            append([]int(nil), DefaultDoses...),
			SliceThicknesses: append([]float64(nil), DefaultSliceThicknesses...),
			Kernels:          append([]int(nil), DefaultKernels...),
			Priority:         defaultPriority,
		},
		Lock: Lock{
			Method:         defaultLockMethod,
			MutexDir:       defaultMutexDir,
			TimeoutSeconds: defaultLockTimeout,
			PollIntervalMS: defaultLockPollInterval,
			BreakStale:     true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
