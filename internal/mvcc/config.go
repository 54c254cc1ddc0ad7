package mvcc

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig is the Engine's load-time configuration: how long a writer
// waits on a TIMED_OUT dependency before giving up, and on what schedule
// the background sweeper prunes registered resources.
//
// Grounded on the config-by-struct-plus-YAML convention used elsewhere for
// loading GUI/driver settings, generalized here to the engine's own
// tunables.
type EngineConfig struct {
	// DefaultMaxWait bounds how long AddVersion/Delete block on a
	// concurrent transaction whose outcome is not yet decided before
	// reporting a write-write conflict. Zero means "probe only, never
	// block".
	DefaultMaxWait time.Duration `yaml:"default_max_wait"`

	// SweepCronSpec is a robfig/cron schedule (seconds-field enabled)
	// describing how often the Engine's Sweeper prunes every registered
	// resource. Empty disables the background sweep; callers can still
	// invoke Engine.SweepNow directly.
	SweepCronSpec string `yaml:"sweep_cron_spec"`
}

// DefaultEngineConfig returns the configuration a new Engine uses when no
// explicit EngineConfig is supplied: a five second wait budget and a sweep
// once a minute.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		DefaultMaxWait: 5 * time.Second,
		SweepCronSpec:  "0 * * * * *",
	}
}

// LoadEngineConfig reads an EngineConfig from a YAML file at path, filling
// in DefaultEngineConfig's values for anything the file leaves zero.
func LoadEngineConfig(path string) (EngineConfig, error) {
	cfg := DefaultEngineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, faultf(InvalidArgument, err, "load engine config: read %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EngineConfig{}, faultf(InvalidArgument, err, "load engine config: parse %s", path)
	}
	return cfg, nil
}
