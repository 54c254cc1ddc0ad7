package mvcc

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.DefaultMaxWait <= 0 {
		t.Errorf("DefaultEngineConfig().DefaultMaxWait = %v, want > 0", cfg.DefaultMaxWait)
	}
	if cfg.SweepCronSpec == "" {
		t.Error("DefaultEngineConfig().SweepCronSpec should not be empty")
	}
}

func TestLoadEngineConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	contents := "default_max_wait: 2s\nsweep_cron_spec: \"0 */5 * * * *\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadEngineConfig(path)
	if err != nil {
		t.Fatalf("LoadEngineConfig: %v", err)
	}
	if cfg.DefaultMaxWait != 2*time.Second {
		t.Errorf("DefaultMaxWait = %v, want 2s", cfg.DefaultMaxWait)
	}
	if cfg.SweepCronSpec != "0 */5 * * * *" {
		t.Errorf("SweepCronSpec = %q, want %q", cfg.SweepCronSpec, "0 */5 * * * *")
	}
}

func TestLoadEngineConfigMissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if !IsKind(err, InvalidArgument) {
		t.Errorf("LoadEngineConfig on a missing file = %v, want an InvalidArgument Fault", err)
	}
}
