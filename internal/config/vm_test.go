package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadVMConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadVMConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultVMConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadVMConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vm.yaml")
	if err := os.WriteFile(path, []byte("max_stack_bytes: 1048576\nverbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadVMConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxStackBytes != 1048576 || !cfg.Verbose {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.InitialStackBytes != DefaultVMConfig().InitialStackBytes {
		t.Fatalf("expected default InitialStackBytes to survive, got %d", cfg.InitialStackBytes)
	}
}
