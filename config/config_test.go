package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/flatfs/backend/readonly"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Backend != "memory://" {
		t.Errorf("expected backend=memory://, got %s", cfg.Backend)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected level=info, got %s", cfg.Log.Level)
	}
	if cfg.Mount.LossyRename {
		t.Error("expected lossy_rename=false")
	}
}

func TestLoad_WithoutFlatfsConfig(t *testing.T) {
	t.Setenv("FLATFS_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != "memory://" {
		t.Errorf("expected default backend, got %s", cfg.Backend)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flatfs.yaml")
	t.Setenv("FLATFS_DATA", dir)

	content := `
backend: sqlite://${FLATFS_DATA}/flatfs.db
log:
  level: debug
  json: true
  file: ${FLATFS_DATA}/flatfs.log
mount:
  lossy_rename: true
  read_only: true
  namespace: tenant
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	t.Setenv("FLATFS_CONFIG", path)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if want := "sqlite://" + dir + "/flatfs.db"; cfg.Backend != want {
		t.Errorf("expected backend=%s, got %s", want, cfg.Backend)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON || cfg.Log.Quiet {
		t.Errorf("unexpected log config: %+v", cfg.Log)
	}
	if cfg.Log.File != filepath.Join(dir, "flatfs.log") {
		t.Errorf("expected expanded log file, got %s", cfg.Log.File)
	}
	if !cfg.Mount.LossyRename || !cfg.Mount.ReadOnly || cfg.Mount.Namespace != "tenant" {
		t.Errorf("unexpected mount config: %+v", cfg.Mount)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options failed: %v", err)
	}
	if len(opts) != 4 {
		t.Errorf("expected 4 options, got %d", len(opts))
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"level":  "log:\n  level: loud\n",
		"syntax": "backend: [unterminated\n",
		"empty":  "backend: \"\"\n",
	}

	for name, content := range tests {
		path := filepath.Join(dir, name+".yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}

		if _, err := LoadFile(path); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestConfig_Store(t *testing.T) {
	cfg := Default()
	cfg.Mount.Namespace = "tenant"
	cfg.Mount.ReadOnly = true

	store, err := cfg.Store(t.Context())
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, ok := store.(*readonly.ReadOnlyStore); !ok {
		t.Fatalf("expected read-only store, got %T", store)
	}

	err = store.CreateObject(t.Context(), "key")
	if !errors.Is(err, readonly.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly, got %v", err)
	}

	cfg.Mount.Namespace = "a:b"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid namespace to fail validation")
	}
}
