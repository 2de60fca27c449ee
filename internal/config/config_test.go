package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("unexpected default addr %q", cfg.Server.Addr)
	}
	if cfg.Segment.MinRows != 12 {
		t.Errorf("unexpected default min rows %d", cfg.Segment.MinRows)
	}
	if cfg.LibraryDir != "library" {
		t.Errorf("unexpected default library dir %q", cfg.LibraryDir)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warscan.yaml")
	data := []byte("library_dir: /data/crops\nserver:\n  addr: \":9999\"\nsegment:\n  min_rows: 10\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LibraryDir != "/data/crops" {
		t.Errorf("expected library dir from file, got %q", cfg.LibraryDir)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected addr from file, got %q", cfg.Server.Addr)
	}
	if cfg.Segment.MinRows != 10 {
		t.Errorf("expected min rows from file, got %d", cfg.Segment.MinRows)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("WARSCAN_LIBRARY_DIR", "/env/crops")
	t.Setenv("WARSCAN_MIN_ROWS", "14")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LibraryDir != "/env/crops" {
		t.Errorf("expected env override, got %q", cfg.LibraryDir)
	}
	if cfg.Segment.MinRows != 14 {
		t.Errorf("expected env min rows 14, got %d", cfg.Segment.MinRows)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}

func TestEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("WARSCAN_TEST_INT", "not-a-number")
	if got := envInt("WARSCAN_TEST_INT", 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
}
