package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sentiscan.yaml")
	content := `
archive:
  root: /srv/archive
output:
  dir: /srv/site
aggregation:
  prefix_cap: 500
  reservoir_capacity: 100
object_store:
  endpoint: minio.local:9000
  bucket: snapshots
  retention_days: 90
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Archive.Root != "/srv/archive" {
		t.Errorf("Archive.Root = %q", cfg.Archive.Root)
	}
	if cfg.Aggregation.PrefixCap != 500 {
		t.Errorf("PrefixCap = %d, want 500", cfg.Aggregation.PrefixCap)
	}
	if cfg.ObjectStore.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", cfg.ObjectStore.RetentionDays)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}

	// Unspecified fields keep their defaults.
	if cfg.Inventory.Path != "data/inventory.db" {
		t.Errorf("Inventory.Path = %q, want default", cfg.Inventory.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load should fail for a missing file")
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Aggregation.PrefixCap != 10000 {
		t.Errorf("default PrefixCap = %d, want 10000", cfg.Aggregation.PrefixCap)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SENTISCAN_ARCHIVE", "/env/archive")
	t.Setenv("SENTISCAN_SCAN_LIMIT", "250")
	t.Setenv("S3_BUCKET", "env-bucket")

	cfg := Default()
	applyEnvOverrides(cfg)

	if cfg.Archive.Root != "/env/archive" {
		t.Errorf("Archive.Root = %q, want env override", cfg.Archive.Root)
	}
	if cfg.Aggregation.ScanLimit != 250 {
		t.Errorf("ScanLimit = %d, want 250", cfg.Aggregation.ScanLimit)
	}
	if cfg.ObjectStore.Bucket != "env-bucket" {
		t.Errorf("Bucket = %q, want env-bucket", cfg.ObjectStore.Bucket)
	}
}

func TestEnvScanLimitRejectsGarbage(t *testing.T) {
	t.Setenv("SENTISCAN_SCAN_LIMIT", "not-a-number")
	cfg := Default()
	applyEnvOverrides(cfg)
	if cfg.Aggregation.ScanLimit != 0 {
		t.Errorf("ScanLimit = %d, want 0 for a malformed override", cfg.Aggregation.ScanLimit)
	}
}
