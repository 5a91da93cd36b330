package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the sentiscan tooling. All
// values the aggregation core and tiering tools consume are carried here
// explicitly; there is no module-level mutable state.
type Config struct {
	Archive     Archive     `yaml:"archive"`
	Output      Output      `yaml:"output"`
	Aggregation Aggregation `yaml:"aggregation"`
	Inventory   Inventory   `yaml:"inventory"`
	Tier        Tier        `yaml:"tier"`
	ObjectStore ObjectStore `yaml:"object_store"`
	Logging     Logging     `yaml:"logging"`
}

// Archive locates the day-partitioned snapshot archive.
type Archive struct {
	Root string `yaml:"root"`
}

// Output holds the artifact output directory for the insights builder.
type Output struct {
	Dir string `yaml:"dir"`
}

// Aggregation bounds the streaming accumulators.
type Aggregation struct {
	// PrefixCap bounds every first-N sample list.
	PrefixCap int `yaml:"prefix_cap"`
	// ReservoirCapacity bounds the uniform spread sample.
	ReservoirCapacity int `yaml:"reservoir_capacity"`
	// ScanLimit bounds a walk for test harnesses. Production runs keep 0.
	ScanLimit int `yaml:"scan_limit"`
	// Seed fixes the random sources for reproducible example fields;
	// 0 seeds from the clock.
	Seed int64 `yaml:"seed"`
}

// Inventory locates the SQLite shard inventory database.
type Inventory struct {
	Path string `yaml:"path"`
}

// Tier configures the Parquet export tree.
type Tier struct {
	OutDir string `yaml:"out_dir"`
	Verify bool   `yaml:"verify"`
}

// ObjectStore holds S3-compatible storage settings for the lifecycle tool.
type ObjectStore struct {
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	Secure        bool   `yaml:"secure"`
	RetentionDays int    `yaml:"retention_days"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config with working defaults for everything that has
// one. Paths default to the conventional layout under ./data.
func Default() *Config {
	return &Config{
		Archive: Archive{Root: "data/archive"},
		Output:  Output{Dir: "data/site"},
		Aggregation: Aggregation{
			PrefixCap:         10000,
			ReservoirCapacity: 5000,
		},
		Inventory: Inventory{Path: "data/inventory.db"},
		Tier:      Tier{OutDir: "data/tiers", Verify: true},
		Logging:   Logging{Level: "info", Format: "text"},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to pure defaults
// (plus env overrides) when it does not. CLIs use this so a config file is
// optional.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return Load(path)
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SENTISCAN_ARCHIVE"); v != "" {
		cfg.Archive.Root = v
	}
	if v := os.Getenv("SENTISCAN_OUT"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("SENTISCAN_INVENTORY"); v != "" {
		cfg.Inventory.Path = v
	}
	if v := os.Getenv("SENTISCAN_TIER_DIR"); v != "" {
		cfg.Tier.OutDir = v
	}

	// Test-harness only; production runs must not set this.
	if v := os.Getenv("SENTISCAN_SCAN_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Aggregation.ScanLimit = n
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
}
