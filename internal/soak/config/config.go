package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Soak Soak `yaml:"soak"`
}

type Soak struct {
	API       API       `yaml:"api"`
	Table     Table     `yaml:"table"`
	Scenarios Scenarios `yaml:"scenarios"`
	Rate      Rate      `yaml:"rate"`
	ForceGC   ForceGC   `yaml:"force_gc"`
	K8S       K8S       `yaml:"k8s"`
}

type API struct {
	Name string `yaml:"name"`
	Port string `yaml:"port"`
}

type Table struct {
	Shards        int `yaml:"shards"`          // rounded up to a power of two
	SlotsPerShard int `yaml:"slots_per_shard"` // live handles the table can hold per shard
}

type Scenarios struct {
	CloneDropWorkers   int `yaml:"clone_drop_workers"`
	UpgradeRaceWorkers int `yaml:"upgrade_race_workers"`
	EvictWorkers       int `yaml:"evict_workers"`
	EvictCacheSize     int `yaml:"evict_cache_size"`
}

type Rate struct {
	Limit int `yaml:"limit"` // iterations per second across all workers
	Burst int `yaml:"burst"`
}

type ForceGC struct {
	Enabled           bool          `yaml:"enabled"`
	GCInterval        time.Duration `yaml:"gc_interval"`
	FreeOSMemInterval time.Duration `yaml:"free_os_mem_interval"`
}

type K8S struct {
	Probe Probe `yaml:"probe"`
}

type Probe struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoadConfig reads and validates a YAML config from the given path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err = cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration the soak harness falls back to when no
// config file is present.
func Default() *Config {
	return &Config{
		Soak: Soak{
			API: API{Name: "sharedref-soak", Port: "8020"},
			Table: Table{
				Shards:        64,
				SlotsPerShard: 256,
			},
			Scenarios: Scenarios{
				CloneDropWorkers:   4,
				UpgradeRaceWorkers: 4,
				EvictWorkers:       2,
				EvictCacheSize:     4096,
			},
			Rate:    Rate{Limit: 100_000, Burst: 1_000},
			ForceGC: ForceGC{Enabled: true, GCInterval: 30 * time.Second, FreeOSMemInterval: 5 * time.Minute},
			K8S:     K8S{Probe: Probe{Timeout: 5 * time.Second}},
		},
	}
}

func (c *Config) validate() error {
	s := &c.Soak
	if s.API.Port == "" {
		return fmt.Errorf("config: api.port must be set")
	}
	if s.Table.Shards <= 0 || s.Table.SlotsPerShard <= 0 {
		return fmt.Errorf("config: table.shards and table.slots_per_shard must be positive")
	}
	if s.Rate.Limit <= 0 || s.Rate.Burst <= 0 {
		return fmt.Errorf("config: rate.limit and rate.burst must be positive")
	}
	if s.Scenarios.EvictWorkers > 0 && s.Scenarios.EvictCacheSize <= 0 {
		return fmt.Errorf("config: scenarios.evict_cache_size must be positive when evict workers are enabled")
	}
	if s.ForceGC.Enabled && (s.ForceGC.GCInterval <= 0 || s.ForceGC.FreeOSMemInterval <= 0) {
		return fmt.Errorf("config: force_gc intervals must be positive when enabled")
	}
	return nil
}
