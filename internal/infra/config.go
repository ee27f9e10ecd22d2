// Package infra handles configuration loading and infrastructure wiring.
package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ruslano69/tdtp-deid/pkg/artifact"
	"github.com/ruslano69/tdtp-deid/pkg/resilience"
	"github.com/ruslano69/tdtp-deid/pkg/resultlog"
	"github.com/ruslano69/tdtp-deid/pkg/sample"
	"github.com/ruslano69/tdtp-deid/pkg/stream"
)

// Config is the top-level configuration structure for deidserve and deidctl.
type Config struct {
	Server       ServerConfig      `yaml:"server"`
	Log          LogConfig         `yaml:"log"`
	Artifact     ArtifactConfig    `yaml:"artifact"`
	Sample       sample.Config     `yaml:"sample"`
	Engine       EngineConfig      `yaml:"engine"`
	Stream       stream.Config     `yaml:"stream"`
	ResultLog    resultlog.Config  `yaml:"result_log"`
	RedisBreaker resilience.Config `yaml:"redis_breaker"` // guards request tracking writes
	Metrics      MetricsConfig     `yaml:"metrics"`

	// Debug logs every input record; set via DEBUG=true
	Debug bool `yaml:"debug"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`           // default ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`   // default 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`  // default 30s
	MaxBodyBytes int64         `yaml:"max_body_bytes"` // default 32 MiB (after decompression)
}

// LogConfig selects zerolog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error; default info
	Format string `yaml:"format"` // console or json; default console
}

// ArtifactConfig locates the authored de-identification configuration.
type ArtifactConfig struct {
	Location string            `yaml:"location"` // path, http(s):// or s3://; override via DEID_URL
	S3       artifact.S3Config `yaml:"s3"`
}

// EngineConfig tunes the reference lattice engine.
type EngineConfig struct {
	MaxNodes  int  `yaml:"max_nodes"` // default 100000
	Serialize bool `yaml:"serialize"` // force one Apply at a time
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default true
	Path    string `yaml:"path"`    // default /metrics
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.MaxBodyBytes = 32 << 20
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	cfg.Engine.MaxNodes = 100000
	cfg.Stream = stream.DefaultConfig()
	cfg.RedisBreaker = resilience.DefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	return cfg
}

// LoadConfig reads the YAML config at path (optional), applies env fallbacks and validates.
//
// Environment (used when the file leaves the field empty):
//
//	DEID_URL     artifact location
//	DEID_SAMPLE  sample file (csv/xlsx, type from extension)
//	DEBUG        log every input record
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if cfg.Artifact.Location == "" {
		cfg.Artifact.Location = os.Getenv("DEID_URL")
	}
	if cfg.Sample.Type == "" && cfg.Sample.Path == "" {
		if s := os.Getenv("DEID_SAMPLE"); s != "" {
			cfg.Sample = sample.FromLocation(s)
		}
	}
	if v := os.Getenv("DEBUG"); v != "" {
		cfg.Debug = isTrue(v)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that both startup inputs are present and every section is consistent.
func (c *Config) Validate() error {
	if c.Artifact.Location == "" {
		return fmt.Errorf("config: artifact.location is required (or set DEID_URL)")
	}
	if c.Sample.Type == "" && c.Sample.Path == "" {
		return fmt.Errorf("config: sample is required (or set DEID_SAMPLE)")
	}
	if err := c.Sample.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Engine.MaxNodes < 1 {
		return fmt.Errorf("config: engine.max_nodes must be >= 1")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("config: log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Stream.Enabled {
		if err := c.Stream.Validate(); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := c.RedisBreaker.Validate(); err != nil {
		return fmt.Errorf("config: redis_breaker: %w", err)
	}
	if err := c.ResultLog.Validate(); err != nil {
		return fmt.Errorf("config: result_log: %w", err)
	}
	return nil
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
