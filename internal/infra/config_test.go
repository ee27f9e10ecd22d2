package infra

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ruslano69/tdtp-deid/pkg/artifact"
)

func TestLoadConfigFromEnv(t *testing.T) {
	artifactPath, samplePath := writeInputs(t)
	t.Setenv("DEID_URL", artifactPath)
	t.Setenv("DEID_SAMPLE", samplePath)
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Artifact.Location != artifactPath {
		t.Errorf("artifact = %q", cfg.Artifact.Location)
	}
	if cfg.Sample.Type != "csv" || cfg.Sample.Path != samplePath {
		t.Errorf("sample = %+v", cfg.Sample)
	}
	if !cfg.Debug {
		t.Error("DEBUG=true not applied")
	}
	if cfg.Server.Addr != ":8080" || cfg.Engine.MaxNodes != 100000 || !cfg.Metrics.Enabled {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestLoadConfigFileTakesPrecedence(t *testing.T) {
	artifactPath, samplePath := writeInputs(t)
	t.Setenv("DEID_URL", "https://example.invalid/ignored.yaml")
	t.Setenv("DEID_SAMPLE", "")
	t.Setenv("DEBUG", "")

	path := filepath.Join(t.TempDir(), "deidserve.yaml")
	content := "server:\n  addr: \":9090\"\n  read_timeout: 5s\n" +
		"log:\n  format: json\n  level: warn\n" +
		"artifact:\n  location: " + artifactPath + "\n" +
		"sample:\n  type: csv\n  path: " + samplePath + "\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Artifact.Location != artifactPath {
		t.Errorf("artifact = %q, env must not override the file", cfg.Artifact.Location)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("default write_timeout lost: %v", cfg.Server.WriteTimeout)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "warn" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	artifactPath, samplePath := writeInputs(t)

	tests := []struct {
		name     string
		artifact string
		sample   string
		yaml     string
		want     string
	}{
		{"no artifact", "", samplePath, "", "artifact.location"},
		{"no sample", artifactPath, "", "", "sample is required"},
		{"bad log format", artifactPath, samplePath, "log:\n  format: xml\n", "log.format"},
		{"bad result log", artifactPath, samplePath, "result_log:\n  type: redis\n", "result_log"},
		{"bad stream", artifactPath, samplePath, "stream:\n  enabled: true\n", "stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEID_URL", tt.artifact)
			t.Setenv("DEID_SAMPLE", tt.sample)

			path := ""
			if tt.yaml != "" {
				path = filepath.Join(t.TempDir(), "c.yaml")
				if err := os.WriteFile(path, []byte(tt.yaml), 0600); err != nil {
					t.Fatal(err)
				}
			}

			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("LoadConfig() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExampleConfigs(t *testing.T) {
	t.Setenv("DEID_URL", "")
	t.Setenv("DEID_SAMPLE", "")
	t.Setenv("DEBUG", "")

	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "deidserve.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Stream.Output.Compression != "zstd" || cfg.Stream.Retry.InitialDelay != 200*time.Millisecond {
		t.Errorf("stream = %+v", cfg.Stream)
	}
	if !cfg.RedisBreaker.Enabled || cfg.RedisBreaker.OpenTimeout != 30*time.Second {
		t.Errorf("redis_breaker = %+v", cfg.RedisBreaker)
	}

	a, err := artifact.NewLoader().Load(context.Background(), filepath.Join("..", "..", "configs", "patients.deid.yaml"))
	if err != nil {
		t.Fatalf("artifact Load() error = %v", err)
	}
	res, err := a.Build(nil, nil)
	if err != nil {
		t.Fatalf("artifact Build() error = %v", err)
	}
	if got := strings.Join(res.Schema.Names(), ","); got != "name,age,zip,diagnosis" {
		t.Errorf("schema = %s", got)
	}
}
