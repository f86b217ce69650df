package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(NewViper(filepath.Join(t.TempDir(), "absent.yaml")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-3.5-turbo" {
		t.Errorf("unexpected provider/model %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Batch.MaxSize != 40 || cfg.Batch.SceneGap != 2*time.Second || cfg.Batch.ContextSize != 3 {
		t.Errorf("unexpected batch defaults %+v", cfg.Batch)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != 2*time.Second || cfg.Retry.MaxDelay != 30*time.Second {
		t.Errorf("unexpected retry defaults %+v", cfg.Retry)
	}
	if cfg.Delay.Min != time.Second || cfg.Delay.Max != 1500*time.Millisecond {
		t.Errorf("unexpected delay defaults %+v", cfg.Delay)
	}
	if cfg.CallTimeout != 10*time.Minute {
		t.Errorf("unexpected call timeout %s", cfg.CallTimeout)
	}
	if cfg.Detect.SampleSize != 10 || cfg.Detect.CharThreshold != 0.01 || cfg.Detect.WordThreshold != 0.05 {
		t.Errorf("unexpected detect defaults %+v", cfg.Detect)
	}
	if cfg.Session.Backend != "sqlite" || cfg.Queue.Name != "vietsub.jobs" || cfg.Workers != 2 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cost := cfg.RateTable()["gpt-3.5-turbo"]; cost.InputPer1K != 0.0015 {
		t.Errorf("unexpected built-in rate %+v", cost)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vietsub.yaml")
	content := `provider: ollama
model: qwen2.5:7b
batch:
  max_size: 25
  scene_gap: 3s
retry:
  max_retries: 5
rates:
  - model: qwen2.5:7b
    input: 0
    output: 0
  - model: gpt-4o-mini
    input: 0.00015
    output: 0.0006
prompt:
  structured: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewViper(path)
	if err := ReadFile(v); err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "ollama" || cfg.Batch.MaxSize != 25 || cfg.Batch.SceneGap != 3*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Retry.MaxRetries != 5 || cfg.Retry.BaseDelay != 2*time.Second {
		t.Errorf("unexpected retry %+v", cfg.Retry)
	}
	if !cfg.Prompt.Structured {
		t.Error("expected structured prompt")
	}
	rates := cfg.RateTable()
	if rates["gpt-4o-mini"].OutputPer1K != 0.0006 {
		t.Errorf("configured rate missing: %+v", rates)
	}
	if _, ok := rates.Lookup("qwen2.5:7b"); !ok {
		t.Error("expected dotted model name to be kept whole")
	}
	if _, ok := rates["gpt-3.5-turbo"]; !ok {
		t.Error("built-in rate must survive overlay")
	}
}

func TestReadFile_MissingExplicitFile(t *testing.T) {
	v := NewViper(filepath.Join(t.TempDir(), "missing.yaml"))
	if err := ReadFile(v); err == nil {
		t.Error("expected error for a missing explicit config file")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("VIETSUB_PROVIDER", "OpenRouter")
	t.Setenv("VIETSUB_BATCH_MAX_SIZE", "12")

	cfg, err := Load(NewViper(filepath.Join(t.TempDir(), "absent.yaml")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "openrouter" {
		t.Errorf("provider = %q, want openrouter", cfg.Provider)
	}
	if cfg.Batch.MaxSize != 12 {
		t.Errorf("batch.max_size = %d, want 12", cfg.Batch.MaxSize)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Provider: "openai",
			Delay:    Delay{Min: time.Second, Max: 2 * time.Second},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"unknown provider", func(c *Config) { c.Provider = "babelfish" }, "provider"},
		{"inverted delay", func(c *Config) { c.Delay = Delay{Min: 2 * time.Second, Max: time.Second} }, "delay.max"},
		{"negative retries", func(c *Config) { c.Retry.MaxRetries = -1 }, "max_retries"},
		{"threshold range", func(c *Config) { c.Detect.CharThreshold = 2 }, "thresholds"},
		{"bad session backend", func(c *Config) { c.Session.Backend = "etcd" }, "session.backend"},
		{"redis without addr", func(c *Config) { c.Session.Backend = "redis" }, "redis.addr"},
		{"rate without model", func(c *Config) { c.Rates = []ModelRate{{Input: 1}} }, "rates[0]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.errSub) {
				t.Errorf("expected error containing %q, got %v", tc.errSub, err)
			}
		})
	}

	cfg := base()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if cfg.Batch.MaxSize != 40 || cfg.Workers != 1 || cfg.CallTimeout != 10*time.Minute {
		t.Errorf("defaults not filled: %+v", cfg)
	}
	if cfg.Session.Backend != "memory" {
		t.Errorf("sessions without a database should stay in memory, got %q", cfg.Session.Backend)
	}

	withDB := base()
	withDB.DB = "data/vietsub.db"
	if err := withDB.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	if withDB.Session.Backend != "sqlite" {
		t.Errorf("sessions should default to the database, got %q", withDB.Session.Backend)
	}
}
