package voxline

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
bootstrap:
  url: http://localhost:8080/session
capabilities:
  base_url: http://localhost:8081
turnlog:
  url: http://localhost:8082/turns
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Fatalf("logging defaults wrong: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Audio.SampleRate != 24000 || cfg.Audio.FrameMS != 100 {
		t.Fatalf("audio defaults wrong: %+v", cfg.Audio)
	}
	if cfg.Search.MinUsefulChars != 50 {
		t.Fatalf("search threshold default = %d", cfg.Search.MinUsefulChars)
	}
	if len(cfg.Search.NoHitPhrases) == 0 {
		t.Fatalf("no-hit phrase defaults missing")
	}
	if cfg.Tools.Concurrency != 4 {
		t.Fatalf("tools concurrency default = %d", cfg.Tools.Concurrency)
	}
	if cfg.Bootstrap.Backoff() != 250*time.Millisecond {
		t.Fatalf("bootstrap backoff = %v", cfg.Bootstrap.Backoff())
	}
	if cfg.Audio.FrameDuration() != 100*time.Millisecond {
		t.Fatalf("frame duration = %v", cfg.Audio.FrameDuration())
	}
}

func TestLoadConfigRequiresEndpoints(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
capabilities:
  base_url: http://localhost:8081
turnlog:
  url: http://localhost:8082/turns
`))
	if err == nil {
		t.Fatalf("missing bootstrap.url must fail validation")
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("CAPS_KEY", "secret-token")
	cfg, err := LoadConfig(writeConfig(t, `
bootstrap:
  url: http://localhost:8080/session
capabilities:
  base_url: http://localhost:8081
  api_key: ${CAPS_KEY}
turnlog:
  url: http://localhost:8082/turns
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Capabilities.APIKey != "secret-token" {
		t.Fatalf("api key not expanded: %q", cfg.Capabilities.APIKey)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
log_level: debug
audio:
  frame_ms: 120
search:
  min_useful_chars: 80
  no_hit_phrases: ["zero hits"]
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log level = %q", cfg.LogLevel)
	}
	if cfg.Audio.FrameMS != 120 {
		t.Fatalf("frame_ms = %d", cfg.Audio.FrameMS)
	}
	if cfg.Search.MinUsefulChars != 80 || len(cfg.Search.NoHitPhrases) != 1 {
		t.Fatalf("search overrides not applied: %+v", cfg.Search)
	}
}
