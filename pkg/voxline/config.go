package voxline

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/spf13/viper"

	"github.com/tradeup-ai/voxline/pkg/capabilities"
	"github.com/tradeup-ai/voxline/pkg/configutil"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Bootstrap     BootstrapConfig     `mapstructure:"bootstrap"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Capabilities  CapabilitiesConfig  `mapstructure:"capabilities"`
	Search        SearchConfig        `mapstructure:"search"`
	Tools         ToolsConfig         `mapstructure:"tools"`
	TurnLog       TurnLogConfig       `mapstructure:"turnlog"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type BootstrapConfig struct {
	URL        string `mapstructure:"url"`
	MaxRetries int    `mapstructure:"max_retries"`
	BackoffMS  int    `mapstructure:"backoff_ms"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

type AudioConfig struct {
	SampleRate       int  `mapstructure:"sample_rate"`
	Channels         int  `mapstructure:"channels"`
	FrameMS          int  `mapstructure:"frame_ms"`
	EchoCancellation bool `mapstructure:"echo_cancellation"`
	NoiseSuppression bool `mapstructure:"noise_suppression"`
}

type CapabilitiesConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	TimeoutMS        int    `mapstructure:"timeout_ms"`
	BreakerThreshold int    `mapstructure:"breaker_threshold"`
	BreakerCooldownS int    `mapstructure:"breaker_cooldown_s"`
}

type SearchConfig struct {
	MinUsefulChars int      `mapstructure:"min_useful_chars"`
	NoHitPhrases   []string `mapstructure:"no_hit_phrases"`
}

type ToolsConfig struct {
	Concurrency int `mapstructure:"concurrency"`
	QueueSize   int `mapstructure:"queue_size"`
}

type TurnLogConfig struct {
	URL        string `mapstructure:"url"`
	BufferSize int    `mapstructure:"buffer_size"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

type ObservabilityConfig struct {
	ArtifactsDir string `mapstructure:"artifacts_dir"`
	RecordAudio  bool   `mapstructure:"record_audio"`
	MetricsFile  string `mapstructure:"metrics_file"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("bootstrap.max_retries", 2)
	v.SetDefault("bootstrap.backoff_ms", 250)
	v.SetDefault("bootstrap.timeout_ms", 10000)
	v.SetDefault("audio.sample_rate", 24000)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("audio.frame_ms", 100)
	v.SetDefault("audio.echo_cancellation", true)
	v.SetDefault("audio.noise_suppression", true)
	v.SetDefault("capabilities.timeout_ms", 15000)
	v.SetDefault("capabilities.breaker_threshold", 3)
	v.SetDefault("capabilities.breaker_cooldown_s", 30)
	v.SetDefault("search.min_useful_chars", 50)
	v.SetDefault("search.no_hit_phrases", capabilities.DefaultSearchPolicy().NoHitPhrases)
	v.SetDefault("tools.concurrency", 4)
	v.SetDefault("tools.queue_size", 64)
	v.SetDefault("turnlog.buffer_size", 64)
	v.SetDefault("turnlog.timeout_ms", 10000)
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.record_audio", false)
	v.SetDefault("observability.metrics_file", "")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(reflect.ValueOf(&cfg))

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.Bootstrap.URL, "bootstrap.url"); err != nil {
		return err
	}
	if err := configutil.RequireString(c.Capabilities.BaseURL, "capabilities.base_url"); err != nil {
		return err
	}
	if err := configutil.RequireString(c.TurnLog.URL, "turnlog.url"); err != nil {
		return err
	}
	return nil
}

func (c BootstrapConfig) Backoff() time.Duration { return time.Duration(c.BackoffMS) * time.Millisecond }
func (c BootstrapConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

func (c AudioConfig) FrameDuration() time.Duration { return time.Duration(c.FrameMS) * time.Millisecond }

func (c CapabilitiesConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

func (c CapabilitiesConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownS) * time.Second
}

func (c TurnLogConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

// expandEnvStrings walks the config and expands ${VAR} references so
// secrets can stay out of the file.
func expandEnvStrings(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandEnvStrings(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandEnvStrings(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandEnvStrings(v.Index(i))
		}
	}
}
