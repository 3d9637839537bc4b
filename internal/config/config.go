// Package config loads and validates the gateway's AppConfig using
// spf13/viper for layered file/env/flag sourcing and
// go-playground/validator for struct-tag validation, the same stack
// the teacher wires for its own config/viper packages (kept as a
// direct dependency rather than the teacher's own config wrapper,
// which pulled in component registration machinery this gateway does
// not need - see DESIGN.md).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// AppConfig is the gateway's full runtime configuration, loaded once
// at startup and handed by value to every component that needs it.
type AppConfig struct {
	ListenAddress string `mapstructure:"listen_address" validate:"required,hostname_port"`

	// Hybrid cache tuning (internal/cache/hybrid).
	MemorySlots            int    `mapstructure:"memory_slots" validate:"required,min=16"`
	DiskBytes              int64  `mapstructure:"disk_bytes" validate:"required,min=1048576"`
	DiskPath               string `mapstructure:"disk_path" validate:"required"`
	CachedMutableTTLSecs   int    `mapstructure:"cached_mutable_ttl_seconds" validate:"required,min=1"`
	NegativeTTLMultiplier  float64 `mapstructure:"negative_ttl_multiplier" validate:"required,gt=0,lte=1"`

	// Command executor tuning (internal/command).
	QueueBufferSize  int `mapstructure:"queue_buffer_size" validate:"required,min=1"`
	MaxRetryAttempts int `mapstructure:"max_retry_attempts" validate:"required,min=1,max=5"`

	// Chunk stream pipeline tuning (internal/stream).
	DownloadThreads int `mapstructure:"download_threads" validate:"required,min=1,max=256"`
	StreamChunkSize int `mapstructure:"stream_chunk_size" validate:"required,min=1024"`

	// Network harness (internal/netclient).
	BootstrapPeers       []string      `mapstructure:"bootstrap_peers" validate:"required,min=1,dive,required"`
	IdleDisconnect       time.Duration `mapstructure:"idle_disconnect" validate:"required"`

	// Access control (internal/resolver).
	AccessListAddress string `mapstructure:"access_list_address"`

	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=trace debug info warn error"`
	LogJSON   bool   `mapstructure:"log_json"`
}

// CachedMutableTTL returns CachedMutableTTLSecs as a time.Duration.
func (c AppConfig) CachedMutableTTL() time.Duration {
	return time.Duration(c.CachedMutableTTLSecs) * time.Second
}

// NegativeTTL returns the TTL applied to negative-cache entries, a
// fraction of the positive mutable TTL.
func (c AppConfig) NegativeTTL() time.Duration {
	return time.Duration(float64(c.CachedMutableTTL()) * c.NegativeTTLMultiplier)
}

func defaults(v *viper.Viper) {
	v.SetDefault("listen_address", "127.0.0.1:8080")
	v.SetDefault("memory_slots", 2048)
	v.SetDefault("disk_bytes", 1<<30)
	v.SetDefault("disk_path", "./anttp-cache")
	v.SetDefault("cached_mutable_ttl_seconds", 30)
	v.SetDefault("negative_ttl_multiplier", 0.1)
	v.SetDefault("queue_buffer_size", 256)
	v.SetDefault("max_retry_attempts", 5)
	v.SetDefault("download_threads", 8)
	v.SetDefault("stream_chunk_size", 4*1024*1024)
	v.SetDefault("idle_disconnect", 5*time.Minute)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// Load builds a viper instance layering a config file (if present), an
// ANTTP_-prefixed environment, and explicit defaults, then decodes and
// validates it into an AppConfig.
func Load(configPath string) (AppConfig, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("anttp")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("config: read %s: %w", configPath, err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: decode: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

var validate = validator.New()

// Validate runs the struct-tag validation rules on an AppConfig
// without going through Load, useful for tests that build an
// AppConfig literal directly.
func Validate(cfg AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
