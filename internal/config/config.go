// Package config provides on-disk TOML configuration for dgrpc-based
// programs: the Discord application id, the serialization pool sizes,
// request timeout, event queue capacity, and the optional OAuth2
// sub-config. Distinct from dgrpc.Options, the in-memory struct passed
// directly to dgrpc.NewClient: Config is the persisted superset a
// long-running host process loads once at startup and converts via
// [Config.Options].
package config

//go:generate go run ../../cmd/gendoc

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"go.alderamin.dev/dgrpc"
	"go.alderamin.dev/dgrpc/internal/atomicfile"
	"go.alderamin.dev/dgrpc/internal/migrate"
	"go.alderamin.dev/dgrpc/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level on-disk configuration for a dgrpc
// client program.
type Config struct {
	// Version is the config schema version used for migrations.
	Version int `toml:"version"`
	// Client holds the Discord application identity used in the handshake.
	Client ClientConfig `toml:"client"`
	// Serde holds serialization worker pool sizing.
	Serde SerdeConfig `toml:"serde"`
	// Pipeline holds request/event-queue behavior.
	Pipeline PipelineConfig `toml:"pipeline"`
	// OAuth2 holds optional OAuth2 authorization settings. Nil when
	// the client only sends unauthenticated commands.
	OAuth2 *OAuth2Config `toml:"oauth2,omitempty"`
	// Metrics holds Prometheus metrics endpoint settings.
	Metrics MetricsConfig `toml:"metrics"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ClientConfig holds the Discord application identity.
type ClientConfig struct {
	// AppID is the Discord application ID sent in the handshake payload.
	AppID string `toml:"app_id"`
}

// SerdeConfig holds dedicated-thread worker pool sizing for the
// encode (outbound) and decode (inbound) serialization pools.
type SerdeConfig struct {
	// SerializerThreads is the outbound encode pool's worker count.
	SerializerThreads int `toml:"serializer_threads"`
	// SerializerChannelBuffer is the outbound encode pool's job queue depth.
	SerializerChannelBuffer int `toml:"serializer_channel_buffer"`
	// DeserializerThreads is the inbound decode pool's worker count.
	DeserializerThreads int `toml:"deserializer_threads"`
	// DeserializerChannelBuffer is the inbound decode pool's job queue depth.
	DeserializerChannelBuffer int `toml:"deserializer_channel_buffer"`
}

// PipelineConfig holds request/event-queue timing and capacity.
type PipelineConfig struct {
	// RequestTimeoutSeconds bounds how long a request waits for a
	// correlated response before failing with Timeout.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds"`
	// EventQueueCapacity bounds the number of buffered push events.
	EventQueueCapacity int `toml:"event_queue_capacity"`
}

// OAuth2Config holds settings for the optional OAuth2 token manager.
type OAuth2Config struct {
	// ClientSecret is the Discord application's OAuth2 client secret.
	ClientSecret string `toml:"client_secret,omitempty"`
	// Scopes lists the OAuth2 scopes requested during authorization.
	Scopes []string `toml:"scopes,omitempty"`
	// ScopeAllowlist restricts which scopes Scopes may request, as
	// doublestar glob patterns matched against each requested scope
	// (e.g. "rpc.*" allows "rpc.voice.read" and "rpc.notifications.read"
	// without enumerating every dotted Discord scope by hand). A nil or
	// empty allowlist permits any scope, matching the zero value's
	// "fully open" default.
	ScopeAllowlist []string `toml:"scope_allowlist,omitempty"`
	// ConfigPath is the token file's on-disk path. Empty uses
	// paths.DefaultRoot()'s token file.
	ConfigPath string `toml:"config_path,omitempty"`
	// RefreshWindowSeconds is the early-refresh margin before expiry.
	RefreshWindowSeconds int `toml:"refresh_window_seconds"`
}

// AllowsScope reports whether scope matches one of ScopeAllowlist's glob
// patterns. An empty allowlist allows every scope. Invalid patterns are
// logged and skipped; first match wins.
func (o OAuth2Config) AllowsScope(scope string) bool {
	if len(o.ScopeAllowlist) == 0 {
		return true
	}
	for _, pattern := range o.ScopeAllowlist {
		matched, err := doublestar.Match(pattern, scope)
		if err != nil {
			slog.Warn("invalid oauth2 scope_allowlist pattern", "pattern", pattern, "error", err)
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// MetricsConfig holds Prometheus metrics HTTP endpoint settings.
type MetricsConfig struct {
	// Enabled starts the /metrics and /ready HTTP endpoints.
	Enabled bool `toml:"enabled"`
	// Listen is the address the metrics server binds to.
	Listen string `toml:"listen"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fail).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with the client's documented
// defaults: 4 serializer threads, a 16-deep serializer channel, 32
// deserializer threads, a 256-deep deserializer channel, and a 30 second
// request timeout. OAuth2 is nil (unauthenticated commands only) until
// a caller opts in.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Config.CurrentVersion,
		Client:  ClientConfig{},
		Serde: SerdeConfig{
			SerializerThreads:         4,
			SerializerChannelBuffer:   16,
			DeserializerThreads:       32,
			DeserializerChannelBuffer: 256,
		},
		Pipeline: PipelineConfig{
			RequestTimeoutSeconds: 30,
			EventQueueCapacity:    1024,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  "127.0.0.1:9469",
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating the reference
// dgrpc.default.toml. The OAuth2 section is included as an active section
// so the file documents the option even though DefaultConfig leaves it nil.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Client.AppID = "1276759902551015485"
	cfg.OAuth2 = &OAuth2Config{
		Scopes:               []string{"identify", "rpc"},
		RefreshWindowSeconds: 60,
	}
	return cfg
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)

	shouldMigrate := version != migrate.Config.CurrentVersion
	if shouldMigrate {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Config.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	if migrate.Config.HasDev() {
		var devErr error
		data, devErr = migrate.Config.RunDev(data)
		if devErr != nil {
			return nil, fmt.Errorf("apply dev transforms: %w", devErr)
		}
		shouldMigrate = true
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Config.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true,
	"error": true, "fail": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Client.AppID == "" {
		return fmt.Errorf("client.app_id must not be empty")
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, error, or fail", c.Log.Level)
	}

	if c.Serde.SerializerThreads <= 0 {
		return fmt.Errorf("serde.serializer_threads must be > 0, got %d", c.Serde.SerializerThreads)
	}
	if c.Serde.SerializerChannelBuffer < 0 {
		return fmt.Errorf("serde.serializer_channel_buffer must be >= 0, got %d", c.Serde.SerializerChannelBuffer)
	}
	if c.Serde.DeserializerThreads <= 0 {
		return fmt.Errorf("serde.deserializer_threads must be > 0, got %d", c.Serde.DeserializerThreads)
	}
	if c.Serde.DeserializerChannelBuffer < 0 {
		return fmt.Errorf("serde.deserializer_channel_buffer must be >= 0, got %d", c.Serde.DeserializerChannelBuffer)
	}

	if c.Pipeline.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("pipeline.request_timeout_seconds must be > 0, got %d", c.Pipeline.RequestTimeoutSeconds)
	}
	if c.Pipeline.EventQueueCapacity <= 0 {
		return fmt.Errorf("pipeline.event_queue_capacity must be > 0, got %d", c.Pipeline.EventQueueCapacity)
	}

	if c.OAuth2 != nil {
		if c.OAuth2.RefreshWindowSeconds < 0 {
			return fmt.Errorf("oauth2.refresh_window_seconds must be >= 0, got %d", c.OAuth2.RefreshWindowSeconds)
		}
		for _, scope := range c.OAuth2.Scopes {
			if !c.OAuth2.AllowsScope(scope) {
				return fmt.Errorf("oauth2.scopes: %q not permitted by scope_allowlist", scope)
			}
		}
	}

	return nil
}

// ///////////////////////////////////////////////
// Options conversion
// ///////////////////////////////////////////////

// Options converts the persisted configuration into the in-memory
// dgrpc.Options struct consumed by dgrpc.NewClient. OAuth2 is populated
// only when the config's oauth2 section is present.
func (c *Config) Options() dgrpc.Options {
	opts := dgrpc.Options{
		AppID:                     c.Client.AppID,
		SerializerThreads:         c.Serde.SerializerThreads,
		SerializerChannelBuffer:   c.Serde.SerializerChannelBuffer,
		DeserializerThreads:       c.Serde.DeserializerThreads,
		DeserializerChannelBuffer: c.Serde.DeserializerChannelBuffer,
		RequestTimeout:            time.Duration(c.Pipeline.RequestTimeoutSeconds) * time.Second,
		EventQueueCapacity:        c.Pipeline.EventQueueCapacity,
	}

	if c.OAuth2 != nil {
		tokenPath := c.OAuth2.ConfigPath
		if tokenPath == "" {
			if root, err := paths.DefaultRoot(); err == nil {
				tokenPath = paths.DataDir{Root: root}.Token()
			}
		}
		opts.OAuth2 = &dgrpc.OAuth2Options{
			ClientSecret:  c.OAuth2.ClientSecret,
			Scopes:        c.OAuth2.Scopes,
			TokenPath:     tokenPath,
			RefreshWindow: time.Duration(c.OAuth2.RefreshWindowSeconds) * time.Second,
		}
	}

	return opts
}
