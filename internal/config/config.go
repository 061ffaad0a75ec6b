// Package config loads the core's non-credential runtime settings from the
// environment. Per-stage model credentials are resolved separately by the
// modelselect package, which must walk an ordered list of variable names
// rather than bind to one static field.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the environment-derived settings the Manager and its
// collaborators need at construction time.
type Config struct {
	// StageTimeout bounds a single stage adapter invocation (spec §4.6,
	// default 120s).
	StageTimeout time.Duration `env:"ESTIMO_STAGE_TIMEOUT" envDefault:"120s"`
	// RequestTimeout bounds an entire Manager.Process call (spec §5, default
	// 15 minutes).
	RequestTimeout time.Duration `env:"ESTIMO_REQUEST_TIMEOUT" envDefault:"15m"`
	// BroadcastBufferSize is read from the environment but is not passed to
	// either broadcaster: their per-subscriber outbound buffer is fixed at
	// 64 events, after which the oldest queued event is dropped.
	BroadcastBufferSize int `env:"ESTIMO_BROADCAST_BUFFER" envDefault:"64"`
	// ModelCatalogPath optionally points at a YAML file overriding the
	// embedded default Model Selector catalog. Empty means "use the
	// embedded default".
	ModelCatalogPath string `env:"ESTIMO_MODEL_CATALOG_PATH"`
	// RedisAddr, when non-empty, switches the Event Broadcaster to
	// broadcaster.RedisBroadcaster instead of the in-memory default.
	RedisAddr string `env:"ESTIMO_REDIS_ADDR"`
}

// Load reads Config from the process environment, applying the defaults
// declared on the struct tags for anything unset.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
