// Package config holds the tunables of the layout engine and the services
// around it.
//
// Configuration is resolved with the priority environment > file > defaults:
//
//	cfg, err := config.Load("flowlayout.toml") // defaults + file
//	err = config.FromEnv(&cfg)                 // FLOWLAYOUT_* overlay
//
// Always start from [Default]: boolean switches such as [Optimize.Layer]
// default to true and cannot be recovered from a zero value.
package config

import (
	"time"
)

// Default values.
const (
	DefaultBaseHeight       = 120.0
	DefaultMaxLayers        = 20
	DefaultBaseY            = 300.0
	DefaultMinSpacing       = 100.0
	DefaultPreferredSpacing = 200.0
	DefaultCacheSize        = 100
	DefaultCacheTTL         = 5 * time.Minute
	DefaultRedisPrefix      = "flowlayout:"
	DefaultDebounceDelay    = 300 * time.Millisecond
	DefaultDebounceMaxWait  = 2 * time.Second
	DefaultLockID           = "layout_execution"
	DefaultLockTimeout      = 5 * time.Second
	DefaultMaxLocks         = 100

	// EnforcedMinSpacing is the floor applied to Node.MinSpacing when
	// resolving overlaps.
	EnforcedMinSpacing = 150.0
)

// Config is the complete engine configuration.
type Config struct {
	Layer    Layer    `toml:"layer" yaml:"layer" json:"layer"`
	Node     Node     `toml:"node" yaml:"node" json:"node"`
	Canvas   Canvas   `toml:"canvas" yaml:"canvas" json:"canvas"`
	Cache    Cache    `toml:"cache" yaml:"cache" json:"cache"`
	Debounce Debounce `toml:"debounce" yaml:"debounce" json:"debounce"`
	Lock     Lock     `toml:"lock" yaml:"lock" json:"lock"`
	Filter   Filter   `toml:"filter" yaml:"filter" json:"filter"`
	Optimize Optimize `toml:"optimize" yaml:"optimize" json:"optimize"`
}

// Layer controls vertical placement.
type Layer struct {
	BaseHeight float64 `toml:"base_height" yaml:"base_height" json:"base_height" validate:"gt=0"`
	MaxLayers  int     `toml:"max_layers" yaml:"max_layers" json:"max_layers" validate:"gte=1,lte=10000"`
	BaseY      float64 `toml:"base_y" yaml:"base_y" json:"base_y"`
}

// Node controls horizontal spacing.
type Node struct {
	MinSpacing       float64 `toml:"min_spacing" yaml:"min_spacing" json:"min_spacing" validate:"gt=0"`
	PreferredSpacing float64 `toml:"preferred_spacing" yaml:"preferred_spacing" json:"preferred_spacing" validate:"gtefield=MinSpacing"`
}

// Canvas describes the drawing surface.
type Canvas struct {
	CenterX float64 `toml:"center_x" yaml:"center_x" json:"center_x"`
}

// Cache configures the layout result cache.
type Cache struct {
	Enabled bool     `toml:"enabled" yaml:"enabled" json:"enabled"`
	MaxSize int      `toml:"max_size" yaml:"max_size" json:"max_size" validate:"gte=1"`
	TTL     Duration `toml:"ttl" yaml:"ttl" json:"ttl" validate:"gte=0"`
	Redis   Redis    `toml:"redis" yaml:"redis" json:"redis"`
}

// Redis configures the optional shared cache tier. An empty Addr disables it.
type Redis struct {
	Addr     string `toml:"addr" yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
	Password string `toml:"password" yaml:"password" json:"-"`
	DB       int    `toml:"db" yaml:"db" json:"db" validate:"gte=0"`
	Prefix   string `toml:"prefix" yaml:"prefix" json:"prefix"`
}

// Debounce configures request coalescing.
type Debounce struct {
	Delay   Duration `toml:"delay" yaml:"delay" json:"delay" validate:"gte=0"`
	MaxWait Duration `toml:"max_wait" yaml:"max_wait" json:"max_wait" validate:"gtefield=Delay"`
}

// Lock configures the preview lock protocol.
type Lock struct {
	ID          string   `toml:"id" yaml:"id" json:"id" validate:"required"`
	Timeout     Duration `toml:"timeout" yaml:"timeout" json:"timeout" validate:"gt=0"`
	WaitTimeout Duration `toml:"wait_timeout" yaml:"wait_timeout" json:"wait_timeout" validate:"gte=0"`
	MaxLocks    int      `toml:"max_locks" yaml:"max_locks" json:"max_locks" validate:"gte=1"`
}

// Filter holds additional preprocessing exclusion rules. Each rule is a
// boolean expression over id, type and data.
type Filter struct {
	Exclude []string `toml:"exclude" yaml:"exclude" json:"exclude" validate:"dive,required"`
}

// Optimize toggles the optional pipeline stages.
type Optimize struct {
	Layer    bool `toml:"layer" yaml:"layer" json:"layer"`
	Global   bool `toml:"global" yaml:"global" json:"global"`
	LiveSync bool `toml:"live_sync" yaml:"live_sync" json:"live_sync"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Layer: Layer{
			BaseHeight: DefaultBaseHeight,
			MaxLayers:  DefaultMaxLayers,
			BaseY:      DefaultBaseY,
		},
		Node: Node{
			MinSpacing:       DefaultMinSpacing,
			PreferredSpacing: DefaultPreferredSpacing,
		},
		Cache: Cache{
			Enabled: true,
			MaxSize: DefaultCacheSize,
			TTL:     Duration(DefaultCacheTTL),
			Redis:   Redis{Prefix: DefaultRedisPrefix},
		},
		Debounce: Debounce{
			Delay:   Duration(DefaultDebounceDelay),
			MaxWait: Duration(DefaultDebounceMaxWait),
		},
		Lock: Lock{
			ID:       DefaultLockID,
			Timeout:  Duration(DefaultLockTimeout),
			MaxLocks: DefaultMaxLocks,
		},
		Optimize: Optimize{Layer: true, Global: true},
	}
}

// SetDefaults fills zero-valued numeric and string fields with defaults.
// Boolean switches are left untouched.
func (c *Config) SetDefaults() {
	if c.Layer.BaseHeight == 0 {
		c.Layer.BaseHeight = DefaultBaseHeight
	}
	if c.Layer.MaxLayers == 0 {
		c.Layer.MaxLayers = DefaultMaxLayers
	}
	if c.Node.MinSpacing == 0 {
		c.Node.MinSpacing = DefaultMinSpacing
	}
	if c.Node.PreferredSpacing == 0 {
		c.Node.PreferredSpacing = DefaultPreferredSpacing
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = DefaultCacheSize
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = Duration(DefaultCacheTTL)
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = DefaultRedisPrefix
	}
	if c.Debounce.Delay == 0 {
		c.Debounce.Delay = Duration(DefaultDebounceDelay)
	}
	if c.Debounce.MaxWait == 0 {
		c.Debounce.MaxWait = Duration(DefaultDebounceMaxWait)
	}
	if c.Lock.ID == "" {
		c.Lock.ID = DefaultLockID
	}
	if c.Lock.Timeout == 0 {
		c.Lock.Timeout = Duration(DefaultLockTimeout)
	}
	if c.Lock.MaxLocks == 0 {
		c.Lock.MaxLocks = DefaultMaxLocks
	}
}

// EnforcedSpacing returns the minimum horizontal gap between two nodes of
// the same layer: max(Node.MinSpacing, [EnforcedMinSpacing]).
func (c Config) EnforcedSpacing() float64 {
	return max(c.Node.MinSpacing, EnforcedMinSpacing)
}

// LockWaitTimeout returns how long lock acquisition may block. A zero
// WaitTimeout means the lock timeout.
func (c Config) LockWaitTimeout() time.Duration {
	if c.Lock.WaitTimeout > 0 {
		return c.Lock.WaitTimeout.Std()
	}
	return c.Lock.Timeout.Std()
}
