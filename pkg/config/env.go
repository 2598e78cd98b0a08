package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	flerrors "github.com/matzehuels/flowlayout/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by [FromEnv].
const EnvPrefix = "FLOWLAYOUT_"

type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

func floatVar(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func intVar(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = i
		return nil
	}
}

func boolVar(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

func durationVar(dst func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = Duration(d)
		return nil
	}
}

func stringVar(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

var envBindings = []envBinding{
	{"LAYER_BASE_HEIGHT", floatVar(func(c *Config) *float64 { return &c.Layer.BaseHeight })},
	{"LAYER_MAX_LAYERS", intVar(func(c *Config) *int { return &c.Layer.MaxLayers })},
	{"LAYER_BASE_Y", floatVar(func(c *Config) *float64 { return &c.Layer.BaseY })},
	{"NODE_MIN_SPACING", floatVar(func(c *Config) *float64 { return &c.Node.MinSpacing })},
	{"NODE_PREFERRED_SPACING", floatVar(func(c *Config) *float64 { return &c.Node.PreferredSpacing })},
	{"CANVAS_CENTER_X", floatVar(func(c *Config) *float64 { return &c.Canvas.CenterX })},
	{"CACHE_ENABLED", boolVar(func(c *Config) *bool { return &c.Cache.Enabled })},
	{"CACHE_MAX_SIZE", intVar(func(c *Config) *int { return &c.Cache.MaxSize })},
	{"CACHE_TTL", durationVar(func(c *Config) *Duration { return &c.Cache.TTL })},
	{"REDIS_ADDR", stringVar(func(c *Config) *string { return &c.Cache.Redis.Addr })},
	{"REDIS_PASSWORD", stringVar(func(c *Config) *string { return &c.Cache.Redis.Password })},
	{"REDIS_DB", intVar(func(c *Config) *int { return &c.Cache.Redis.DB })},
	{"REDIS_PREFIX", stringVar(func(c *Config) *string { return &c.Cache.Redis.Prefix })},
	{"DEBOUNCE_DELAY", durationVar(func(c *Config) *Duration { return &c.Debounce.Delay })},
	{"DEBOUNCE_MAX_WAIT", durationVar(func(c *Config) *Duration { return &c.Debounce.MaxWait })},
	{"LOCK_ID", stringVar(func(c *Config) *string { return &c.Lock.ID })},
	{"LOCK_TIMEOUT", durationVar(func(c *Config) *Duration { return &c.Lock.Timeout })},
	{"LOCK_WAIT_TIMEOUT", durationVar(func(c *Config) *Duration { return &c.Lock.WaitTimeout })},
	{"LOCK_MAX_LOCKS", intVar(func(c *Config) *int { return &c.Lock.MaxLocks })},
	{"OPTIMIZE_LAYER", boolVar(func(c *Config) *bool { return &c.Optimize.Layer })},
	{"OPTIMIZE_GLOBAL", boolVar(func(c *Config) *bool { return &c.Optimize.Global })},
	{"OPTIMIZE_LIVE_SYNC", boolVar(func(c *Config) *bool { return &c.Optimize.LiveSync })},
	{"FILTER_EXCLUDE", func(c *Config, v string) error {
		c.Filter.Exclude = nil
		for _, rule := range strings.Split(v, ";") {
			if rule = strings.TrimSpace(rule); rule != "" {
				c.Filter.Exclude = append(c.Filter.Exclude, rule)
			}
		}
		return nil
	}},
}

// FromEnv overlays FLOWLAYOUT_* environment variables onto cfg.
// FLOWLAYOUT_FILTER_EXCLUDE holds semicolon-separated rules.
func FromEnv(cfg *Config) error {
	return ApplyEnv(cfg, os.LookupEnv)
}

// ApplyEnv overlays variables resolved by lookup onto cfg. The first
// unparsable value aborts with an INVALID_CONFIG error.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.set(cfg, strings.TrimSpace(v)); err != nil {
			return flerrors.Wrap(flerrors.ErrCodeInvalidConfig, err, "%s%s", EnvPrefix, b.name)
		}
	}
	return nil
}
