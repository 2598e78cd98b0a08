package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/flowlayout/pkg/cache"
	"github.com/matzehuels/flowlayout/pkg/config"
)

// redisTimeout bounds connecting to and clearing the shared tier.
const redisTimeout = 5 * time.Second

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the layout cache",
		Long: `Inspect or clear the layout cache.

The in-process tier lives only as long as one command or server, so these
commands act on the shared Redis tier configured under [cache.redis].`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cacheInfoCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached layout from the shared tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			rc := cfg.Cache.Redis
			if rc.Addr == "" {
				printInfo("No shared cache tier configured")
				printDetail("Set cache.redis.addr or %sREDIS_ADDR", config.EnvPrefix)
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), redisTimeout)
			defer cancel()
			r, err := connectRedis(ctx, cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			if err := r.Clear(ctx); err != nil {
				return err
			}
			printSuccess("Cleared cached layouts")
			printDetail("Redis %s, prefix %q", rc.Addr, rc.Prefix)
			return nil
		},
	}
}

// cacheInfoCommand creates the "cache info" subcommand.
func (c *CLI) cacheInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cache tiers and their settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			cc := cfg.Cache

			printKeyValue("Enabled", fmt.Sprint(cc.Enabled))
			if !cc.Enabled {
				return nil
			}
			ttl := "none"
			if cc.TTL > 0 {
				ttl = cc.TTL.Std().String()
			}
			printKeyValue("Local tier", fmt.Sprintf("LRU, up to %d entries", cc.MaxSize))
			printKeyValue("TTL", ttl)

			if cc.Redis.Addr == "" {
				printKeyValue("Shared tier", "none")
				return nil
			}
			printKeyValue("Shared tier", fmt.Sprintf("Redis %s db %d", cc.Redis.Addr, cc.Redis.DB))
			printKeyValue("Prefix", cc.Redis.Prefix)

			ctx, cancel := context.WithTimeout(cmd.Context(), redisTimeout)
			defer cancel()
			r, err := connectRedis(ctx, cfg)
			if err != nil {
				printKeyValue("Reachable", "no")
				printWarning("%v", err)
				return nil
			}
			defer r.Close()
			printKeyValue("Reachable", "yes")
			return nil
		},
	}
}

func connectRedis(ctx context.Context, cfg config.Config) (*cache.Redis, error) {
	rc := cfg.Cache.Redis
	return cache.NewRedis(ctx, cache.RedisConfig{
		Addr:     rc.Addr,
		Password: rc.Password,
		DB:       rc.DB,
		Prefix:   rc.Prefix,
		TTL:      cfg.Cache.TTL.Std(),
	})
}
