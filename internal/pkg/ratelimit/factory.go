package ratelimit

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// New constructs a Limiter for the configured driver. The redis client may be
// nil when driver is "memory".
func New(driver string, client *redis.Client, cfg Config) (Limiter, error) {
	switch driver {
	case "memory":
		return NewMemory(cfg, nil), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("ratelimit: driver %q requires a redis client", driver)
		}

		return NewRedis(client, cfg), nil
	default:
		return nil, fmt.Errorf("ratelimit: unsupported driver %q", driver)
	}
}
