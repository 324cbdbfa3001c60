// Package redis provides connection helpers for the Redis instance backing
// the protective controls: the dedup guard's marker store and the rate
// limiter's sliding-window counters.
//
// The package wraps the go-redis client and adds:
//
//   - A `Connect` helper which retries the connection using the supplied
//     configuration before giving up.
//   - A health-check closure to integrate Redis into liveness / readiness
//     probes.
//
// Configuration is described by the `Config` struct whose fields can be
// populated from environment variables via github.com/caarlos0/env.
//
// # Usage
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    // handle error, probably terminate the application
//	}
//	defer client.Close()
//
//	guard := dedup.New(dedup.NewRedisStore(client))
//
// # Errors
//
// The package defines sentinel errors (e.g. ErrRedisNotReady) that wrap the
// underlying go-redis errors using errors.Join, so callers can compare with
// errors.Is and still unwrap the cause.
package redis
