// Package ratelimit provides sliding window rate limiting with pluggable
// storage backends and a composite guard for inbound webhook traffic.
//
// The sliding window algorithm tracks individual request timestamps, which
// makes the limit exact at window boundaries and lets a denied caller learn
// precisely when the oldest entry expires via Result.RetryAfter.
//
// # Basic usage
//
//	limiter, err := ratelimit.NewSlidingWindow(ratelimit.NewRedisStore(client), 100, time.Minute)
//	if err != nil {
//	    return err
//	}
//
//	res, err := limiter.Allow(ctx, userID)
//	if err != nil {
//	    return err
//	}
//	if !res.Allowed {
//	    return fmt.Errorf("%w: retry in %s", ratelimit.ErrRateLimitExceeded, res.RetryAfter())
//	}
//
// # Webhook guard
//
// WebhookGuard layers a per-IP and a per-client limit over one store and
// rejects a request when either trips. It never returns an error: if the
// store is unreachable the guard logs a warning and lets the request through.
//
//	guard, err := ratelimit.NewWebhookGuard(store,
//	    ratelimit.WithIPLimit(100),
//	    ratelimit.WithClientLimit(60),
//	)
//
//	v := guard.Check(ctx, remoteIP, clientID)
//	if !v.Allowed {
//	    w.Header().Set("Retry-After", strconv.Itoa(int(v.RetryAfter.Seconds())))
//	    w.WriteHeader(http.StatusTooManyRequests)
//	    return
//	}
package ratelimit
