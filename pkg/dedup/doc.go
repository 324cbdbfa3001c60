// Package dedup provides short-window idempotent deduplication of inbound
// events, keyed on a logical identity tuple. Retried webhooks and double
// deliveries carry the same identity (tenant, subject, channel) and are
// suppressed as duplicates for the duration of the window.
//
// The guard is deliberately availability-biased: if the marker store is down
// it fails open and lets the event through, since a duplicate side effect is
// acceptable and a wrongly blocked event is silent data loss.
//
// # Usage
//
//	guard := dedup.New(dedup.NewRedisStore(client), dedup.WithWindow(30*time.Minute))
//
//	if guard.CheckAndMark(ctx, tenantID, phone, "website") {
//	    return nil // already seen, skip
//	}
//	// first sighting, enqueue the work
package dedup
