// Package limiter bounds how often a user may initiate new queries. The
// contract is a sliding one-minute window: entries older than the window are
// evicted lazily on each check and a request is allowed iff fewer than the
// limit remain, appending its own timestamp only when allowed.
package limiter

import "context"

// Limiter gates inbound user commands.
type Limiter interface {
	Allow(ctx context.Context, owner string) bool
}
