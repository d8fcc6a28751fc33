// Package upstream talks to the university enrollment system: it owns the
// authenticated session, retrieves category listing pages and extracts
// per-course records out of the returned HTML. Everything else in the system
// depends only on the contracts exposed here, never on upstream URLs or
// markup, which change without notice.
package upstream

import "errors"

// ErrLogin is returned when the upstream explicitly rejects the login
// (bad credentials or an unexpected form). It is never retried within a
// single EnsureActive call; the next natural login attempt may try again.
var ErrLogin = errors.New("upstream login rejected")

// ErrNetwork covers transient transport failures (timeouts, refused
// connections, unexpected status codes). Callers treat it as a degraded,
// retryable condition rather than a fatal one.
var ErrNetwork = errors.New("upstream network failure")

// ErrNotFound is returned by Extract when the listing page is well-formed
// but does not contain the requested course. It is not a failure: the
// upstream listing only shows courses with open slots, so absence is the
// "still full" signal that keeps a watch alive.
var ErrNotFound = errors.New("course not present in listing")
