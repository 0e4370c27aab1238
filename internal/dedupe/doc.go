// Package dedupe provides a replay cache for idempotent requests. The first
// successful result for a key is remembered for a configurable window and
// returned to later requests with the same key instead of running them again.
package dedupe
