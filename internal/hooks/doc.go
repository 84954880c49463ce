// Package hooks implements the orchestrator's lifecycle event contract: a
// tagged Event type addressed by component moniker, the Hook subscriber
// interface, and a per-realm Registry that delivers events to interested
// subscribers in registration order.
//
// Dispatch is best effort. A failing subscriber never prevents delivery to
// the next one; the aggregate error is returned to the caller for logging
// only and is never retried.
package hooks
