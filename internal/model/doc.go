// Package model holds the runtime state of the component tree: one Realm
// per component instance, keyed by moniker, plus the lifecycle operations
// that move an instance between created, running, stopped, and destroyed.
//
// Lock discipline: a realm's declaration state and execution state are
// guarded by independent mutexes, and every operation acquires at most one
// of them at a time, releasing it before any call that could wait on a
// different realm. Absence of a realm at lookup means "torn down", not an
// error.
package model
