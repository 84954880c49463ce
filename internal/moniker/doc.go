// Package moniker defines the hierarchical identifier that names one
// component instance within the orchestration tree.
//
// A moniker is an ordered list of path segments, rendered canonically as a
// slash-separated absolute path, e.g. "/core/network/dhcp". The root of the
// tree is the empty moniker, rendered as "/". Monikers are stable for the
// lifetime of an instance and are compared by value.
package moniker
