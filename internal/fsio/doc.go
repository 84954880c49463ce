// Package fsio implements the in-process directory/file transport that
// components use to serve their outgoing namespace to the orchestrator.
//
// The package models the open-with-describe handshake: opening a node with
// OpenFlagDescribe causes the serving side to emit exactly one OnOpen
// confirmation carrying a status code before any further traffic on the
// connection. Callers must consume that confirmation before treating the
// node as usable.
//
// The client surface is Conn (a node connection) and DirConn (a directory
// connection supporting Open and Clone). The serving surface is Tree, an
// in-memory outgoing namespace with per-path behavior, which also records
// every open request it receives so callers can inspect requested rights.
package fsio
