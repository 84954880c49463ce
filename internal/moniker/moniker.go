package moniker

import (
	"slices"
	"strings"
)

// Moniker is the structured representation of a unique component instance
// identifier. It is modeled as a path from the root of the tree, broken
// into segments.
type Moniker struct {
	path []string
}

// Root returns the moniker of the root of the component tree.
func Root() Moniker {
	return Moniker{}
}

// New builds a moniker from the given path segments.
func New(segments ...string) Moniker {
	return Moniker{path: slices.Clone(segments)}
}

// Child returns the moniker of a direct child of m with the given name.
func (m Moniker) Child(name string) Moniker {
	path := make([]string, 0, len(m.path)+1)
	path = append(path, m.path...)
	path = append(path, name)
	return Moniker{path: path}
}

// Parent returns the moniker one level up the tree. The parent of the root
// is the root itself.
func (m Moniker) Parent() Moniker {
	if len(m.path) == 0 {
		return m
	}
	return Moniker{path: slices.Clone(m.path[:len(m.path)-1])}
}

// IsRoot reports whether m identifies the root of the tree.
func (m Moniker) IsRoot() bool {
	return len(m.path) == 0
}

// Path returns a copy of the moniker's path segments.
func (m Moniker) Path() []string {
	return slices.Clone(m.path)
}

// String serializes the moniker into its canonical path string
// representation, e.g. "/core/network".
func (m Moniker) String() string {
	if len(m.path) == 0 {
		return "/"
	}
	return "/" + strings.Join(m.path, "/")
}

// Equal checks for value equality between two monikers.
func (m Moniker) Equal(other Moniker) bool {
	return slices.Equal(m.path, other.path)
}
