package model

import (
	"errors"
	"fmt"

	"github.com/vk/componentd/internal/moniker"
)

// ErrDeclNotResolved is returned when an operation needs a realm's resolved
// declaration before the manifest has been resolved.
var ErrDeclNotResolved = errors.New("component declaration not resolved")

// OpenDirectoryError reports that a node in a component's outgoing
// namespace failed the open-with-describe readiness handshake: the
// confirmation never arrived, carried a non-OK status, or the connection
// closed first.
type OpenDirectoryError struct {
	Moniker moniker.Moniker
	Path    string
}

// NewOpenDirectoryError builds an OpenDirectoryError for the given instance
// and path.
func NewOpenDirectoryError(m moniker.Moniker, path string) *OpenDirectoryError {
	return &OpenDirectoryError{Moniker: m, Path: path}
}

// Error implements the error interface.
func (e *OpenDirectoryError) Error() string {
	return fmt.Sprintf("could not open directory %q for component %s", e.Path, e.Moniker)
}
