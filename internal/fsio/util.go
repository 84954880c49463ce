package fsio

import (
	"fmt"
	"strings"
)

// CanonicalizePath normalizes an absolute namespace path into the relative
// form open calls accept: the leading slash is stripped and the root becomes
// ".".
func CanonicalizePath(path string) string {
	if path == "/" || path == "" {
		return "."
	}
	return strings.TrimPrefix(path, "/")
}

// NodeToDirectory converts a node connection into a directory connection.
// It fails when the connection was not opened as a directory.
func NodeToDirectory(c *Conn) (*DirConn, error) {
	if c == nil || !c.dir {
		return nil, fmt.Errorf("fsio: connection is not a directory")
	}
	return &DirConn{Conn: c}, nil
}
