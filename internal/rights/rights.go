// Package rights models the access-rights mask attached to directory-like
// capability declarations and its translation into transport open flags.
package rights

import (
	"fmt"
	"strings"

	"github.com/vk/componentd/internal/fsio"
)

// Rights is a bitmask of access rights on a capability node.
type Rights uint32

const (
	Connect Rights = 1 << iota
	Read
	Write
	Execute
)

// ReadRights is the default mask for directory-like capabilities that do not
// declare one.
const ReadRights = Connect | Read

// WriteRights is the mask used for protocol-like capabilities, which are
// opened with write intent.
const WriteRights = Connect | Write

// Parse builds a rights mask from its manifest list form, e.g.
// ["read", "execute"].
func Parse(names []string) (Rights, error) {
	var r Rights
	for _, name := range names {
		switch strings.ToLower(name) {
		case "connect":
			r |= Connect
		case "read":
			r |= Read
		case "write":
			r |= Write
		case "execute":
			r |= Execute
		default:
			return 0, fmt.Errorf("unknown right: %q", name)
		}
	}
	if r == 0 {
		return 0, fmt.Errorf("rights list cannot be empty")
	}
	return r, nil
}

// Flags converts the mask into the open-flag bits the transport accepts.
func (r Rights) Flags() fsio.OpenFlags {
	var f fsio.OpenFlags
	if r&Read != 0 {
		f |= fsio.OpenRightReadable
	}
	if r&Write != 0 {
		f |= fsio.OpenRightWritable
	}
	if r&Execute != 0 {
		f |= fsio.OpenRightExecutable
	}
	return f
}

// Has reports whether every bit of other is present in r.
func (r Rights) Has(other Rights) bool {
	return r&other == other
}

// String renders the mask in manifest list order.
func (r Rights) String() string {
	var names []string
	if r&Connect != 0 {
		names = append(names, "connect")
	}
	if r&Read != 0 {
		names = append(names, "read")
	}
	if r&Write != 0 {
		names = append(names, "write")
	}
	if r&Execute != 0 {
		names = append(names, "execute")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}
