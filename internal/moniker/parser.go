package moniker

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex is used to validate a single segment of a moniker path.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// isValidSegmentName checks for undesirable but technically valid names.
func isValidSegmentName(name string) bool {
	if name == "." || name == ".." || name == "-" {
		return false
	}
	return true
}

// Parse creates a Moniker by parsing its canonical string representation.
func Parse(raw string) (Moniker, error) {
	if raw == "" {
		return Moniker{}, fmt.Errorf("moniker cannot be empty")
	}
	if !strings.HasPrefix(raw, "/") {
		return Moniker{}, fmt.Errorf("moniker must be an absolute path: %q", raw)
	}
	if raw == "/" {
		return Root(), nil
	}

	m := Moniker{}
	for _, segment := range strings.Split(raw[1:], "/") {
		if segment == "" {
			return Moniker{}, fmt.Errorf("moniker path contains empty segment: %q", raw)
		}
		if !segmentRegex.MatchString(segment) {
			return Moniker{}, fmt.Errorf("invalid moniker segment format: %q", segment)
		}
		if !isValidSegmentName(segment) {
			return Moniker{}, fmt.Errorf("invalid moniker segment name: %q", segment)
		}
		m.path = append(m.path, segment)
	}

	return m, nil
}
