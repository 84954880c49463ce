package manifest

import (
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/componentd/internal/rights"
)

// CapabilityKind distinguishes the two capability shapes a component can
// expose: a subtree of its outgoing namespace, or a single protocol node.
type CapabilityKind int

const (
	KindDirectory CapabilityKind = iota
	KindProtocol
)

// String returns the manifest spelling of the kind.
func (k CapabilityKind) String() string {
	switch k {
	case KindDirectory:
		return "directory"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// ExposeTarget identifies who an exposed capability is offered to.
type ExposeTarget int

const (
	// TargetFramework exposes the capability upward to the orchestration
	// framework itself.
	TargetFramework ExposeTarget = iota
	// TargetParent exposes the capability to the parent component.
	TargetParent
)

// ExposeDecl describes one capability a component exposes: where it lives in
// the component's outgoing namespace, where it becomes visible, and with
// which rights. Rights is nil when the manifest did not specify a mask;
// consumers apply kind-specific defaults.
type ExposeDecl struct {
	Kind       CapabilityKind
	SourcePath string
	TargetPath string
	Rights     *rights.Rights
	Target     ExposeTarget
}

// ComponentDecl is the resolved, immutable declaration of one component.
type ComponentDecl struct {
	Name string
	URL  string
	// Program carries the component's program configuration as written in
	// the manifest. It is cty.NilVal when the manifest has no program
	// attribute.
	Program cty.Value
	// Exposes lists the component's exposed capabilities in declaration
	// order.
	Exposes []ExposeDecl
}

// ExposesToFramework returns the subset of the expose list offered to the
// framework, preserving declaration order.
func (d *ComponentDecl) ExposesToFramework() []ExposeDecl {
	var out []ExposeDecl
	for _, e := range d.Exposes {
		if e.Target == TargetFramework {
			out = append(out, e)
		}
	}
	return out
}
