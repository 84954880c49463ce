package manifest

import "github.com/hashicorp/hcl/v2"

// exposeBlock represents an `expose` block from a component manifest. The
// two labels carry the capability kind and the target path.
type exposeBlock struct {
	Kind   string   `hcl:"kind,label"`
	Target string   `hcl:"target,label"`
	From   string   `hcl:"from"`
	To     string   `hcl:"to,optional"`
	Rights []string `hcl:"rights,optional"`
}

// componentBlock represents a `component` block from a manifest file.
type componentBlock struct {
	Name    string         `hcl:"name,label"`
	URL     string         `hcl:"url,optional"`
	Program hcl.Expression `hcl:"program,optional"`
	Exposes []*exposeBlock `hcl:"expose,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

// fileRoot is a struct used to decode all top-level blocks from any file.
type fileRoot struct {
	Components []*componentBlock `hcl:"component,block"`
	Remain     hcl.Body          `hcl:",remain"`
}
