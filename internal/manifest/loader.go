package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/componentd/internal/ctxlog"
	"github.com/vk/componentd/internal/rights"
)

// Loader parses HCL component manifests into ComponentDecl values.
type Loader struct{}

// NewLoader creates a new manifest loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every manifest file reachable from the given paths and returns
// the component declarations in file, then block, order.
func (l *Loader) Load(ctx context.Context, paths ...string) ([]*ComponentDecl, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Manifest loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered manifest files.", "count", len(files))

	parser := hclparse.NewParser()
	var decls []*ComponentDecl
	seen := make(map[string]struct{})

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", file, diags)
		}

		for _, block := range root.Components {
			if _, dup := seen[block.Name]; dup {
				return nil, fmt.Errorf("manifest %s: duplicate component %q", file, block.Name)
			}
			seen[block.Name] = struct{}{}

			decl, err := l.translateComponent(block)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", file, err)
			}
			decls = append(decls, decl)
		}
	}

	logger.Debug("Manifest loading complete.", "components", len(decls))
	return decls, nil
}

// translateComponent converts a decoded component block into the immutable
// declaration model, applying validation that cannot be expressed in the
// HCL schema itself.
func (l *Loader) translateComponent(block *componentBlock) (*ComponentDecl, error) {
	decl := &ComponentDecl{
		Name:    block.Name,
		URL:     block.URL,
		Program: cty.NilVal,
	}

	if block.Program != nil {
		val, diags := block.Program.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("component %q: invalid program attribute: %w", block.Name, diags)
		}
		decl.Program = val
	}

	targets := make(map[string]struct{})
	for _, e := range block.Exposes {
		expose, err := l.translateExpose(e)
		if err != nil {
			return nil, fmt.Errorf("component %q: %w", block.Name, err)
		}
		if _, dup := targets[expose.TargetPath]; dup {
			return nil, fmt.Errorf("component %q: duplicate expose target path %q", block.Name, expose.TargetPath)
		}
		targets[expose.TargetPath] = struct{}{}
		decl.Exposes = append(decl.Exposes, expose)
	}

	return decl, nil
}

func (l *Loader) translateExpose(block *exposeBlock) (ExposeDecl, error) {
	expose := ExposeDecl{
		SourcePath: block.From,
		TargetPath: block.Target,
	}

	switch block.Kind {
	case "directory":
		expose.Kind = KindDirectory
	case "protocol":
		expose.Kind = KindProtocol
	default:
		return ExposeDecl{}, fmt.Errorf("expose %q: unknown capability kind %q", block.Target, block.Kind)
	}

	switch block.To {
	case "", "framework":
		expose.Target = TargetFramework
	case "parent":
		expose.Target = TargetParent
	default:
		return ExposeDecl{}, fmt.Errorf("expose %q: unknown expose target %q", block.Target, block.To)
	}

	if len(block.Rights) > 0 {
		if expose.Kind != KindDirectory {
			return ExposeDecl{}, fmt.Errorf("expose %q: rights are only valid on directory capabilities", block.Target)
		}
		mask, err := rights.Parse(block.Rights)
		if err != nil {
			return ExposeDecl{}, fmt.Errorf("expose %q: %w", block.Target, err)
		}
		expose.Rights = &mask
	}

	return expose, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // It's not an error if a configured path doesn't exist.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					if _, wasSeen := seen[p]; !wasSeen {
						allFiles = append(allFiles, p)
						seen[p] = struct{}{}
					}
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			if _, wasSeen := seen[path]; !wasSeen {
				allFiles = append(allFiles, path)
				seen[path] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
