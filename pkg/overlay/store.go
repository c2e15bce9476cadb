package overlay

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/cuemby/burrow/pkg/types"
)

//go:embed templates
var embedded embed.FS

// TemplateError reports a missing or malformed template file
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error { return e.Err }

// Store holds the base templates and per-role overlays.
//
// Layout:
//
//	base/single-node.yml
//	base/multi-node.yml
//	roles/<overlay>.yml
type Store struct {
	fsys fs.FS
}

// NewStore creates a store reading templates from fsys
func NewStore(fsys fs.FS) *Store {
	return &Store{fsys: fsys}
}

// DefaultStore returns the store compiled into the binary
func DefaultStore() *Store {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(fmt.Sprintf("embedded templates: %v", err))
	}
	return NewStore(sub)
}

// Base returns the base template for the cluster mode. A missing base
// template is a fatal configuration error.
func (s *Store) Base(singleNode bool) (*Structured, error) {
	name := "multi-node.yml"
	if singleNode {
		name = "single-node.yml"
	}
	p := path.Join("base", name)

	data, err := fs.ReadFile(s.fsys, p)
	if err != nil {
		return nil, &TemplateError{Path: p, Err: err}
	}
	return ParseStructured(p, data)
}

// Role returns the overlay for role given the elected seed family, or nil
// when the role has no overlay. Single-node clusters never get one.
func (s *Store) Role(role types.NodeRole, seed types.SeedRole) (*Structured, error) {
	name := RoleOverlayName(role, seed)
	if name == "" {
		return nil, nil
	}
	p := path.Join("roles", name+".yml")

	data, err := fs.ReadFile(s.fsys, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &TemplateError{Path: p, Err: err}
	}
	return ParseStructured(p, data)
}

// RoleOverlayName maps a role to its overlay file name. Data nodes stay
// cluster-manager eligible when there are no dedicated managers.
func RoleOverlayName(role types.NodeRole, seed types.SeedRole) string {
	switch role {
	case types.NodeRoleSingleNode:
		return ""
	case types.NodeRoleSeed:
		return "seed-" + string(seed)
	case types.NodeRoleData:
		if seed == types.SeedRoleData {
			return "data-manager-eligible"
		}
		return "data"
	default:
		return string(role)
	}
}
