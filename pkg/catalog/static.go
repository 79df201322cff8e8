package catalog

import (
	"context"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// StaticCatalog serves workspace classes, editors, and entitlements from
// in-memory configuration. It implements Classes, Editors, and Entitlements.
type StaticCatalog struct {
	classes            []WorkspaceClass
	editors            map[string][]string
	maxParallelDefault int
}

// DefaultEditors returns the editor catalog shipped with the installation
func DefaultEditors() []EditorOption {
	return []EditorOption{
		{Name: "code", Versions: []string{"stable", "insiders"}},
		{Name: "intellij", Versions: []string{"stable", "latest"}},
		{Name: "goland", Versions: []string{"stable", "latest"}},
		{Name: "vim", Versions: []string{"stable"}},
	}
}

// NewStaticCatalog creates a StaticCatalog
func NewStaticCatalog(classes []WorkspaceClass, editors []EditorOption, maxParallelDefault int) *StaticCatalog {
	editorIndex := make(map[string][]string, len(editors))
	for _, e := range editors {
		editorIndex[e.Name] = e.Versions
	}
	return &StaticCatalog{
		classes:            classes,
		editors:            editorIndex,
		maxParallelDefault: maxParallelDefault,
	}
}

// ListWorkspaceClasses lists the workspace classes of the installation
func (c *StaticCatalog) ListWorkspaceClasses(ctx context.Context, userID string) ([]WorkspaceClass, error) {
	out := make([]WorkspaceClass, len(c.classes))
	copy(out, c.classes)
	return out, nil
}

// ResolveVersions returns the known versions of the editor
func (c *StaticCatalog) ResolveVersions(ctx context.Context, name string) ([]string, bool, error) {
	versions, ok := c.editors[name]
	return versions, ok, nil
}

// CheckEditorsAllowed validates that every name references a known editor
func (c *StaticCatalog) CheckEditorsAllowed(ctx context.Context, userID string, names []string) error {
	for _, name := range names {
		if _, ok := c.editors[name]; !ok {
			return apperr.BadRequest("unknown editor %q", name)
		}
	}
	return nil
}

// MaxParallelWorkspaces returns the entitlement ceiling for the caller
func (c *StaticCatalog) MaxParallelWorkspaces(ctx context.Context, userID, orgID string) (int, error) {
	return c.maxParallelDefault, nil
}
