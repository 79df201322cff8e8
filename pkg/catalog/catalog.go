// Package catalog exposes installation-wide, read-only catalogs: the
// workspace classes available on this installation, the editor/version
// catalog, and the entitlement ceiling lookup. The organization engine
// consults these during settings validation.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// WorkspaceClass describes a workspace class available on the installation.
type WorkspaceClass struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default"`
}

// Classes lists the workspace classes of the installation.
type Classes interface {
	ListWorkspaceClasses(ctx context.Context, userID string) ([]WorkspaceClass, error)
}

// EditorOption describes one editor and the versions the installation offers.
type EditorOption struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions,omitempty"`
}

// Editors resolves editor names and versions.
type Editors interface {
	// ResolveVersions returns the known versions of the editor, or false if
	// the editor name is unknown.
	ResolveVersions(ctx context.Context, name string) ([]string, bool, error)

	// CheckEditorsAllowed fails with apperr.CodeBadRequest when any of the
	// names does not reference a known editor.
	CheckEditorsAllowed(ctx context.Context, userID string, names []string) error
}

// Entitlements looks up the caller's entitlement ceilings.
type Entitlements interface {
	// MaxParallelWorkspaces returns the ceiling for concurrently running
	// workspaces. Zero means unlimited.
	MaxParallelWorkspaces(ctx context.Context, userID, orgID string) (int, error)
}

// ParseWorkspaceClasses parses a comma-separated "id:displayName" list into
// workspace classes. The first entry becomes the installation default.
func ParseWorkspaceClasses(spec string) ([]WorkspaceClass, error) {
	var classes []WorkspaceClass
	for i, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		id, displayName, ok := strings.Cut(entry, ":")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid workspace class entry %q", entry)
		}
		classes = append(classes, WorkspaceClass{
			ID:          id,
			DisplayName: displayName,
			IsDefault:   i == 0,
		})
	}
	if len(classes) == 0 {
		return nil, fmt.Errorf("no workspace classes configured")
	}
	return classes, nil
}
