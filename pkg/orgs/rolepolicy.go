package orgs

import (
	"context"

	"github.com/platinummonkey/cove/pkg/users"
)

// FlagCollaboratorJoin downgrades flexible-role joins to collaborator when
// active for the organization.
const FlagCollaboratorJoin = "collaborator_join"

// FeatureFlags answers per-organization policy flag lookups. Implementations
// must treat lookup failures as "inactive".
type FeatureFlags interface {
	IsEnabled(ctx context.Context, flag string, orgID string) bool
}

// StaticFlags is a FeatureFlags backed by a fixed map, keyed by flag name.
// A flag maps to the set of organization IDs it is active for; an empty set
// means active everywhere.
type StaticFlags map[string][]string

// IsEnabled reports whether the flag is active for the organization
func (f StaticFlags) IsEnabled(ctx context.Context, flag string, orgID string) bool {
	orgIDs, ok := f[flag]
	if !ok {
		return false
	}
	if len(orgIDs) == 0 {
		return true
	}
	for _, id := range orgIDs {
		if id == orgID {
			return true
		}
	}
	return false
}

// hasOtherRegularOwners reports whether any member other than the target
// holds the owner role. The built-in installation admin placeholder does not
// count as a regular owner.
func hasOtherRegularOwners(members []*OrgMember, targetUserID string) bool {
	for _, m := range members {
		if m.UserID == users.BuiltinAdminUserID || m.UserID == targetUserID {
			continue
		}
		if m.Role == RoleOwner {
			return true
		}
	}
	return false
}

// decideRole resolves the effective role for a membership write. Rules, in
// priority order: no other regular owner forces owner; an explicit owner
// request wins; a non-flexible request is applied verbatim; an active
// collaborator-join flag downgrades to collaborator; otherwise the
// organization default role applies when configured, else the request.
func decideRole(members []*OrgMember, targetUserID string, requested OrgRole, flexible bool, orgDefault *OrgRole, flagActive bool) OrgRole {
	if !hasOtherRegularOwners(members, targetUserID) {
		return RoleOwner
	}
	if requested == RoleOwner {
		return RoleOwner
	}
	if !flexible {
		return requested
	}
	if flagActive {
		return RoleCollaborator
	}
	if orgDefault != nil && orgDefault.Valid() {
		return *orgDefault
	}
	return requested
}
