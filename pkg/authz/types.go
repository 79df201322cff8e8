package authz

import "context"

// SystemUserID is the internal actor used for engine-initiated operations
// (invite redemption, placeholder-admin cleanup). It bypasses permission
// checks and never appears as a membership row.
const SystemUserID = "00000000-0000-0000-0000-000000000000"

// ResourceKind identifies the kind of resource an edge points at.
type ResourceKind string

const (
	ResourceOrganization ResourceKind = "organization"
	ResourceProject      ResourceKind = "project"
	ResourceUser         ResourceKind = "user"
)

// OrgAction is an action checked against an organization.
type OrgAction string

const (
	ActionReadInfo      OrgAction = "read_info"
	ActionWriteInfo     OrgAction = "write_info"
	ActionReadMembers   OrgAction = "read_members"
	ActionWriteMembers  OrgAction = "write_members"
	ActionInviteMembers OrgAction = "invite_members"
	ActionReadSettings  OrgAction = "read_settings"
	ActionWriteSettings OrgAction = "write_settings"
	ActionDelete        OrgAction = "delete"
	ActionMaintenance   OrgAction = "maintenance"
)

// UserAction is an action checked against a user resource.
type UserAction string

const (
	UserActionReadInfo UserAction = "read_info"
)

// Member pairs a user with the role edge to establish. Declared here so the
// graph layer does not depend on the membership packages.
type Member struct {
	UserID string
	Role   string
}

// rolePermissions maps a membership role to the organization actions it grants.
var rolePermissions = map[string][]OrgAction{
	"owner": {
		ActionReadInfo, ActionWriteInfo, ActionReadMembers, ActionWriteMembers,
		ActionInviteMembers, ActionReadSettings, ActionWriteSettings,
		ActionDelete, ActionMaintenance,
	},
	"collaborator": {
		ActionReadInfo, ActionReadMembers, ActionInviteMembers, ActionReadSettings,
	},
	"member": {
		ActionReadInfo, ActionReadMembers, ActionInviteMembers, ActionReadSettings,
	},
}

// roleGrants reports whether a role grants an action on an organization.
func roleGrants(role string, action OrgAction) bool {
	for _, a := range rolePermissions[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Authorizer answers permission checks and mutates the relationship graph.
type Authorizer interface {
	// HasPermissionOnOrganization reports whether the user may perform the
	// action on the organization.
	HasPermissionOnOrganization(ctx context.Context, userID string, action OrgAction, orgID string) (bool, error)

	// CheckPermissionOnOrganization fails with apperr.CodePermissionDenied
	// when the user may not perform the action.
	CheckPermissionOnOrganization(ctx context.Context, userID string, action OrgAction, orgID string) error

	// CheckPermissionOnUser fails with apperr.CodePermissionDenied when the
	// user may not perform the action on the target user.
	CheckPermissionOnUser(ctx context.Context, userID string, action UserAction, targetUserID string) error

	// AddOrganization establishes the owner edge plus edges for every given
	// member and project. Idempotent.
	AddOrganization(ctx context.Context, ownerID, orgID string, members []Member, projectIDs []string) error

	// AddOrganizationRole establishes a role edge for a member. Idempotent.
	AddOrganizationRole(ctx context.Context, orgID, memberID, role string) error

	// RemoveOrganizationRole removes a role edge for a member. Idempotent.
	RemoveOrganizationRole(ctx context.Context, orgID, memberID, role string) error

	// RemoveAllRelationships removes every edge pointing at the resource.
	RemoveAllRelationships(ctx context.Context, actorID string, kind ResourceKind, resourceID string) error
}
