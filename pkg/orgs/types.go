package orgs

import (
	"time"
)

// OrgRole is the role a member holds within an organization.
type OrgRole string

const (
	RoleOwner        OrgRole = "owner"
	RoleCollaborator OrgRole = "collaborator"
	RoleMember       OrgRole = "member"
)

// Valid reports whether the role is one of the recognized values.
func (r OrgRole) Valid() bool {
	switch r {
	case RoleOwner, RoleCollaborator, RoleMember:
		return true
	}
	return false
}

// Organization represents a tenant grouping of users
type Organization struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creation_time"`

	MaintenanceMode         bool                     `json:"maintenance_mode"`
	MaintenanceNotification *MaintenanceNotification `json:"maintenance_notification,omitempty"`
}

// MaintenanceNotification is the org-wide banner shown ahead of maintenance.
type MaintenanceNotification struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message,omitempty"`
}

// OrgMember represents one user's membership in one organization
type OrgMember struct {
	UserID       string    `json:"user_id"`
	OrgID        string    `json:"org_id"`
	Role         OrgRole   `json:"role"`
	MemberSince  time.Time `json:"member_since"`
	Name         string    `json:"name,omitempty"`
	PrimaryEmail string    `json:"primary_email,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
}

// MembershipInvite is the reusable generic invite of an organization.
// An empty InvalidationTime means the invite is still redeemable.
type MembershipInvite struct {
	ID               string    `json:"id"`
	OrgID            string    `json:"org_id"`
	Role             OrgRole   `json:"role"`
	CreationTime     time.Time `json:"creation_time"`
	InvalidationTime string    `json:"invalidation_time,omitempty"`
}

// Valid reports whether the invite is still redeemable.
func (i *MembershipInvite) Valid() bool {
	return i.InvalidationTime == ""
}

// Project is the minimal view of a project the engine needs.
type Project struct {
	ID    string `json:"id"`
	OrgID string `json:"org_id"`
	Name  string `json:"name"`
}

// TimeoutSettings holds workspace timeout configuration.
type TimeoutSettings struct {
	Inactivity       *string `json:"inactivity,omitempty"`
	DenyUserTimeouts *bool   `json:"denyUserTimeouts,omitempty"`
}

// WelcomeMessage is shown to new members during onboarding. The resolved
// avatar URL is server-computed from FeaturedMemberID and never accepted
// from clients.
type WelcomeMessage struct {
	Enabled                         *bool   `json:"enabled,omitempty"`
	Message                         *string `json:"message,omitempty"`
	FeaturedMemberID                *string `json:"featuredMemberId,omitempty"`
	FeaturedMemberResolvedAvatarURL *string `json:"featuredMemberResolvedAvatarUrl,omitempty"`
}

// OnboardingSettings configures the new-member onboarding flow.
type OnboardingSettings struct {
	InternalLink            *string         `json:"internalLink,omitempty"`
	RecommendedRepositories []string        `json:"recommendedRepositories,omitempty"`
	WelcomeMessage          *WelcomeMessage `json:"welcomeMessage,omitempty"`
}

// OrganizationSettings is a sparse settings record. A nil field means
// "inherit the default", never "explicitly cleared"; updates apply only the
// fields present in the partial record.
type OrganizationSettings struct {
	WorkspaceSharingDisabled     *bool                `json:"workspaceSharingDisabled,omitempty"`
	DefaultWorkspaceImage        *string              `json:"defaultWorkspaceImage,omitempty"`
	AllowedWorkspaceClasses      []string             `json:"allowedWorkspaceClasses,omitempty"`
	PinnedEditorVersions         map[string]string    `json:"pinnedEditorVersions,omitempty"`
	RestrictedEditorNames        []string             `json:"restrictedEditorNames,omitempty"`
	DefaultRole                  *OrgRole             `json:"defaultRole,omitempty"`
	TimeoutSettings              *TimeoutSettings     `json:"timeoutSettings,omitempty"`
	RoleRestrictions             map[OrgRole][]string `json:"roleRestrictions,omitempty"`
	MaxParallelRunningWorkspaces *int                 `json:"maxParallelRunningWorkspaces,omitempty"`
	OnboardingSettings           *OnboardingSettings  `json:"onboardingSettings,omitempty"`
	AnnotateGitCommits           *bool                `json:"annotateGitCommits,omitempty"`
}

// TeamUpdate is a partial update applied to an Organization row.
type TeamUpdate struct {
	Name                    *string                  `json:"name,omitempty"`
	MaintenanceMode         *bool                    `json:"maintenance_mode,omitempty"`
	MaintenanceNotification *MaintenanceNotification `json:"maintenance_notification,omitempty"`
}

// ListOrganizationsRequest controls listing, ordering, and pagination.
type ListOrganizationsRequest struct {
	Offset     int    `json:"offset,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	OrderBy    string `json:"order_by,omitempty"`
	OrderDir   string `json:"order_dir,omitempty"`
	SearchTerm string `json:"search_term,omitempty"`

	// Scope is "member" (default) or "installation".
	Scope string `json:"scope,omitempty"`
}

// ListOrganizationsResponse is a page of organizations.
type ListOrganizationsResponse struct {
	Total int             `json:"total"`
	Rows  []*Organization `json:"rows"`
}

// AddMemberOpts tunes AddOrUpdateMember behavior.
type AddMemberOpts struct {
	// FlexibleRole permits policy (feature flag, org default role) to
	// override the requested role when it is not owner.
	FlexibleRole bool

	// SkipRoleUpdate stops after the membership upsert when the member
	// already existed, so repeat invite redemption never changes a role.
	SkipRoleUpdate bool
}

// helpers used across the package

func boolPtr(b bool) *bool       { return &b }
func strPtr(s string) *string    { return &s }
func intPtr(i int) *int          { return &i }
func rolePtr(r OrgRole) *OrgRole { return &r }
