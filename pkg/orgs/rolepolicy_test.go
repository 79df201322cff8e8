package orgs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/cove/pkg/users"
)

func member(userID string, role OrgRole) *OrgMember {
	return &OrgMember{UserID: userID, Role: role}
}

func TestDecideRole(t *testing.T) {
	ownerAndMember := []*OrgMember{member("u1", RoleOwner), member("u2", RoleMember)}

	tests := []struct {
		name       string
		members    []*OrgMember
		target     string
		requested  OrgRole
		flexible   bool
		orgDefault *OrgRole
		flagActive bool
		want       OrgRole
	}{
		{
			name:      "no members forces owner",
			members:   nil,
			target:    "u1",
			requested: RoleMember,
			want:      RoleOwner,
		},
		{
			name:      "placeholder admin is not a regular owner",
			members:   []*OrgMember{member(users.BuiltinAdminUserID, RoleOwner)},
			target:    "u1",
			requested: RoleCollaborator,
			want:      RoleOwner,
		},
		{
			name:      "target's own ownership does not count",
			members:   []*OrgMember{member("u1", RoleOwner)},
			target:    "u1",
			requested: RoleMember,
			want:      RoleOwner,
		},
		{
			name:       "owner request wins over policy",
			members:    ownerAndMember,
			target:     "u2",
			requested:  RoleOwner,
			flexible:   true,
			flagActive: true,
			want:       RoleOwner,
		},
		{
			name:       "non-flexible request applied verbatim",
			members:    ownerAndMember,
			target:     "u3",
			requested:  RoleMember,
			flagActive: true,
			want:       RoleMember,
		},
		{
			name:       "flag downgrades flexible request",
			members:    ownerAndMember,
			target:     "u3",
			requested:  RoleMember,
			flexible:   true,
			flagActive: true,
			want:       RoleCollaborator,
		},
		{
			name:       "org default applies to flexible request",
			members:    ownerAndMember,
			target:     "u3",
			requested:  RoleMember,
			flexible:   true,
			orgDefault: rolePtr(RoleCollaborator),
			want:       RoleCollaborator,
		},
		{
			name:      "flexible request without policy keeps request",
			members:   ownerAndMember,
			target:    "u3",
			requested: RoleMember,
			flexible:  true,
			want:      RoleMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decideRole(tt.members, tt.target, tt.requested, tt.flexible, tt.orgDefault, tt.flagActive)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasOtherRegularOwners(t *testing.T) {
	members := []*OrgMember{
		member(users.BuiltinAdminUserID, RoleOwner),
		member("u1", RoleOwner),
		member("u2", RoleMember),
	}

	assert.True(t, hasOtherRegularOwners(members, "u2"))
	assert.False(t, hasOtherRegularOwners(members, "u1"))
}

func TestStaticFlags(t *testing.T) {
	ctx := context.Background()
	flags := StaticFlags{
		"everywhere": nil,
		"scoped":     {"org-1"},
	}

	assert.True(t, flags.IsEnabled(ctx, "everywhere", "org-9"))
	assert.True(t, flags.IsEnabled(ctx, "scoped", "org-1"))
	assert.False(t, flags.IsEnabled(ctx, "scoped", "org-2"))
	assert.False(t, flags.IsEnabled(ctx, "unknown", "org-1"))
}
