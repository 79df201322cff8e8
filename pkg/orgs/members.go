package orgs

import (
	"context"
	"time"

	"github.com/platinummonkey/cove/pkg/apperr"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/users"
)

// ListMembers lists the members of an organization
func (s *Service) ListMembers(ctx context.Context, actorID, orgID string) (members []*OrgMember, err error) {
	start := time.Now()
	defer func() { s.observe("list_members", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionReadMembers, orgID); err != nil {
		return nil, err
	}
	return s.store.FindMembersByTeam(ctx, orgID)
}

// AddOrUpdateMember adds a user to an organization or updates their role.
// An organization with no regular owner always assigns owner regardless of
// the requested role. The graph edge is mirrored after the row write and
// compensated when mirroring fails.
func (s *Service) AddOrUpdateMember(ctx context.Context, actorID, orgID, memberID string, requestedRole OrgRole, opts AddMemberOpts) (member *OrgMember, err error) {
	start := time.Now()
	defer func() { s.observe("add_or_update_member", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionWriteMembers, orgID); err != nil {
		return nil, err
	}
	if !requestedRole.Valid() {
		err = apperr.BadRequest("invalid role %q", requestedRole)
		return nil, err
	}
	if _, err = s.users.FindUserByID(ctx, memberID); err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		membersBefore, txErr := tx.FindMembersByTeam(ctx, orgID)
		if txErr != nil {
			return txErr
		}

		var priorRole *OrgRole
		hadPlaceholder := false
		for _, m := range membersBefore {
			if m.UserID == memberID {
				role := m.Role
				priorRole = &role
			}
			if m.UserID == users.BuiltinAdminUserID {
				hadPlaceholder = true
			}
		}
		hadRegularOwner := hasOtherRegularOwners(membersBefore, memberID)

		alreadyMember, txErr := tx.AddMemberToTeam(ctx, memberID, orgID)
		if txErr != nil {
			return txErr
		}
		if alreadyMember && opts.SkipRoleUpdate {
			member, txErr = tx.FindTeamMembership(ctx, memberID, orgID)
			return txErr
		}

		settings, txErr := tx.FindOrgSettings(ctx, orgID)
		if txErr != nil {
			return txErr
		}
		flagActive := false
		if opts.FlexibleRole {
			flagActive = s.flags.IsEnabled(ctx, FlagCollaboratorJoin, orgID)
		}
		effectiveRole := decideRole(membersBefore, memberID, requestedRole, opts.FlexibleRole, settings.DefaultRole, flagActive)

		if txErr = tx.SetTeamMemberRole(ctx, memberID, orgID, effectiveRole); txErr != nil {
			return txErr
		}
		if txErr = s.mirrorRole(ctx, orgID, memberID, effectiveRole, priorRole); txErr != nil {
			return txErr
		}

		// The placeholder admin steps aside once the first regular owner
		// exists. Best effort, never aborts the member write.
		if hadPlaceholder && !hadRegularOwner && effectiveRole == RoleOwner && memberID != users.BuiltinAdminUserID {
			s.retirePlaceholderAdmin(ctx, tx, orgID)
		}

		member, txErr = tx.FindTeamMembership(ctx, memberID, orgID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// mirrorRole writes the effective role edge to the authorizer and drops the
// prior role edge. On failure the just-granted edge is removed and the prior
// edge restored before the error is surfaced.
func (s *Service) mirrorRole(ctx context.Context, orgID, memberID string, effectiveRole OrgRole, priorRole *OrgRole) error {
	undo := func() error {
		if rmErr := s.authorizer.RemoveOrganizationRole(ctx, orgID, memberID, string(effectiveRole)); rmErr != nil {
			return rmErr
		}
		if priorRole != nil {
			return s.authorizer.AddOrganizationRole(ctx, orgID, memberID, string(*priorRole))
		}
		return nil
	}

	if err := s.authorizer.AddOrganizationRole(ctx, orgID, memberID, string(effectiveRole)); err != nil {
		s.compensate(ctx, "add_or_update_member", undo)
		return err
	}
	if priorRole != nil && *priorRole != effectiveRole {
		if err := s.authorizer.RemoveOrganizationRole(ctx, orgID, memberID, string(*priorRole)); err != nil {
			s.compensate(ctx, "add_or_update_member", undo)
			return err
		}
	}
	return nil
}

func (s *Service) retirePlaceholderAdmin(ctx context.Context, tx Store, orgID string) {
	if err := tx.RemoveMemberFromTeam(ctx, users.BuiltinAdminUserID, orgID); err != nil {
		s.logger.WithError(err).WithField("org_id", orgID).Warn("failed to remove placeholder admin membership")
		return
	}
	if err := s.authorizer.RemoveOrganizationRole(ctx, orgID, users.BuiltinAdminUserID, string(RoleOwner)); err != nil {
		s.logger.WithError(err).WithField("org_id", orgID).Warn("failed to remove placeholder admin role edge")
	}
}

// RemoveOrganizationMember removes a member. Self-removal needs read_info;
// removing someone else needs write_members. Removing the last owner fails
// with a conflict. Org-owned accounts are deleted along with the membership.
func (s *Service) RemoveOrganizationMember(ctx context.Context, actorID, orgID, memberID string) (err error) {
	start := time.Now()
	defer func() { s.observe("remove_organization_member", start, err) }()

	action := authz.ActionWriteMembers
	if actorID == memberID {
		action = authz.ActionReadInfo
	}
	if err = s.checkOrgPermission(ctx, actorID, action, orgID); err != nil {
		return err
	}

	var removedRole *OrgRole
	err = s.store.Transaction(ctx, func(tx Store) error {
		members, txErr := tx.FindMembersByTeam(ctx, orgID)
		if txErr != nil {
			return txErr
		}

		var target *OrgMember
		otherOwnerExists := false
		for _, m := range members {
			if m.UserID == memberID {
				target = m
				continue
			}
			if m.Role == RoleOwner {
				otherOwnerExists = true
			}
		}
		if target == nil {
			return apperr.NotFound("membership for user %s in organization %s not found", memberID, orgID)
		}
		if target.Role == RoleOwner && !otherOwnerExists {
			return apperr.Conflict("cannot remove the last owner of organization %s", orgID)
		}

		user, txErr := s.users.FindUserByID(ctx, memberID)
		if txErr != nil {
			return txErr
		}
		if user.IsOrganizationOwned() && user.OrganizationID == orgID {
			if txErr = s.users.DeleteUser(ctx, actorID, memberID); txErr != nil {
				return txErr
			}
		}

		if txErr = tx.RemoveMemberFromTeam(ctx, memberID, orgID); txErr != nil {
			return txErr
		}

		role := target.Role
		removedRole = &role
		if txErr = s.authorizer.RemoveOrganizationRole(ctx, orgID, memberID, string(role)); txErr != nil {
			return txErr
		}
		return nil
	})
	if err != nil {
		if removedRole != nil {
			s.compensate(ctx, "remove_organization_member", func() error {
				return s.authorizer.AddOrganizationRole(ctx, orgID, memberID, string(*removedRole))
			})
		}
		return err
	}

	s.track(ctx, actorID, "team_member_removed", map[string]interface{}{
		"team_id":         orgID,
		"removed_user_id": memberID,
	})
	return nil
}
