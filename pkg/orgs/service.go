package orgs

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/cove/pkg/analytics"
	"github.com/platinummonkey/cove/pkg/apperr"
	"github.com/platinummonkey/cove/pkg/authz"
	"github.com/platinummonkey/cove/pkg/billing"
	"github.com/platinummonkey/cove/pkg/catalog"
	"github.com/platinummonkey/cove/pkg/observability"
	"github.com/platinummonkey/cove/pkg/users"
)

// ServiceDeps bundles the collaborators of the organization engine.
type ServiceDeps struct {
	Store        Store
	Authorizer   authz.Authorizer
	Users        users.Service
	Billing      billing.Service
	Analytics    analytics.Tracker
	Projects     Projects
	Classes      catalog.Classes
	Editors      catalog.Editors
	Entitlements catalog.Entitlements
	Flags        FeatureFlags
	Logger       *observability.Logger
	Metrics      *observability.Metrics
}

// Service orchestrates organization membership across the relational store
// and the authorization graph. Relational writes commit first; graph edges
// are compensated when a later step fails.
type Service struct {
	store        Store
	authorizer   authz.Authorizer
	users        users.Service
	billing      billing.Service
	analytics    analytics.Tracker
	projects     Projects
	classes      catalog.Classes
	editors      catalog.Editors
	entitlements catalog.Entitlements
	flags        FeatureFlags
	logger       *observability.Logger
	metrics      *observability.Metrics
}

// NewService creates a new Service
func NewService(deps ServiceDeps) *Service {
	return &Service{
		store:        deps.Store,
		authorizer:   deps.Authorizer,
		users:        deps.Users,
		billing:      deps.Billing,
		analytics:    deps.Analytics,
		projects:     deps.Projects,
		classes:      deps.Classes,
		editors:      deps.Editors,
		entitlements: deps.Entitlements,
		flags:        deps.Flags,
		logger:       deps.Logger,
		metrics:      deps.Metrics,
	}
}

// observe records operation metrics. outcome is "ok" or the error code.
func (s *Service) observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperr.CodeOf(err))
	}
	s.metrics.ObserveOperation(operation, outcome, time.Since(start).Seconds())
}

// track emits an analytics event. Failures are logged, never propagated.
func (s *Service) track(ctx context.Context, userID, name string, properties map[string]interface{}) {
	event := analytics.Event{UserID: userID, Name: name, Properties: properties}
	if err := s.analytics.Track(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event", name).Warn("failed to track event")
	}
}

// compensate runs an authorizer compensation after a partial failure. A
// failing compensation is logged, not retried; the caller surfaces the
// original error.
func (s *Service) compensate(ctx context.Context, operation string, fn func() error) {
	s.metrics.CompensationsTotal.WithLabelValues(operation).Inc()
	if err := fn(); err != nil {
		s.logger.WithError(err).WithField("operation", operation).Error("authorizer compensation failed, stores may be inconsistent")
	}
}

// CreateOrganization creates an organization with the actor as sole owner,
// provisions a fresh generic invite, and emits a creation event.
func (s *Service) CreateOrganization(ctx context.Context, actorID, name string) (org *Organization, err error) {
	start := time.Now()
	defer func() { s.observe("create_organization", start, err) }()

	if actorID == "" {
		return nil, apperr.NotAuthenticated("actor required")
	}
	actor, err := s.users.FindUserByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	mayCreate, err := s.users.MayCreateOrganization(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("failed to check organization creation policy: %w", err)
	}
	if !mayCreate {
		err = apperr.PermissionDenied("user %s may not create organizations", actorID)
		return nil, err
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		created, txErr := tx.CreateTeam(ctx, name)
		if txErr != nil {
			return txErr
		}
		if _, txErr = tx.AddMemberToTeam(ctx, actorID, created.ID); txErr != nil {
			return txErr
		}
		if txErr = tx.SetTeamMemberRole(ctx, actorID, created.ID, RoleOwner); txErr != nil {
			return txErr
		}

		members := []authz.Member{{UserID: actorID, Role: string(RoleOwner)}}
		if txErr = s.authorizer.AddOrganization(ctx, actorID, created.ID, members, nil); txErr != nil {
			s.compensate(ctx, "create_organization", func() error {
				if rmErr := s.authorizer.RemoveOrganizationRole(ctx, created.ID, actorID, string(RoleOwner)); rmErr != nil {
					return rmErr
				}
				return s.authorizer.RemoveOrganizationRole(ctx, created.ID, actorID, string(RoleMember))
			})
			return txErr
		}

		org = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if _, inviteErr := s.store.ResetGenericInvite(ctx, org.ID); inviteErr != nil {
		s.logger.WithError(inviteErr).WithField("org_id", org.ID).Warn("failed to provision invite for new organization")
	}
	s.track(ctx, actorID, "team_created", map[string]interface{}{
		"id":   org.ID,
		"name": org.Name,
	})
	return org, nil
}

// GetOrganization retrieves an organization the actor may read
func (s *Service) GetOrganization(ctx context.Context, actorID, orgID string) (org *Organization, err error) {
	start := time.Now()
	defer func() { s.observe("get_organization", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionReadInfo, orgID); err != nil {
		return nil, err
	}
	return s.store.FindTeamByID(ctx, orgID)
}

// UpdateOrganization renames an organization
func (s *Service) UpdateOrganization(ctx context.Context, actorID, orgID, name string) (org *Organization, err error) {
	start := time.Now()
	defer func() { s.observe("update_organization", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionWriteInfo, orgID); err != nil {
		return nil, err
	}
	return s.store.UpdateTeam(ctx, orgID, TeamUpdate{Name: &name})
}

// ListOrganizations lists organizations. The default scope returns the
// actor's own memberships; the installation scope is restricted to the
// built-in admin and lists every organization.
func (s *Service) ListOrganizations(ctx context.Context, actorID string, req ListOrganizationsRequest) (res *ListOrganizationsResponse, err error) {
	start := time.Now()
	defer func() { s.observe("list_organizations", start, err) }()

	if actorID == "" {
		return nil, apperr.NotAuthenticated("actor required")
	}

	if req.Scope == "installation" {
		if actorID != users.BuiltinAdminUserID && actorID != authz.SystemUserID {
			err = apperr.PermissionDenied("installation-wide listing requires the installation admin")
			return nil, err
		}
		return s.store.FindTeams(ctx, req)
	}

	orgs, err := s.store.FindTeamsByUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return &ListOrganizationsResponse{Total: len(orgs), Rows: orgs}, nil
}

// DeleteOrganization deletes an organization, its projects, memberships, and
// subscription, then removes every authorization edge. If edge removal fails
// after the relational delete committed, the previously-read edges are
// restored and the failure is surfaced.
func (s *Service) DeleteOrganization(ctx context.Context, actorID, orgID string) (err error) {
	start := time.Now()
	defer func() { s.observe("delete_organization", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionDelete, orgID); err != nil {
		return err
	}

	// Pre-read state for edge restoration should the saga fail midway.
	members, err := s.store.FindMembersByTeam(ctx, orgID)
	if err != nil {
		return err
	}
	projects, err := s.projects.FindProjectsByOrg(ctx, orgID)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(tx Store) error {
		for _, project := range projects {
			if txErr := s.projects.DeleteProject(ctx, project.ID); txErr != nil {
				return txErr
			}
		}
		for _, member := range members {
			if txErr := tx.RemoveMemberFromTeam(ctx, member.UserID, orgID); txErr != nil {
				return txErr
			}
		}
		if txErr := tx.DeleteTeam(ctx, orgID); txErr != nil {
			return txErr
		}

		subscription, txErr := s.billing.FindUncancelledSubscription(ctx, orgID)
		if txErr != nil {
			return txErr
		}
		if subscription != nil {
			if txErr := s.billing.CancelSubscriptions(ctx, orgID); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err = s.authorizer.RemoveAllRelationships(ctx, actorID, authz.ResourceOrganization, orgID); err != nil {
		s.compensate(ctx, "delete_organization", func() error {
			return s.restoreOrganizationEdges(ctx, orgID, members, projects)
		})
		return err
	}

	s.track(ctx, actorID, "team_deleted", map[string]interface{}{"team_id": orgID})
	return nil
}

// restoreOrganizationEdges re-adds the organization, member, and project
// edges captured before a delete. Safe to call with edges that still exist.
func (s *Service) restoreOrganizationEdges(ctx context.Context, orgID string, members []*OrgMember, projects []*Project) error {
	ownerID := ""
	authzMembers := make([]authz.Member, 0, len(members))
	for _, m := range members {
		if m.Role == RoleOwner && ownerID == "" {
			ownerID = m.UserID
		}
		authzMembers = append(authzMembers, authz.Member{UserID: m.UserID, Role: string(m.Role)})
	}
	projectIDs := make([]string, 0, len(projects))
	for _, p := range projects {
		projectIDs = append(projectIDs, p.ID)
	}
	return s.authorizer.AddOrganization(ctx, ownerID, orgID, authzMembers, projectIDs)
}

// checkOrgPermission fails fast when the actor lacks the capability. The
// system user bypasses checks.
func (s *Service) checkOrgPermission(ctx context.Context, actorID string, action authz.OrgAction, orgID string) error {
	if actorID == "" {
		return apperr.NotAuthenticated("actor required")
	}
	if actorID == authz.SystemUserID {
		return nil
	}
	return s.authorizer.CheckPermissionOnOrganization(ctx, actorID, action, orgID)
}

// GetOrCreateInvite returns the organization's current generic invite,
// provisioning one when none exists. Organizations with active
// single-sign-on have no invites.
func (s *Service) GetOrCreateInvite(ctx context.Context, actorID, orgID string) (invite *MembershipInvite, err error) {
	start := time.Now()
	defer func() { s.observe("get_or_create_invite", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionInviteMembers, orgID); err != nil {
		return nil, err
	}
	if err = s.checkInvitesEnabled(ctx, orgID); err != nil {
		return nil, err
	}

	invite, err = s.store.FindGenericInviteByTeamID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if invite != nil {
		return invite, nil
	}
	return s.store.ResetGenericInvite(ctx, orgID)
}

// ResetInvite revokes the organization's current generic invite and issues a
// fresh one.
func (s *Service) ResetInvite(ctx context.Context, actorID, orgID string) (invite *MembershipInvite, err error) {
	start := time.Now()
	defer func() { s.observe("reset_invite", start, err) }()

	if err = s.checkOrgPermission(ctx, actorID, authz.ActionInviteMembers, orgID); err != nil {
		return nil, err
	}
	if err = s.checkInvitesEnabled(ctx, orgID); err != nil {
		return nil, err
	}
	return s.store.ResetGenericInvite(ctx, orgID)
}

func (s *Service) checkInvitesEnabled(ctx context.Context, orgID string) error {
	ssoActive, err := s.store.HasActiveSSO(ctx, orgID)
	if err != nil {
		return err
	}
	if ssoActive {
		return apperr.NotFound("invites are disabled for organizations with single-sign-on")
	}
	return nil
}

// JoinOrganization redeems an invite. Anyone holding a valid token may
// redeem it; repeat redemption by an existing member changes nothing.
func (s *Service) JoinOrganization(ctx context.Context, userID, inviteID string) (orgID string, err error) {
	start := time.Now()
	defer func() { s.observe("join_organization", start, err) }()

	if userID == "" {
		return "", apperr.NotAuthenticated("actor required")
	}

	invite, err := s.store.FindTeamMembershipInviteByID(ctx, inviteID)
	if err != nil {
		return "", err
	}
	if !invite.Valid() {
		err = apperr.NotFound("invite not found")
		return "", err
	}
	if err = s.checkInvitesEnabled(ctx, invite.OrgID); err != nil {
		return "", err
	}

	user, err := s.users.FindUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	mayJoin, err := s.users.MayJoinOrganization(ctx, user)
	if err != nil {
		return "", fmt.Errorf("failed to check organization join policy: %w", err)
	}
	if !mayJoin {
		err = apperr.PermissionDenied("user %s may not join organizations", userID)
		return "", err
	}

	opts := AddMemberOpts{FlexibleRole: true, SkipRoleUpdate: true}
	if _, err = s.AddOrUpdateMember(ctx, authz.SystemUserID, invite.OrgID, userID, invite.Role, opts); err != nil {
		return "", err
	}

	// Paid organizations vouch for their joiners.
	if subscription, subErr := s.billing.FindUncancelledSubscription(ctx, invite.OrgID); subErr != nil {
		s.logger.WithError(subErr).WithField("org_id", invite.OrgID).Warn("failed to look up subscription during join")
	} else if subscription != nil {
		if verifyErr := s.users.MarkUserVerified(ctx, userID); verifyErr != nil {
			s.logger.WithError(verifyErr).WithField("user_id", userID).Warn("failed to mark joining user verified")
		}
	}

	s.track(ctx, userID, "team_joined", map[string]interface{}{
		"team_id": invite.OrgID,
		"role":    string(invite.Role),
	})
	return invite.OrgID, nil
}
