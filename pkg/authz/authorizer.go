package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/platinummonkey/cove/pkg/apperr"
	"github.com/platinummonkey/cove/pkg/observability"
)

const (
	relationCacheSize = 4096
	relationCacheTTL  = 30 * time.Second
)

// GraphAuthorizer implements Authorizer over a RelationshipStore, with an
// in-process LRU cache for relation lookups. The cache is purged on every
// edge mutation so checks never trail a change by more than the TTL on other
// replicas and never trail at all on the mutating one.
type GraphAuthorizer struct {
	store  RelationshipStore
	cache  *expirable.LRU[string, []string]
	logger *observability.Logger
}

// NewAuthorizer creates a new GraphAuthorizer
func NewAuthorizer(store RelationshipStore, logger *observability.Logger) *GraphAuthorizer {
	return &GraphAuthorizer{
		store:  store,
		cache:  expirable.NewLRU[string, []string](relationCacheSize, nil, relationCacheTTL),
		logger: logger,
	}
}

// HasPermissionOnOrganization reports whether the user may perform the action
// on the organization.
func (a *GraphAuthorizer) HasPermissionOnOrganization(ctx context.Context, userID string, action OrgAction, orgID string) (bool, error) {
	if userID == SystemUserID {
		return true, nil
	}

	relations, err := a.relationsFor(ctx, userID, ResourceOrganization, orgID)
	if err != nil {
		return false, err
	}

	for _, relation := range relations {
		if roleGrants(relation, action) {
			return true, nil
		}
	}
	return false, nil
}

// CheckPermissionOnOrganization fails with apperr.CodePermissionDenied when
// the user may not perform the action.
func (a *GraphAuthorizer) CheckPermissionOnOrganization(ctx context.Context, userID string, action OrgAction, orgID string) error {
	allowed, err := a.HasPermissionOnOrganization(ctx, userID, action, orgID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperr.PermissionDenied("user %s is not allowed to %s on organization %s", userID, action, orgID)
	}
	return nil
}

// CheckPermissionOnUser fails with apperr.CodePermissionDenied when the user
// may not perform the action on the target user. Users always hold every
// action on themselves.
func (a *GraphAuthorizer) CheckPermissionOnUser(ctx context.Context, userID string, action UserAction, targetUserID string) error {
	if userID == SystemUserID || userID == targetUserID {
		return nil
	}

	relations, err := a.relationsFor(ctx, userID, ResourceUser, targetUserID)
	if err != nil {
		return err
	}
	if len(relations) == 0 {
		return apperr.PermissionDenied("user %s is not allowed to %s on user %s", userID, action, targetUserID)
	}
	return nil
}

// AddOrganization establishes the owner edge plus edges for every given
// member and project. Safe to call with edges that already exist.
func (a *GraphAuthorizer) AddOrganization(ctx context.Context, ownerID, orgID string, members []Member, projectIDs []string) error {
	if err := a.store.AddEdge(ctx, ownerID, "owner", ResourceOrganization, orgID); err != nil {
		return err
	}
	for _, member := range members {
		if member.UserID == ownerID && member.Role == "owner" {
			continue
		}
		if err := a.store.AddEdge(ctx, member.UserID, member.Role, ResourceOrganization, orgID); err != nil {
			return err
		}
	}
	for _, projectID := range projectIDs {
		if err := a.store.AddEdge(ctx, orgID, "org", ResourceProject, projectID); err != nil {
			return err
		}
	}
	a.cache.Purge()
	return nil
}

// AddOrganizationRole establishes a role edge for a member.
func (a *GraphAuthorizer) AddOrganizationRole(ctx context.Context, orgID, memberID, role string) error {
	if err := a.store.AddEdge(ctx, memberID, role, ResourceOrganization, orgID); err != nil {
		return err
	}
	a.cache.Purge()
	return nil
}

// RemoveOrganizationRole removes a role edge for a member.
func (a *GraphAuthorizer) RemoveOrganizationRole(ctx context.Context, orgID, memberID, role string) error {
	if err := a.store.RemoveEdge(ctx, memberID, role, ResourceOrganization, orgID); err != nil {
		return err
	}
	a.cache.Purge()
	return nil
}

// RemoveAllRelationships removes every edge pointing at the resource.
func (a *GraphAuthorizer) RemoveAllRelationships(ctx context.Context, actorID string, kind ResourceKind, resourceID string) error {
	if err := a.store.RemoveAllForResource(ctx, kind, resourceID); err != nil {
		return err
	}
	a.logger.WithFields(map[string]interface{}{
		"actor_id":    actorID,
		"kind":        kind,
		"resource_id": resourceID,
	}).Debug("removed all relationships for resource")
	a.cache.Purge()
	return nil
}

func (a *GraphAuthorizer) relationsFor(ctx context.Context, userID string, kind ResourceKind, resourceID string) ([]string, error) {
	key := fmt.Sprintf("%s|%s|%s", userID, kind, resourceID)
	if relations, ok := a.cache.Get(key); ok {
		return relations, nil
	}

	relations, err := a.store.RelationsFor(ctx, userID, kind, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve relations: %w", err)
	}
	a.cache.Add(key, relations)
	return relations, nil
}
