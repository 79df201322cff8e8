// Package authz stores subject-to-resource relationship edges and answers
// permission checks against them.
//
// The relationship graph mirrors membership rows kept in the relational store,
// but lives in its own tables and is mutated outside the membership
// transaction. Callers that write to both stores are responsible for
// compensating partial failures; every mutation here is idempotent so
// compensation can safely re-apply edges that already exist.
//
// # Usage
//
//	store := authz.NewPostgresRelationshipStore(db)
//	auth := authz.NewAuthorizer(store, logger)
//
//	if err := auth.CheckPermissionOnOrganization(ctx, userID, authz.ActionWriteMembers, orgID); err != nil {
//		return err // apperr.CodePermissionDenied
//	}
//	err := auth.AddOrganizationRole(ctx, orgID, memberID, "member")
package authz
