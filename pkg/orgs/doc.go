// Package orgs implements the organization membership and settings engine.
//
// # Overview
//
// The engine coordinates two independently stored systems of record: the
// relational membership store (organizations, memberships, invites, settings)
// and the authorization relationship graph. The two cannot commit atomically,
// so every operation that mutates both orders the relational transaction
// first and reverses graph edges with explicit compensating actions when a
// later step fails. Compensations are idempotent; re-adding an edge that
// already exists is a no-op.
//
// # Invariants
//
//   - Every organization with at least one member has at least one owner
//     after any successful operation.
//   - The first regular member of an organization becomes an owner regardless
//     of the requested role.
//   - The sole remaining owner cannot be removed.
//
// # Usage
//
//	svc := orgs.NewService(orgs.ServiceDeps{Store: store, Authorizer: auth, Users: userSvc, ...})
//	org, err := svc.CreateOrganization(ctx, actorID, "Acme")
//	member, err := svc.AddOrUpdateMember(ctx, actorID, org.ID, memberID, orgs.RoleMember, orgs.AddMemberOpts{FlexibleRole: true})
package orgs
