// Package users provides the user-account collaborator consumed by the
// organization engine: lookups, deletion of org-owned accounts, verification
// marking, and the create/join policy predicates.
package users

import (
	"context"
	"time"
)

// BuiltinAdminUserID is the placeholder installation-admin account that owns
// freshly provisioned organizations until a regular owner joins.
const BuiltinAdminUserID = "builtin-installation-admin"

// User represents a user account
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// OrganizationID is set for organizational (non-personal) accounts that
	// are owned by a single organization.
	OrganizationID string `json:"organization_id,omitempty"`

	Blocked          bool       `json:"blocked,omitempty"`
	VerificationTime *time.Time `json:"verification_time,omitempty"`
}

// IsOrganizationOwned reports whether the account is scoped to an organization.
func (u *User) IsOrganizationOwned() bool {
	return u.OrganizationID != ""
}

// Service defines the user-account operations the engine depends on.
type Service interface {
	// FindUserByID returns the user or apperr.CodeNotFound.
	FindUserByID(ctx context.Context, userID string) (*User, error)

	// DeleteUser deletes a user account.
	DeleteUser(ctx context.Context, actorID, userID string) error

	// MarkUserVerified records that the user passed verification.
	MarkUserVerified(ctx context.Context, userID string) error

	// MayCreateOrganization reports whether the account type is permitted to
	// create organizations. Organizational accounts are not.
	MayCreateOrganization(ctx context.Context, user *User) (bool, error)

	// MayJoinOrganization reports whether the account type is permitted to
	// join other organizations. Organizational accounts are not.
	MayJoinOrganization(ctx context.Context, user *User) (bool, error)
}
