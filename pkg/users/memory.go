package users

import (
	"context"
	"sync"

	"github.com/platinummonkey/cove/pkg/apperr"
)

// MemoryService is an in-memory Service for tests and single-process use.
type MemoryService struct {
	mu    sync.RWMutex
	users map[string]*User

	// FailMarkVerified, when set, is returned from MarkUserVerified.
	FailMarkVerified error
}

// NewMemoryService creates a MemoryService seeded with the given users.
func NewMemoryService(seed ...*User) *MemoryService {
	s := &MemoryService{users: make(map[string]*User)}
	for _, u := range seed {
		copied := *u
		s.users[u.ID] = &copied
	}
	return s
}

// Put adds or replaces a user.
func (s *MemoryService) Put(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *u
	s.users[u.ID] = &copied
}

// FindUserByID returns the user or apperr.CodeNotFound.
func (s *MemoryService) FindUserByID(ctx context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, apperr.NotFound("user %s not found", userID)
	}
	copied := *u
	return &copied, nil
}

// DeleteUser deletes a user account.
func (s *MemoryService) DeleteUser(ctx context.Context, actorID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return apperr.NotFound("user %s not found", userID)
	}
	delete(s.users, userID)
	return nil
}

// MarkUserVerified records that the user passed verification.
func (s *MemoryService) MarkUserVerified(ctx context.Context, userID string) error {
	if s.FailMarkVerified != nil {
		return s.FailMarkVerified
	}
	return nil
}

// MayCreateOrganization reports whether the account may create organizations.
func (s *MemoryService) MayCreateOrganization(ctx context.Context, user *User) (bool, error) {
	return !user.Blocked && !user.IsOrganizationOwned(), nil
}

// MayJoinOrganization reports whether the account may join other organizations.
func (s *MemoryService) MayJoinOrganization(ctx context.Context, user *User) (bool, error) {
	return !user.Blocked && !user.IsOrganizationOwned(), nil
}
