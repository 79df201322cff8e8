package orgs

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/cove/pkg/apperr"
)

// MemoryStore is an in-memory Store for tests. Transaction snapshots state
// before running fn and restores it when fn fails, so rollback behavior can
// be exercised without a database.
type MemoryStore struct {
	mu sync.Mutex

	teams       map[string]*Organization
	memberships map[string]map[string]*OrgMember // orgID -> userID -> member
	invites     map[string]*MembershipInvite     // inviteID -> invite
	settings    map[string]*OrganizationSettings
	activeSSO   map[string]bool

	// FailSetRole, when set, is returned by SetTeamMemberRole. It lets tests
	// force a rollback mid-transaction.
	FailSetRole error
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		teams:       map[string]*Organization{},
		memberships: map[string]map[string]*OrgMember{},
		invites:     map[string]*MembershipInvite{},
		settings:    map[string]*OrganizationSettings{},
		activeSSO:   map[string]bool{},
	}
}

// SetActiveSSO marks an organization as having active single-sign-on
func (s *MemoryStore) SetActiveSSO(orgID string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeSSO[orgID] = active
}

func (s *MemoryStore) snapshot() (map[string]*Organization, map[string]map[string]*OrgMember, map[string]*MembershipInvite, map[string]*OrganizationSettings) {
	teams := map[string]*Organization{}
	for id, t := range s.teams {
		copy := *t
		teams[id] = &copy
	}
	memberships := map[string]map[string]*OrgMember{}
	for orgID, members := range s.memberships {
		memberships[orgID] = map[string]*OrgMember{}
		for userID, m := range members {
			copy := *m
			memberships[orgID][userID] = &copy
		}
	}
	invites := map[string]*MembershipInvite{}
	for id, inv := range s.invites {
		copy := *inv
		invites[id] = &copy
	}
	settings := map[string]*OrganizationSettings{}
	for orgID, st := range s.settings {
		copy := *st
		settings[orgID] = &copy
	}
	return teams, memberships, invites, settings
}

// Transaction runs fn and restores the pre-transaction state when fn fails
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	s.mu.Lock()
	teams, memberships, invites, settings := s.snapshot()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.teams, s.memberships, s.invites, s.settings = teams, memberships, invites, settings
		s.mu.Unlock()
		return err
	}
	return nil
}

// CreateTeam creates an organization
func (s *MemoryStore) CreateTeam(ctx context.Context, name string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.BadRequest("organization name cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	org := &Organization{
		ID:           uuid.NewString(),
		Name:         name,
		CreationTime: time.Now().UTC(),
	}
	s.teams[org.ID] = org
	copy := *org
	return &copy, nil
}

// FindTeamByID retrieves an organization
func (s *MemoryStore) FindTeamByID(ctx context.Context, orgID string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.teams[orgID]
	if !ok {
		return nil, apperr.NotFound("organization %s not found", orgID)
	}
	copy := *org
	return &copy, nil
}

// UpdateTeam applies a partial update
func (s *MemoryStore) UpdateTeam(ctx context.Context, orgID string, update TeamUpdate) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.teams[orgID]
	if !ok {
		return nil, apperr.NotFound("organization %s not found", orgID)
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperr.BadRequest("organization name cannot be empty")
		}
		org.Name = name
	}
	if update.MaintenanceMode != nil {
		org.MaintenanceMode = *update.MaintenanceMode
	}
	if update.MaintenanceNotification != nil {
		notification := *update.MaintenanceNotification
		org.MaintenanceNotification = &notification
	}
	copy := *org
	return &copy, nil
}

// DeleteTeam removes an organization and its memberships
func (s *MemoryStore) DeleteTeam(ctx context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[orgID]; !ok {
		return apperr.NotFound("organization %s not found", orgID)
	}
	delete(s.teams, orgID)
	delete(s.memberships, orgID)
	delete(s.settings, orgID)
	return nil
}

// FindTeamsByUser lists organizations the user is a member of
func (s *MemoryStore) FindTeamsByUser(ctx context.Context, userID string) ([]*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orgs []*Organization
	for orgID, members := range s.memberships {
		if _, ok := members[userID]; !ok {
			continue
		}
		if org, ok := s.teams[orgID]; ok {
			copy := *org
			orgs = append(orgs, &copy)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].CreationTime.After(orgs[j].CreationTime) })
	return orgs, nil
}

// FindTeams lists organizations installation-wide
func (s *MemoryStore) FindTeams(ctx context.Context, req ListOrganizationsRequest) (*ListOrganizationsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*Organization
	search := strings.ToLower(req.SearchTerm)
	for _, org := range s.teams {
		if search != "" && !strings.Contains(strings.ToLower(org.Name), search) {
			continue
		}
		copy := *org
		matched = append(matched, &copy)
	}

	asc := strings.EqualFold(req.OrderDir, "asc")
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		if req.OrderBy == "name" {
			less = matched[i].Name < matched[j].Name
		} else {
			less = matched[i].CreationTime.Before(matched[j].CreationTime)
		}
		if asc {
			return less
		}
		return !less
	})

	total := len(matched)
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := req.Offset
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return &ListOrganizationsResponse{Total: total, Rows: matched[offset:end]}, nil
}

// FindMembersByTeam lists members in join order
func (s *MemoryStore) FindMembersByTeam(ctx context.Context, orgID string) ([]*OrgMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var members []*OrgMember
	for _, m := range s.memberships[orgID] {
		copy := *m
		members = append(members, &copy)
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].MemberSince.Equal(members[j].MemberSince) {
			return members[i].MemberSince.Before(members[j].MemberSince)
		}
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}

// FindTeamMembership retrieves a single membership
func (s *MemoryStore) FindTeamMembership(ctx context.Context, userID, orgID string) (*OrgMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.memberships[orgID][userID]
	if !ok {
		return nil, apperr.NotFound("membership for user %s in organization %s not found", userID, orgID)
	}
	copy := *member
	return &copy, nil
}

// AddMemberToTeam inserts a membership with the member role
func (s *MemoryStore) AddMemberToTeam(ctx context.Context, userID, orgID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.memberships[orgID] == nil {
		s.memberships[orgID] = map[string]*OrgMember{}
	}
	if _, ok := s.memberships[orgID][userID]; ok {
		return true, nil
	}
	s.memberships[orgID][userID] = &OrgMember{
		UserID:      userID,
		OrgID:       orgID,
		Role:        RoleMember,
		MemberSince: time.Now().UTC(),
	}
	return false, nil
}

// SetTeamMemberRole updates the role on a membership
func (s *MemoryStore) SetTeamMemberRole(ctx context.Context, userID, orgID string, role OrgRole) error {
	if s.FailSetRole != nil {
		return s.FailSetRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	member, ok := s.memberships[orgID][userID]
	if !ok {
		return apperr.NotFound("membership for user %s in organization %s not found", userID, orgID)
	}
	member.Role = role
	return nil
}

// RemoveMemberFromTeam deletes a membership
func (s *MemoryStore) RemoveMemberFromTeam(ctx context.Context, userID, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memberships[orgID][userID]; !ok {
		return apperr.NotFound("membership for user %s in organization %s not found", userID, orgID)
	}
	delete(s.memberships[orgID], userID)
	return nil
}

// FindGenericInviteByTeamID retrieves the current redeemable invite, or nil
func (s *MemoryStore) FindGenericInviteByTeamID(ctx context.Context, orgID string) (*MembershipInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.OrgID == orgID && inv.Valid() {
			copy := *inv
			return &copy, nil
		}
	}
	return nil, nil
}

// FindTeamMembershipInviteByID retrieves an invite by ID
func (s *MemoryStore) FindTeamMembershipInviteByID(ctx context.Context, inviteID string) (*MembershipInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[inviteID]
	if !ok {
		return nil, apperr.NotFound("invite not found")
	}
	copy := *inv
	return &copy, nil
}

// ResetGenericInvite revokes current invites and issues a fresh one
func (s *MemoryStore) ResetGenericInvite(ctx context.Context, orgID string) (*MembershipInvite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, inv := range s.invites {
		if inv.OrgID == orgID && inv.Valid() {
			inv.InvalidationTime = now.Format(time.RFC3339)
		}
	}
	invite := &MembershipInvite{
		ID:           uuid.NewString(),
		OrgID:        orgID,
		Role:         RoleMember,
		CreationTime: now,
	}
	s.invites[invite.ID] = invite
	copy := *invite
	return &copy, nil
}

// PruneInvalidatedInvites deletes revoked invites older than the given age
func (s *MemoryStore) PruneInvalidatedInvites(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var pruned int64
	for id, inv := range s.invites {
		if inv.Valid() {
			continue
		}
		if inv.CreationTime.Before(cutoff) {
			delete(s.invites, id)
			pruned++
		}
	}
	return pruned, nil
}

// HasActiveSSO reports whether the organization has active single-sign-on
func (s *MemoryStore) HasActiveSSO(ctx context.Context, orgID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSSO[orgID], nil
}

// FindOrgSettings retrieves stored settings, empty when absent
func (s *MemoryStore) FindOrgSettings(ctx context.Context, orgID string) (*OrganizationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.settings[orgID]; ok {
		copy := *st
		return &copy, nil
	}
	return &OrganizationSettings{}, nil
}

// SetOrgSettings merges the partial update onto stored settings
func (s *MemoryStore) SetOrgSettings(ctx context.Context, orgID string, partial *OrganizationSettings, merge MergeFunc) (*OrganizationSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.settings[orgID]
	if !ok {
		current = &OrganizationSettings{}
	}
	merged := merge(current, partial)
	stored := *merged
	s.settings[orgID] = &stored
	copy := *merged
	return &copy, nil
}
