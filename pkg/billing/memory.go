package billing

import (
	"context"
	"sync"
)

// MemoryService is an in-memory billing Service for tests.
type MemoryService struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	canceled      map[string]bool
}

// NewMemoryService creates an empty MemoryService
func NewMemoryService() *MemoryService {
	return &MemoryService{
		subscriptions: make(map[string]*Subscription),
		canceled:      make(map[string]bool),
	}
}

// SetSubscription records a live subscription for an organization.
func (s *MemoryService) SetSubscription(orgID string, sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions[orgID] = sub
}

// FindUncancelledSubscription returns the live subscription or nil.
func (s *MemoryService) FindUncancelledSubscription(ctx context.Context, orgID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.canceled[orgID] {
		return nil, nil
	}
	return s.subscriptions[orgID], nil
}

// CancelSubscriptions cancels every live subscription of the organization.
func (s *MemoryService) CancelSubscriptions(ctx context.Context, orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canceled[orgID] = true
	return nil
}

// Canceled reports whether the organization's subscriptions were canceled.
func (s *MemoryService) Canceled(orgID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canceled[orgID]
}
