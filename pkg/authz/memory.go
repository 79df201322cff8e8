package authz

import (
	"context"
	"sync"
)

// MemoryRelationshipStore is an in-memory RelationshipStore. It backs tests
// and single-process deployments that do not need a durable graph.
type MemoryRelationshipStore struct {
	mu    sync.RWMutex
	edges map[edge]struct{}

	// FailAddEdge, when set, is returned from AddEdge. Tests use it to
	// simulate graph mutations failing after a relational commit.
	FailAddEdge error
	// FailRemoveEdge, when set, is returned from RemoveEdge.
	FailRemoveEdge error
}

type edge struct {
	userID     string
	relation   string
	kind       ResourceKind
	resourceID string
}

// NewMemoryRelationshipStore creates an empty MemoryRelationshipStore
func NewMemoryRelationshipStore() *MemoryRelationshipStore {
	return &MemoryRelationshipStore{edges: make(map[edge]struct{})}
}

// AddEdge inserts an edge. Re-adding an existing edge is a no-op.
func (s *MemoryRelationshipStore) AddEdge(ctx context.Context, userID, relation string, kind ResourceKind, resourceID string) error {
	if s.FailAddEdge != nil {
		return s.FailAddEdge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges[edge{userID, relation, kind, resourceID}] = struct{}{}
	return nil
}

// RemoveEdge deletes an edge. Removing a missing edge is a no-op.
func (s *MemoryRelationshipStore) RemoveEdge(ctx context.Context, userID, relation string, kind ResourceKind, resourceID string) error {
	if s.FailRemoveEdge != nil {
		return s.FailRemoveEdge
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.edges, edge{userID, relation, kind, resourceID})
	return nil
}

// RelationsFor returns all relations the user holds on the resource.
func (s *MemoryRelationshipStore) RelationsFor(ctx context.Context, userID string, kind ResourceKind, resourceID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var relations []string
	for e := range s.edges {
		if e.userID == userID && e.kind == kind && e.resourceID == resourceID {
			relations = append(relations, e.relation)
		}
	}
	return relations, nil
}

// RemoveAllForResource deletes every edge pointing at the resource.
func (s *MemoryRelationshipStore) RemoveAllForResource(ctx context.Context, kind ResourceKind, resourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := range s.edges {
		if e.kind == kind && e.resourceID == resourceID {
			delete(s.edges, e)
		}
	}
	return nil
}

// HasEdge reports whether the exact edge exists. Test helper.
func (s *MemoryRelationshipStore) HasEdge(userID, relation string, kind ResourceKind, resourceID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.edges[edge{userID, relation, kind, resourceID}]
	return ok
}

// EdgeCount returns the number of stored edges. Test helper.
func (s *MemoryRelationshipStore) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}
