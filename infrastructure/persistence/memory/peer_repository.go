package memory

import (
	"context"
	"sort"
	"sync"

	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// PeerRepository is an in-memory peer edge store.
type PeerRepository struct {
	mu    sync.RWMutex
	edges map[string]*entities.PeerEdge
}

// NewPeerRepository creates an empty in-memory peer edge store.
func NewPeerRepository() *PeerRepository {
	return &PeerRepository{edges: make(map[string]*entities.PeerEdge)}
}

func (r *PeerRepository) Save(ctx context.Context, edge *entities.PeerEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.edges[edge.Pair().String()]; exists {
		return nil
	}
	// Edges are immutable once created, sharing the pointer is safe.
	r.edges[edge.Pair().String()] = edge
	return nil
}

func (r *PeerRepository) Delete(ctx context.Context, pair valueobjects.PairID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.edges[pair.String()]; !exists {
		return pkgerrors.NewNotFoundError("peer edge not found")
	}
	delete(r.edges, pair.String())
	return nil
}

func (r *PeerRepository) GetByPair(ctx context.Context, pair valueobjects.PairID) (*entities.PeerEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	edge, ok := r.edges[pair.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("peer edge not found")
	}
	return edge, nil
}

func (r *PeerRepository) HasEdge(ctx context.Context, pair valueobjects.PairID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.edges[pair.String()]
	return ok, nil
}

func (r *PeerRepository) ListByUser(ctx context.Context, user valueobjects.UserID) ([]*entities.PeerEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	edges := make([]*entities.PeerEdge, 0)
	for _, edge := range r.edges {
		if edge.Pair().Contains(user) {
			edges = append(edges, edge)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].CreatedAt().After(edges[j].CreatedAt())
	})
	return edges, nil
}
