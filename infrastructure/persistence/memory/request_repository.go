package memory

import (
	"context"
	"sort"
	"sync"

	"peerbridge-backend/domain/core/entities"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// RequestRepository is an in-memory connection request store.
type RequestRepository struct {
	mu       sync.RWMutex
	byID     map[string]*entities.ConnectionRequest
	pendings map[string]string // pair id -> pending request id
}

// NewRequestRepository creates an empty in-memory request store.
func NewRequestRepository() *RequestRepository {
	return &RequestRepository{
		byID:     make(map[string]*entities.ConnectionRequest),
		pendings: make(map[string]string),
	}
}

func (r *RequestRepository) Save(ctx context.Context, request *entities.ConnectionRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := copyRequest(request)
	if err != nil {
		return err
	}
	r.byID[request.ID().String()] = stored

	if request.Status() == entities.RequestPending {
		r.pendings[request.Pair().String()] = request.ID().String()
	} else if r.pendings[request.Pair().String()] == request.ID().String() {
		delete(r.pendings, request.Pair().String())
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id valueobjects.RequestID) (*entities.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	request, ok := r.byID[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("connection request not found")
	}
	return copyRequest(request)
}

func (r *RequestRepository) GetPendingByPair(ctx context.Context, pair valueobjects.PairID) (*entities.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.pendings[pair.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("no pending request for pair")
	}
	return copyRequest(r.byID[id])
}

func (r *RequestRepository) ListPendingInvolving(ctx context.Context, user valueobjects.UserID) ([]*entities.ConnectionRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	requests := make([]*entities.ConnectionRequest, 0)
	for _, id := range r.pendings {
		request := r.byID[id]
		if request.Pair().Contains(user) {
			copied, err := copyRequest(request)
			if err != nil {
				return nil, err
			}
			requests = append(requests, copied)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt().After(requests[j].CreatedAt())
	})
	return requests, nil
}

func copyRequest(request *entities.ConnectionRequest) (*entities.ConnectionRequest, error) {
	return entities.ReconstructConnectionRequest(
		request.ID(), request.Requester(), request.Recipient(),
		request.Status(), request.CreatedAt(), request.RespondedAt(),
	)
}
