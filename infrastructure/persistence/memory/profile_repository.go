package memory

import (
	"context"
	"sync"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// ProfileRepository is an in-memory profile store, seeded by tests and
// local runs.
type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string]*ports.Profile
}

// NewProfileRepository creates an empty in-memory profile store.
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{profiles: make(map[string]*ports.Profile)}
}

// Seed stores a profile.
func (r *ProfileRepository) Seed(profile *ports.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.UserID.String()] = profile
}

func (r *ProfileRepository) GetByID(ctx context.Context, user valueobjects.UserID) (*ports.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[user.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("profile not found")
	}
	return profile, nil
}

func (r *ProfileRepository) GetBatch(ctx context.Context, users []valueobjects.UserID) (map[string]*ports.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]*ports.Profile, len(users))
	for _, user := range users {
		if profile, ok := r.profiles[user.String()]; ok {
			result[user.String()] = profile
		}
	}
	return result, nil
}
