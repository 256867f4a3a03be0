package memory

import (
	"context"
	"sync"

	"peerbridge-backend/domain/core/valueobjects"
)

// TagRepository is an in-memory tag index for tests and local runs.
type TagRepository struct {
	mu     sync.RWMutex
	byUser map[string]map[string]bool
	byTag  map[string]map[string]bool
}

// NewTagRepository creates an empty in-memory tag index.
func NewTagRepository() *TagRepository {
	return &TagRepository{
		byUser: make(map[string]map[string]bool),
		byTag:  make(map[string]map[string]bool),
	}
}

func (r *TagRepository) AddTag(ctx context.Context, user valueobjects.UserID, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.add(user.String(), tag)
	return nil
}

func (r *TagRepository) RemoveTag(ctx context.Context, user valueobjects.UserID, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(user.String(), tag)
	return nil
}

func (r *TagRepository) ReplaceTags(ctx context.Context, user valueobjects.UserID, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for tag := range r.byUser[user.String()] {
		r.remove(user.String(), tag)
	}
	for _, tag := range tags {
		r.add(user.String(), tag)
	}
	return nil
}

func (r *TagRepository) TagsOf(ctx context.Context, user valueobjects.UserID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.byUser[user.String()]))
	for tag := range r.byUser[user.String()] {
		tags = append(tags, tag)
	}
	return tags, nil
}

func (r *TagRepository) UsersWithAnyTag(ctx context.Context, tags []string) ([]valueobjects.UserID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	users := make([]valueobjects.UserID, 0)
	for _, tag := range tags {
		for raw := range r.byTag[tag] {
			if seen[raw] {
				continue
			}
			seen[raw] = true
			user, err := valueobjects.NewUserID(raw)
			if err != nil {
				continue
			}
			users = append(users, user)
		}
	}
	return users, nil
}

func (r *TagRepository) add(user, tag string) {
	if r.byUser[user] == nil {
		r.byUser[user] = make(map[string]bool)
	}
	if r.byTag[tag] == nil {
		r.byTag[tag] = make(map[string]bool)
	}
	r.byUser[user][tag] = true
	r.byTag[tag][user] = true
}

func (r *TagRepository) remove(user, tag string) {
	delete(r.byUser[user], tag)
	delete(r.byTag[tag], user)
	if len(r.byTag[tag]) == 0 {
		delete(r.byTag, tag)
	}
}
