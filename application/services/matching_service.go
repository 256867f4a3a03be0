package services

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"peerbridge-backend/application/ports"
	"peerbridge-backend/domain/core/valueobjects"
	pkgerrors "peerbridge-backend/pkg/errors"
)

// maxTagsPerUser caps a user's tag set so a single profile cannot fan
// out across the whole index.
const maxTagsPerUser = 25

// maxTagLength bounds one tag.
const maxTagLength = 64

// Candidate is one match suggestion: a user sharing at least one tag
// with the caller, with the overlap and a profile snapshot when the
// profile store has one.
type Candidate struct {
	UserID     valueobjects.UserID `json:"user_id"`
	SharedTags []string            `json:"shared_tags"`
	Profile    *ports.Profile      `json:"profile,omitempty"`
}

// MatchingService maintains users' tag sets and computes match
// candidates from the tag index.
type MatchingService struct {
	tags     ports.TagRepository
	peers    ports.PeerRepository
	requests ports.RequestRepository
	profiles ports.ProfileRepository
	logger   *zap.Logger
}

// NewMatchingService creates a matching service.
func NewMatchingService(
	tags ports.TagRepository,
	peers ports.PeerRepository,
	requests ports.RequestRepository,
	profiles ports.ProfileRepository,
	logger *zap.Logger,
) *MatchingService {
	return &MatchingService{
		tags:     tags,
		peers:    peers,
		requests: requests,
		profiles: profiles,
		logger:   logger.Named("matching_service"),
	}
}

// CandidatesFor returns users sharing at least one tag with the caller,
// excluding the caller, current peers, and anyone with a pending request
// involving the caller in either direction. Candidates with the most
// shared tags come first.
func (s *MatchingService) CandidatesFor(ctx context.Context, user valueobjects.UserID) ([]Candidate, error) {
	tags, err := s.tags.TagsOf(ctx, user)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return []Candidate{}, nil
	}

	excluded, err := s.excludedUsers(ctx, user)
	if err != nil {
		return nil, err
	}

	ownTags := make(map[string]bool, len(tags))
	for _, tag := range tags {
		ownTags[tag] = true
	}

	shared := make(map[string][]string)
	order := make([]valueobjects.UserID, 0)
	for _, tag := range tags {
		bucket, err := s.tags.UsersWithAnyTag(ctx, []string{tag})
		if err != nil {
			return nil, err
		}
		for _, other := range bucket {
			if other.Equals(user) || excluded[other.String()] {
				continue
			}
			if _, seen := shared[other.String()]; !seen {
				order = append(order, other)
			}
			shared[other.String()] = append(shared[other.String()], tag)
		}
	}

	if len(order) == 0 {
		return []Candidate{}, nil
	}

	profiles, err := s.profiles.GetBatch(ctx, order)
	if err != nil {
		s.logger.Warn("profile lookup failed, returning undecorated candidates", zap.Error(err))
		profiles = map[string]*ports.Profile{}
	}

	candidates := make([]Candidate, 0, len(order))
	for _, other := range order {
		overlap := shared[other.String()]
		sort.Strings(overlap)
		candidates = append(candidates, Candidate{
			UserID:     other,
			SharedTags: overlap,
			Profile:    profiles[other.String()],
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i].SharedTags) > len(candidates[j].SharedTags)
	})
	return candidates, nil
}

// excludedUsers collects the caller's peers and pending counterparties.
func (s *MatchingService) excludedUsers(ctx context.Context, user valueobjects.UserID) (map[string]bool, error) {
	excluded := make(map[string]bool)

	edges, err := s.peers.ListByUser(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, edge := range edges {
		peer, ok := edge.PeerOf(user)
		if ok {
			excluded[peer.String()] = true
		}
	}

	pending, err := s.requests.ListPendingInvolving(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, request := range pending {
		other, ok := request.Pair().Other(user)
		if ok {
			excluded[other.String()] = true
		}
	}
	return excluded, nil
}

// AddTag adds a normalized tag to the user's set.
func (s *MatchingService) AddTag(ctx context.Context, user valueobjects.UserID, tag string) error {
	normalized, err := normalizeTag(tag)
	if err != nil {
		return err
	}
	current, err := s.tags.TagsOf(ctx, user)
	if err != nil {
		return err
	}
	if len(current) >= maxTagsPerUser && !containsTag(current, normalized) {
		return pkgerrors.NewValidationError("tag limit reached")
	}
	return s.tags.AddTag(ctx, user, normalized)
}

// RemoveTag removes a tag from the user's set.
func (s *MatchingService) RemoveTag(ctx context.Context, user valueobjects.UserID, tag string) error {
	normalized, err := normalizeTag(tag)
	if err != nil {
		return err
	}
	return s.tags.RemoveTag(ctx, user, normalized)
}

// ReplaceTags replaces the user's full tag set with the given one.
func (s *MatchingService) ReplaceTags(ctx context.Context, user valueobjects.UserID, tags []string) error {
	if len(tags) > maxTagsPerUser {
		return pkgerrors.NewValidationError("tag limit reached")
	}
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		n, err := normalizeTag(tag)
		if err != nil {
			return err
		}
		if !seen[n] {
			seen[n] = true
			normalized = append(normalized, n)
		}
	}
	return s.tags.ReplaceTags(ctx, user, normalized)
}

// TagsOf returns the user's current tags.
func (s *MatchingService) TagsOf(ctx context.Context, user valueobjects.UserID) ([]string, error) {
	return s.tags.TagsOf(ctx, user)
}

func normalizeTag(tag string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(tag))
	if normalized == "" {
		return "", pkgerrors.NewValidationError("tag cannot be empty")
	}
	if len(normalized) > maxTagLength {
		return "", pkgerrors.NewValidationError("tag is too long")
	}
	return normalized, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
