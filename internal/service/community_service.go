package service

import (
	"context"
	"strings"

	"chirp/internal/models"
	"chirp/internal/repository"
)

// CommunityService implements community management flows.
type CommunityService struct {
	communityRepo repository.CommunityRepository
}

// NewCommunityService returns a new CommunityService.
func NewCommunityService(communityRepo repository.CommunityRepository) *CommunityService {
	return &CommunityService{communityRepo: communityRepo}
}

// CreateCommunityInput is the payload for a new community.
type CreateCommunityInput struct {
	CreatorID   uint
	Name        string
	Description string
	Category    models.CommunityCategory
	Tags        []string
	IsPrivate   bool
}

// CreateCommunity validates and persists a new community. The creator joins
// automatically with the moderator role.
func (s *CommunityService) CreateCommunity(ctx context.Context, in CreateCommunityInput) (*models.Community, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, models.NewValidationError("Description is required")
	}
	if !models.ValidCategory(in.Category) {
		return nil, models.NewValidationError("Unknown community category")
	}

	community := &models.Community{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		CreatorID:   in.CreatorID,
		Category:    in.Category,
		IsPrivate:   in.IsPrivate,
		IsActive:    true,
	}
	seen := make(map[string]struct{}, len(in.Tags))
	for _, tag := range in.Tags {
		t := strings.ToLower(strings.TrimSpace(tag))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		community.Tags = append(community.Tags, models.CommunityTag{Tag: t})
	}

	if err := s.communityRepo.Create(ctx, community); err != nil {
		return nil, err
	}
	return s.communityRepo.GetByID(ctx, community.ID)
}

// GetCommunity loads a community with computed member and tweet counts.
func (s *CommunityService) GetCommunity(ctx context.Context, id uint) (*models.Community, error) {
	return s.communityRepo.GetByID(ctx, id)
}

// ListCommunities returns a page of active communities.
func (s *CommunityService) ListCommunities(ctx context.Context, limit, offset int) ([]*models.Community, error) {
	return s.communityRepo.List(ctx, limit, offset)
}

// ListUserCommunities returns the communities the user belongs to.
func (s *CommunityService) ListUserCommunities(ctx context.Context, userID uint) ([]*models.Community, error) {
	return s.communityRepo.ListByMember(ctx, userID)
}

// Join adds the user as a member. Joining twice is idempotent.
func (s *CommunityService) Join(ctx context.Context, communityID, userID uint) error {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if !community.IsActive {
		return models.NewValidationError("Community is not active")
	}
	return s.communityRepo.Join(ctx, communityID, userID, models.RoleMember)
}

// Leave removes the user's membership. The creator cannot leave their own
// community.
func (s *CommunityService) Leave(ctx context.Context, communityID, userID uint) error {
	community, err := s.communityRepo.GetByID(ctx, communityID)
	if err != nil {
		return err
	}
	if community.CreatorID == userID {
		return models.NewValidationError("The creator cannot leave their own community")
	}
	return s.communityRepo.Leave(ctx, communityID, userID)
}
