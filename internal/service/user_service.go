package service

import (
	"context"
	"strings"

	"chirp/internal/models"
	"chirp/internal/repository"
)

// UserService implements profile and follow-graph operations.
type UserService struct {
	userRepo repository.UserRepository
	notifier notificationEmitter
}

// NewUserService returns a new UserService. notifier may be nil.
func NewUserService(userRepo repository.UserRepository, notifier notificationEmitter) *UserService {
	return &UserService{userRepo: userRepo, notifier: notifier}
}

// UpdateProfileInput carries the editable profile fields. Empty fields are
// left unchanged.
type UpdateProfileInput struct {
	UserID          uint
	DisplayName     string
	Bio             string
	Location        string
	Website         string
	ProfileImageURL string
	BannerImageURL  string
}

// GetProfile loads a user by username, with counts computed for the viewer.
func (s *UserService) GetProfile(ctx context.Context, username string, currentUserID uint) (*models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username, currentUserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, models.NewNotFoundError("User", username)
	}
	return user, nil
}

// GetUser loads a user by ID.
func (s *UserService) GetUser(ctx context.Context, id, currentUserID uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id, currentUserID)
}

// UpdateProfile applies partial profile edits for the caller.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.DisplayName != "" {
		user.DisplayName = in.DisplayName
	}
	if in.Bio != "" {
		user.Bio = in.Bio
	}
	if in.Location != "" {
		user.Location = in.Location
	}
	if in.Website != "" {
		user.Website = in.Website
	}
	if in.ProfileImageURL != "" {
		user.ProfileImageURL = in.ProfileImageURL
	}
	if in.BannerImageURL != "" {
		user.BannerImageURL = in.BannerImageURL
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Follow adds a follow edge. Following yourself is invalid; re-following is
// idempotent and emits no second notification.
func (s *UserService) Follow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot follow yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, followeeID, 0); err != nil {
		return err
	}

	already, err := s.userRepo.IsFollowing(ctx, followerID, followeeID)
	if err != nil {
		return err
	}

	if err := s.userRepo.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}

	if !already && s.notifier != nil {
		s.notifier.Emit(ctx, &models.Notification{
			Type:       models.NotificationFollow,
			FromUserID: followerID,
			ToUserID:   followeeID,
		})
	}
	return nil
}

// Unfollow removes a follow edge. Unfollowing someone you do not follow is a
// no-op.
func (s *UserService) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	if followerID == followeeID {
		return models.NewValidationError("You cannot unfollow yourself")
	}
	return s.userRepo.Unfollow(ctx, followerID, followeeID)
}

// Search finds users by username or display name.
func (s *UserService) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.User, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("Search query is required")
	}
	return s.userRepo.Search(ctx, query, limit, offset, currentUserID)
}
