package repository

import (
	"context"
	"errors"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// CommunityRepository defines persistence operations for communities and
// their membership sets.
type CommunityRepository interface {
	Create(ctx context.Context, community *models.Community) error
	GetByID(ctx context.Context, id uint) (*models.Community, error)
	List(ctx context.Context, limit, offset int) ([]*models.Community, error)
	ListByMember(ctx context.Context, userID uint) ([]*models.Community, error)
	ListCandidates(ctx context.Context, userID uint, limit int) ([]*models.Community, error)
	MemberCommunityIDs(ctx context.Context, userID uint) ([]uint, error)
	CoMemberIDs(ctx context.Context, userID uint, limit int) ([]uint, error)

	Join(ctx context.Context, communityID, userID uint, role models.CommunityRole) error
	Leave(ctx context.Context, communityID, userID uint) error
	IsMember(ctx context.Context, communityID, userID uint) (bool, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository returns a new CommunityRepository implementation.
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

// applyCommunityDetails computes member and tweet counts from their backing
// tables in a single query.
func (r *communityRepository) applyCommunityDetails(db *gorm.DB) *gorm.DB {
	return db.Select("communities.*, " +
		"(SELECT COUNT(*) FROM community_members WHERE community_members.community_id = communities.id) as members_count, " +
		"(SELECT COUNT(*) FROM tweets WHERE tweets.community_id = communities.id AND tweets.deleted_at IS NULL) as tweets_count")
}

func (r *communityRepository) Create(ctx context.Context, community *models.Community) error {
	if !models.ValidCategory(community.Category) {
		return models.NewValidationError("Unknown community category")
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		// The creator is a member with the moderator role.
		return tx.Create(&models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.CreatorID,
			Role:        models.RoleModerator,
		}).Error
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Community name already taken")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *communityRepository) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	var community models.Community
	if err := r.applyCommunityDetails(r.db.WithContext(ctx)).
		Preload("Creator").
		Preload("Tags").
		First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &community, nil
}

func (r *communityRepository) List(ctx context.Context, limit, offset int) ([]*models.Community, error) {
	var communities []*models.Community
	if err := r.applyCommunityDetails(r.db.WithContext(ctx)).
		Preload("Creator").
		Preload("Tags").
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) ListByMember(ctx context.Context, userID uint) ([]*models.Community, error) {
	var communities []*models.Community
	if err := r.applyCommunityDetails(r.db.WithContext(ctx)).
		Preload("Tags").
		Where("communities.id IN (SELECT community_id FROM community_members WHERE user_id = ?)", userID).
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

// ListCandidates returns active communities the user has not joined,
// with creator and tags loaded for scoring.
func (r *communityRepository) ListCandidates(ctx context.Context, userID uint, limit int) ([]*models.Community, error) {
	var communities []*models.Community
	if err := r.applyCommunityDetails(r.db.WithContext(ctx)).
		Preload("Creator").
		Preload("Tags").
		Where("is_active = ?", true).
		Where("communities.id NOT IN (SELECT community_id FROM community_members WHERE user_id = ?)", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&communities).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (r *communityRepository) MemberCommunityIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("user_id = ?", userID).
		Pluck("community_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// CoMemberIDs returns users who share at least one community with userID.
func (r *communityRepository) CoMemberIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT cm2.user_id
		 FROM community_members cm1
		 JOIN community_members cm2 ON cm2.community_id = cm1.community_id
		 WHERE cm1.user_id = ? AND cm2.user_id != ?
		 LIMIT ?`,
		userID, userID, limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *communityRepository) Join(ctx context.Context, communityID, userID uint, role models.CommunityRole) error {
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO community_members (community_id, user_id, role, created_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (community_id, user_id) DO NOTHING`,
		communityID, userID, role,
	)
	return result.Error
}

func (r *communityRepository) Leave(ctx context.Context, communityID, userID uint) error {
	return r.db.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&models.CommunityMember{}).Error
}

func (r *communityRepository) IsMember(ctx context.Context, communityID, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}
