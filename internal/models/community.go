package models

import (
	"time"

	"gorm.io/gorm"
)

// CommunityCategory is the closed set of community categories.
type CommunityCategory string

const (
	CategoryTechnology    CommunityCategory = "Technology"
	CategoryDesign        CommunityCategory = "Design"
	CategoryBusiness      CommunityCategory = "Business"
	CategoryEntertainment CommunityCategory = "Entertainment"
	CategorySports        CommunityCategory = "Sports"
	CategoryGaming        CommunityCategory = "Gaming"
	CategoryArt           CommunityCategory = "Art"
	CategoryMusic         CommunityCategory = "Music"
	CategoryOther         CommunityCategory = "Other"
)

// ValidCategory reports whether c is a known community category.
func ValidCategory(c CommunityCategory) bool {
	switch c {
	case CategoryTechnology, CategoryDesign, CategoryBusiness, CategoryEntertainment,
		CategorySports, CategoryGaming, CategoryArt, CategoryMusic, CategoryOther:
		return true
	}
	return false
}

// CommunityRole is the closed set of membership roles.
type CommunityRole string

const (
	RoleMember    CommunityRole = "member"
	RoleModerator CommunityRole = "moderator"
)

// Community is a topical group of users. MembersCount and TweetsCount are
// computed at query time from community_members and tweets, so they stay in
// sync with the underlying sets.
type Community struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"unique;not null" json:"name"`
	Description     string            `gorm:"type:text;not null" json:"description"`
	ProfileImageURL string            `json:"profile_image_url"`
	BannerImageURL  string            `json:"banner_image_url"`
	CreatorID       uint              `gorm:"not null;index" json:"creator_id"`
	Creator         *User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Category        CommunityCategory `gorm:"not null;index" json:"category"`
	Tags            []CommunityTag    `gorm:"foreignKey:CommunityID" json:"tags,omitempty"`
	IsPrivate       bool              `gorm:"default:false" json:"is_private"`
	IsActive        bool              `gorm:"default:true;index" json:"is_active"`
	// MembersCount is not persisted; computed at query time
	MembersCount int `gorm:"->" json:"members_count"`
	// TweetsCount is not persisted; computed at query time
	TweetsCount int            `gorm:"->" json:"tweets_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// CommunityTag is a lowercase topic tag attached to a community.
type CommunityTag struct {
	ID          uint   `gorm:"primaryKey" json:"-"`
	CommunityID uint   `gorm:"not null;index;uniqueIndex:idx_community_tag" json:"-"`
	Tag         string `gorm:"not null;index;uniqueIndex:idx_community_tag" json:"tag"`
}

// CommunityMember is a membership row; moderators are a subset of members.
type CommunityMember struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CommunityID uint          `gorm:"not null;index;uniqueIndex:idx_community_user" json:"community_id"`
	UserID      uint          `gorm:"not null;index;uniqueIndex:idx_community_user" json:"user_id"`
	Role        CommunityRole `gorm:"not null;default:member" json:"role"`
	CreatedAt   time.Time     `json:"created_at"`
}

// TagSet returns the community's tags as a lookup set.
func (c *Community) TagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Tags))
	for _, t := range c.Tags {
		set[t.Tag] = struct{}{}
	}
	return set
}
