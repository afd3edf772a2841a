// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the Chirp application.
//
// FollowersCount, FollowingCount and TweetsCount are not persisted columns;
// they are computed at query time from the follows and tweets tables, so they
// can never drift out of sync with the underlying sets.
type User struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	Username        string `gorm:"unique;not null" json:"username"`
	DisplayName     string `gorm:"not null" json:"display_name"`
	Email           string `gorm:"unique;not null" json:"email"`
	Password        string `gorm:"not null" json:"-"`
	Bio             string `json:"bio"`
	ProfileImageURL string `json:"profile_image_url"`
	BannerImageURL  string `json:"banner_image_url"`
	Location        string `json:"location"`
	Website         string `json:"website"`
	IsVerified      bool   `gorm:"default:false" json:"is_verified"`
	IsPrivate       bool   `gorm:"default:false" json:"is_private"`
	Language        string `gorm:"default:en" json:"language"`
	// FollowersCount is not persisted; computed at query time
	FollowersCount int `gorm:"->" json:"followers_count"`
	// FollowingCount is not persisted; computed at query time
	FollowingCount int `gorm:"->" json:"following_count"`
	// TweetsCount is not persisted; computed at query time
	TweetsCount int `gorm:"->" json:"tweets_count"`
	// Followed indicates whether the current requesting user follows this user (computed)
	Followed  bool           `gorm:"->" json:"followed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Follow is a directed edge in the follow graph.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index;uniqueIndex:idx_follower_followee" json:"follower_id"`
	FolloweeID uint      `gorm:"not null;index;uniqueIndex:idx_follower_followee" json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
