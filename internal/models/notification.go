package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationRetweet NotificationType = "retweet"
	NotificationReply   NotificationType = "reply"
	NotificationQuote   NotificationType = "quote"
	NotificationFollow  NotificationType = "follow"
	NotificationMention NotificationType = "mention"
)

// Notification records an interaction directed at a user. Besides feeding the
// notification feed, the like/retweet/reply rows are the signal source for
// the timeline's interacted-hashtags candidates.
type Notification struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	Type       NotificationType `gorm:"not null;index" json:"type"`
	FromUserID uint             `gorm:"not null;index" json:"from_user_id"`
	FromUser   *User            `gorm:"foreignKey:FromUserID" json:"from_user,omitempty"`
	ToUserID   uint             `gorm:"not null;index" json:"to_user_id"`
	TweetID    *uint            `gorm:"index" json:"tweet_id,omitempty"`
	IsRead     bool             `gorm:"default:false;index" json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
	DeletedAt  gorm.DeletedAt   `gorm:"index" json:"-"`
}
