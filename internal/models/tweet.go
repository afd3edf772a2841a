package models

import (
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"
)

// MaxTweetLength is the maximum number of characters in a tweet's content.
const MaxTweetLength = 280

// Tweet represents a tweet, retweet, quote or reply.
//
// A retweet is a distinct Tweet row pointing at the original via
// OriginalTweetID; retweeting never mutates the original. The interaction
// counters are computed at query time from their backing tables
// (tweet_likes, tweet_retweets, tweet_views and tweet rows for replies and
// quotes). EngagementScore and LastEngagement are derived, cached fields
// recomputed by the ranking engine.
type Tweet struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"not null;index" json:"user_id"`
	User        *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content     string `gorm:"type:text;not null" json:"content"`
	ImageURLs   string `json:"image_urls,omitempty"`
	CommunityID *uint  `gorm:"index" json:"community_id,omitempty"`

	// Retweet variant
	IsRetweet         bool  `gorm:"default:false;index" json:"is_retweet"`
	OriginalTweetID   *uint `gorm:"index" json:"original_tweet_id,omitempty"`
	RetweetedByUserID *uint `json:"retweeted_by_user_id,omitempty"`
	// Quote variant
	QuotedTweetID *uint `gorm:"index" json:"quoted_tweet_id,omitempty"`
	// Reply variant
	ReplyToTweetID *uint `gorm:"index" json:"reply_to_tweet_id,omitempty"`
	ReplyToUserID  *uint `json:"reply_to_user_id,omitempty"`

	// Derived from content whenever it changes
	Hashtags []TweetHashtag `gorm:"foreignKey:TweetID" json:"hashtags,omitempty"`
	Mentions []TweetMention `gorm:"foreignKey:TweetID" json:"mentions,omitempty"`
	URLs     []TweetURL     `gorm:"foreignKey:TweetID" json:"urls,omitempty"`

	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->" json:"likes_count"`
	// RetweetsCount is not persisted; computed at query time
	RetweetsCount int `gorm:"->" json:"retweets_count"`
	// RepliesCount is not persisted; computed at query time
	RepliesCount int `gorm:"->" json:"replies_count"`
	// QuoteTweetsCount is not persisted; computed at query time
	QuoteTweetsCount int `gorm:"->" json:"quote_tweets_count"`
	// ViewsCount is not persisted; computed at query time
	ViewsCount int `gorm:"->" json:"views_count"`
	// Liked indicates whether the current requesting user liked this tweet (computed)
	Liked bool `gorm:"->" json:"liked"`

	// Cached engagement metric, recomputed by the ranking engine when stale
	EngagementScore int       `gorm:"default:0;index" json:"engagement_score"`
	LastEngagement  time.Time `json:"last_engagement"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TweetHashtag is a lowercase hashtag extracted from a tweet's content.
type TweetHashtag struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	TweetID uint   `gorm:"not null;index;uniqueIndex:idx_tweet_tag" json:"-"`
	Tag     string `gorm:"not null;index;uniqueIndex:idx_tweet_tag" json:"tag"`
}

// TweetMention is a lowercase @handle extracted from a tweet's content.
type TweetMention struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	TweetID uint   `gorm:"not null;index;uniqueIndex:idx_tweet_mention" json:"-"`
	Handle  string `gorm:"not null;index;uniqueIndex:idx_tweet_mention" json:"handle"`
}

// TweetURL is a URL extracted from a tweet's content.
type TweetURL struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	TweetID uint   `gorm:"not null;index" json:"-"`
	URL     string `gorm:"not null" json:"url"`
}

// TweetLike is a membership row in a tweet's likedBy set.
type TweetLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_like_user_tweet" json:"user_id"`
	TweetID   uint      `gorm:"not null;index;uniqueIndex:idx_like_user_tweet" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TweetRetweet is a membership row in a tweet's retweetedBy set. The retweet
// itself is a separate Tweet row; this table exists so set-membership queries
// (already-retweeted exclusion, collaborative scoring) stay cheap.
type TweetRetweet struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index;uniqueIndex:idx_rt_user_tweet" json:"user_id"`
	TweetID   uint      `gorm:"not null;index;uniqueIndex:idx_rt_user_tweet" json:"tweet_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TweetView is a membership row in a tweet's viewedBy set.
type TweetView struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;index;uniqueIndex:idx_view_user_tweet" json:"user_id"`
	TweetID  uint      `gorm:"not null;index;uniqueIndex:idx_view_user_tweet" json:"tweet_id"`
	ViewedAt time.Time `json:"viewed_at"`
}

var (
	hashtagPattern = regexp.MustCompile(`#[a-zA-Z0-9_]+`)
	mentionPattern = regexp.MustCompile(`@[a-zA-Z0-9_]+`)
	urlPattern     = regexp.MustCompile(`https?://[^\s]+`)
)

// ExtractEntities recomputes the hashtag, mention and URL rows from the
// tweet's content. Call it whenever Content changes, before persisting.
func (t *Tweet) ExtractEntities() {
	t.Hashtags = t.Hashtags[:0]
	for _, tag := range dedupeLower(hashtagPattern.FindAllString(t.Content, -1)) {
		t.Hashtags = append(t.Hashtags, TweetHashtag{TweetID: t.ID, Tag: tag})
	}
	t.Mentions = t.Mentions[:0]
	for _, handle := range dedupeLower(mentionPattern.FindAllString(t.Content, -1)) {
		t.Mentions = append(t.Mentions, TweetMention{TweetID: t.ID, Handle: handle})
	}
	t.URLs = t.URLs[:0]
	seen := make(map[string]struct{})
	for _, u := range urlPattern.FindAllString(t.Content, -1) {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		t.URLs = append(t.URLs, TweetURL{TweetID: t.ID, URL: u})
	}
}

// HashtagSet returns the tweet's hashtags as a lookup set.
func (t *Tweet) HashtagSet() map[string]struct{} {
	set := make(map[string]struct{}, len(t.Hashtags))
	for _, h := range t.Hashtags {
		set[h.Tag] = struct{}{}
	}
	return set
}

// dedupeLower strips the leading sigil, lowercases and deduplicates matches,
// preserving first-seen order.
func dedupeLower(matches []string) []string {
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		v := strings.ToLower(m[1:])
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// TrendingHashtag is an aggregate row produced by the trending query.
type TrendingHashtag struct {
	Tag           string `json:"tag"`
	Count         int    `json:"count"`
	EngagementSum int    `json:"engagement_sum"`
}
