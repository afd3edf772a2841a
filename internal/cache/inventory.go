package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix            = "user:%d"
	TweetKeyPrefix           = "tweet:%d"
	TrendingHashtagsPrefix   = "trending:hashtags:%d:%d"
	TrendingUsersPrefix      = "trending:users:%d"
	WebSocketTicketKeyPrefix = "ws:ticket:%s"
)

const (
	UserTTL            = 5 * time.Minute
	TweetTTL           = 30 * time.Minute
	TrendingTTL        = 5 * time.Minute
	WebSocketTicketTTL = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func TweetKey(tweetID uint) string {
	return fmt.Sprintf(TweetKeyPrefix, tweetID)
}

func TrendingHashtagsKey(limit, timeframeHours int) string {
	return fmt.Sprintf(TrendingHashtagsPrefix, limit, timeframeHours)
}

func TrendingUsersKey(limit int) string {
	return fmt.Sprintf(TrendingUsersPrefix, limit)
}

func WebSocketTicketKey(ticket string) string {
	return fmt.Sprintf(WebSocketTicketKeyPrefix, ticket)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateTweet(ctx context.Context, tweetID uint) {
	Invalidate(ctx, TweetKey(tweetID))
}
