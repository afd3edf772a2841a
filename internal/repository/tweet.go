package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"chirp/internal/cache"
	"chirp/internal/models"

	"gorm.io/gorm"
)

// TimelineQuery describes a home timeline page request. Beyond the follow
// graph it carries the viewer's discovery signals: the handle for mention
// matches, engaged and trending hashtags, and similar authors.
type TimelineQuery struct {
	UserID           uint
	FollowingIDs     []uint
	CommunityIDs     []uint
	MentionHandle    string
	Hashtags         []string
	SimilarAuthorIDs []uint
	Limit            int
	Offset           int
}

// SimilarEngagement aggregates likes and retweets on a tweet by a fixed set
// of users. Used for collaborative scoring.
type SimilarEngagement struct {
	TweetID  uint
	Likes    int
	Retweets int
}

// TweetRepository defines persistence operations for tweets, their
// interaction sets and the aggregates the ranking engine reads.
type TweetRepository interface {
	Create(ctx context.Context, tweet *models.Tweet) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Tweet, error)
	Delete(ctx context.Context, id uint, userID uint) error
	DeleteRetweetOf(ctx context.Context, userID, originalTweetID uint) error

	ListTimeline(ctx context.Context, q TimelineQuery) ([]*models.Tweet, error)
	ListByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Tweet, error)
	ListCandidates(ctx context.Context, userID uint, since time.Time, limit int) ([]*models.Tweet, error)
	ListRecent(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Tweet, error)
	ListAnonymous(ctx context.Context, trendingTags []string, limit, offset int) ([]*models.Tweet, error)
	ListTrending(ctx context.Context, since time.Time, limit, offset int, currentUserID uint) ([]*models.Tweet, error)

	TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]models.TrendingHashtag, error)
	AuthorHashtags(ctx context.Context, userID uint, limit int) ([]string, error)
	AuthorsByHashtags(ctx context.Context, tags []string, limit int) ([]uint, error)
	InteractedHashtags(ctx context.Context, userID uint, limit int) ([]string, error)
	InteractedAuthorIDs(ctx context.Context, userID uint) ([]uint, error)
	CountEngagementBy(ctx context.Context, tweetIDs, userIDs []uint) (map[uint]SimilarEngagement, error)

	Like(ctx context.Context, userID, tweetID uint) error
	Unlike(ctx context.Context, userID, tweetID uint) error
	HasLiked(ctx context.Context, userID, tweetID uint) (bool, error)
	AddRetweetMembership(ctx context.Context, userID, tweetID uint) error
	RemoveRetweetMembership(ctx context.Context, userID, tweetID uint) error
	HasRetweeted(ctx context.Context, userID, tweetID uint) (bool, error)
	AddView(ctx context.Context, userID, tweetID uint) error

	UpdateEngagement(ctx context.Context, id uint, score int, at time.Time) error
}

type tweetRepository struct {
	db *gorm.DB
}

// NewTweetRepository returns a new TweetRepository implementation.
func NewTweetRepository(db *gorm.DB) TweetRepository {
	return &tweetRepository{db: db}
}

// applyTweetDetails adds subqueries that compute interaction counters and
// liked status in a single query. Every counter is derived from its backing
// table; nothing is stored on the tweet row itself.
func (r *tweetRepository) applyTweetDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "tweets.*, " +
		"(SELECT COUNT(*) FROM tweet_likes WHERE tweet_likes.tweet_id = tweets.id) as likes_count, " +
		"(SELECT COUNT(*) FROM tweet_retweets WHERE tweet_retweets.tweet_id = tweets.id) as retweets_count, " +
		"(SELECT COUNT(*) FROM tweets replies WHERE replies.reply_to_tweet_id = tweets.id AND replies.deleted_at IS NULL) as replies_count, " +
		"(SELECT COUNT(*) FROM tweets quotes WHERE quotes.quoted_tweet_id = tweets.id AND quotes.deleted_at IS NULL) as quote_tweets_count, " +
		"(SELECT COUNT(*) FROM tweet_views WHERE tweet_views.tweet_id = tweets.id) as views_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM tweet_likes WHERE tweet_likes.tweet_id = tweets.id AND tweet_likes.user_id = ?) as liked", currentUserID)
	}
	return db.Select(selectQuery + ", false as liked")
}

func (r *tweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	tweet.ExtractEntities()
	if err := r.db.WithContext(ctx).Create(tweet).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *tweetRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Tweet, error) {
	var tweet models.Tweet

	fetch := func() error {
		if err := r.applyTweetDetails(r.db.WithContext(ctx), currentUserID).
			Preload("User").
			Preload("Hashtags").
			Preload("Mentions").
			Preload("URLs").
			First(&tweet, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Tweet", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	}

	var err error
	if currentUserID == 0 {
		err = cache.Aside(ctx, cache.TweetKey(id), &tweet, cache.TweetTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		return nil, err
	}
	return &tweet, nil
}

func (r *tweetRepository) Delete(ctx context.Context, id uint, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Tweet{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Tweet", id)
	}
	cache.InvalidateTweet(ctx, id)
	return nil
}

// DeleteRetweetOf removes the retweet row a user created for an original
// tweet. The membership row is removed separately.
func (r *tweetRepository) DeleteRetweetOf(ctx context.Context, userID, originalTweetID uint) error {
	if err := r.db.WithContext(ctx).
		Where("is_retweet = ? AND original_tweet_id = ? AND user_id = ?", true, originalTweetID, userID).
		Delete(&models.Tweet{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListTimeline returns the timeline candidate union: tweets by the viewer,
// followed and similar authors, tweets in the viewer's communities, tweets
// mentioning the viewer, and tweets on the viewer's engaged or trending
// hashtags. Newest first with engagement as the tiebreaker.
func (r *tweetRepository) ListTimeline(ctx context.Context, q TimelineQuery) ([]*models.Tweet, error) {
	authorIDs := append([]uint{q.UserID}, q.FollowingIDs...)
	authorIDs = append(authorIDs, q.SimilarAuthorIDs...)

	conds := []string{"tweets.user_id IN ?"}
	args := []interface{}{authorIDs}
	if len(q.CommunityIDs) > 0 {
		conds = append(conds, "tweets.community_id IN ?")
		args = append(args, q.CommunityIDs)
	}
	if q.MentionHandle != "" {
		conds = append(conds, "tweets.id IN (SELECT tweet_id FROM tweet_mentions WHERE handle = ?)")
		args = append(args, q.MentionHandle)
	}
	if len(q.Hashtags) > 0 {
		conds = append(conds, "tweets.id IN (SELECT tweet_id FROM tweet_hashtags WHERE tag IN ?)")
		args = append(args, q.Hashtags)
	}

	db := r.applyTweetDetails(r.db.WithContext(ctx), q.UserID).
		Preload("User").
		Preload("Hashtags").
		Where(strings.Join(conds, " OR "), args...)

	var tweets []*models.Tweet
	if err := db.
		Order("tweets.created_at DESC, tweets.engagement_score DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) ListByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	if err := r.applyTweetDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Preload("Hashtags").
		Where("tweets.user_id = ?", userID).
		Order("tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

// ListCandidates returns the recommendation candidate pool for a user:
// recent original tweets by other authors that the user has not liked or
// retweeted yet.
func (r *tweetRepository) ListCandidates(ctx context.Context, userID uint, since time.Time, limit int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	if err := r.applyTweetDetails(r.db.WithContext(ctx), userID).
		Preload("User").
		Preload("Hashtags").
		Where("tweets.user_id != ?", userID).
		Where("tweets.is_retweet = ?", false).
		Where("tweets.created_at > ?", since).
		Where("tweets.id NOT IN (SELECT tweet_id FROM tweet_likes WHERE user_id = ?)", userID).
		Where("tweets.id NOT IN (SELECT tweet_id FROM tweet_retweets WHERE user_id = ?)", userID).
		Order("tweets.created_at DESC").
		Limit(limit).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) ListRecent(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	if err := r.applyTweetDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Preload("Hashtags").
		Where("tweets.is_retweet = ?", false).
		Order("tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

// ListAnonymous serves the signed-out feed: tweets carrying a currently
// trending hashtag or written by verified authors, newest first.
func (r *tweetRepository) ListAnonymous(ctx context.Context, trendingTags []string, limit, offset int) ([]*models.Tweet, error) {
	db := r.applyTweetDetails(r.db.WithContext(ctx), 0).
		Preload("User").
		Preload("Hashtags").
		Where("tweets.is_retweet = ?", false)

	if len(trendingTags) > 0 {
		db = db.Where(
			"tweets.id IN (SELECT tweet_id FROM tweet_hashtags WHERE tag IN ?) OR tweets.user_id IN (SELECT id FROM users WHERE is_verified = ?)",
			trendingTags, true,
		)
	} else {
		db = db.Where("tweets.user_id IN (SELECT id FROM users WHERE is_verified = ?)", true)
	}

	var tweets []*models.Tweet
	if err := db.
		Order("tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) ListTrending(ctx context.Context, since time.Time, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	if err := r.applyTweetDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Preload("Hashtags").
		Where("tweets.is_retweet = ?", false).
		Where("tweets.created_at > ?", since).
		Order("tweets.engagement_score DESC, tweets.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&tweets).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return tweets, nil
}

func (r *tweetRepository) TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]models.TrendingHashtag, error) {
	var rows []models.TrendingHashtag
	err := r.db.WithContext(ctx).Raw(
		`SELECT th.tag, COUNT(*) as count, COALESCE(SUM(t.engagement_score), 0) as engagement_sum
		 FROM tweet_hashtags th
		 JOIN tweets t ON t.id = th.tweet_id
		 WHERE t.created_at > ? AND t.deleted_at IS NULL
		 GROUP BY th.tag
		 ORDER BY count DESC, engagement_sum DESC
		 LIMIT ?`,
		since, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return rows, nil
}

// AuthorHashtags returns the distinct hashtags the user has tweeted,
// most recently used first.
func (r *tweetRepository) AuthorHashtags(ctx context.Context, userID uint, limit int) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT th.tag
		 FROM tweet_hashtags th
		 JOIN tweets t ON t.id = th.tweet_id
		 WHERE t.user_id = ? AND t.deleted_at IS NULL
		 GROUP BY th.tag
		 ORDER BY MAX(t.created_at) DESC
		 LIMIT ?`,
		userID, limit,
	).Scan(&tags).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

// AuthorsByHashtags returns the distinct authors of tweets carrying any of
// the given hashtags.
func (r *tweetRepository) AuthorsByHashtags(ctx context.Context, tags []string, limit int) ([]uint, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT t.user_id
		 FROM tweets t
		 JOIN tweet_hashtags th ON th.tweet_id = t.id
		 WHERE th.tag IN ? AND t.deleted_at IS NULL
		 LIMIT ?`,
		tags, limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// InteractedHashtags returns the distinct hashtags on tweets the user has
// liked or retweeted.
func (r *tweetRepository) InteractedHashtags(ctx context.Context, userID uint, limit int) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT th.tag
		 FROM tweet_hashtags th
		 WHERE th.tweet_id IN (
		     SELECT tweet_id FROM tweet_likes WHERE user_id = ?
		     UNION
		     SELECT tweet_id FROM tweet_retweets WHERE user_id = ?
		 )
		 LIMIT ?`,
		userID, userID, limit,
	).Scan(&tags).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tags, nil
}

// InteractedAuthorIDs returns the authors whose tweets the user has liked or
// retweeted.
func (r *tweetRepository) InteractedAuthorIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Raw(
		`SELECT DISTINCT t.user_id
		 FROM tweets t
		 WHERE t.id IN (
		     SELECT tweet_id FROM tweet_likes WHERE user_id = ?
		     UNION
		     SELECT tweet_id FROM tweet_retweets WHERE user_id = ?
		 ) AND t.user_id != ?`,
		userID, userID, userID,
	).Scan(&ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

// CountEngagementBy aggregates, per tweet, how many of the given users liked
// and retweeted it.
func (r *tweetRepository) CountEngagementBy(ctx context.Context, tweetIDs, userIDs []uint) (map[uint]SimilarEngagement, error) {
	out := make(map[uint]SimilarEngagement)
	if len(tweetIDs) == 0 || len(userIDs) == 0 {
		return out, nil
	}

	type aggRow struct {
		TweetID uint
		N       int
	}

	var likeRows []aggRow
	if err := r.db.WithContext(ctx).
		Model(&models.TweetLike{}).
		Select("tweet_id, COUNT(*) as n").
		Where("tweet_id IN ? AND user_id IN ?", tweetIDs, userIDs).
		Group("tweet_id").
		Scan(&likeRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range likeRows {
		agg := out[row.TweetID]
		agg.TweetID = row.TweetID
		agg.Likes = row.N
		out[row.TweetID] = agg
	}

	var rtRows []aggRow
	if err := r.db.WithContext(ctx).
		Model(&models.TweetRetweet{}).
		Select("tweet_id, COUNT(*) as n").
		Where("tweet_id IN ? AND user_id IN ?", tweetIDs, userIDs).
		Group("tweet_id").
		Scan(&rtRows).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rtRows {
		agg := out[row.TweetID]
		agg.TweetID = row.TweetID
		agg.Retweets = row.N
		out[row.TweetID] = agg
	}

	return out, nil
}

func (r *tweetRepository) Like(ctx context.Context, userID, tweetID uint) error {
	// INSERT ... ON CONFLICT DO NOTHING keeps double-likes idempotent.
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO tweet_likes (user_id, tweet_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, tweet_id) DO NOTHING`,
		userID, tweetID,
	)
	if result.Error == nil {
		cache.InvalidateTweet(ctx, tweetID)
	}
	return result.Error
}

func (r *tweetRepository) Unlike(ctx context.Context, userID, tweetID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Delete(&models.TweetLike{}).Error
	if err == nil {
		cache.InvalidateTweet(ctx, tweetID)
	}
	return err
}

func (r *tweetRepository) HasLiked(ctx context.Context, userID, tweetID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TweetLike{}).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *tweetRepository) AddRetweetMembership(ctx context.Context, userID, tweetID uint) error {
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO tweet_retweets (user_id, tweet_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, tweet_id) DO NOTHING`,
		userID, tweetID,
	)
	if result.Error == nil {
		cache.InvalidateTweet(ctx, tweetID)
	}
	return result.Error
}

func (r *tweetRepository) RemoveRetweetMembership(ctx context.Context, userID, tweetID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Delete(&models.TweetRetweet{}).Error
	if err == nil {
		cache.InvalidateTweet(ctx, tweetID)
	}
	return err
}

func (r *tweetRepository) HasRetweeted(ctx context.Context, userID, tweetID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TweetRetweet{}).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *tweetRepository) AddView(ctx context.Context, userID, tweetID uint) error {
	// Repeat views by the same user are a single membership row.
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO tweet_views (user_id, tweet_id, viewed_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, tweet_id) DO NOTHING`,
		userID, tweetID,
	)
	return result.Error
}

func (r *tweetRepository) UpdateEngagement(ctx context.Context, id uint, score int, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&models.Tweet{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"engagement_score": score,
			"last_engagement":  at,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateTweet(ctx, id)
	return nil
}
