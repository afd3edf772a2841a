package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/ranking"
	"chirp/internal/repository"
)

// notificationEmitter decouples services from notification delivery.
type notificationEmitter interface {
	Emit(ctx context.Context, n *models.Notification)
}

// TweetService implements tweet authoring and interaction flows.
type TweetService struct {
	tweetRepo     repository.TweetRepository
	userRepo      repository.UserRepository
	communityRepo repository.CommunityRepository
	notifier      notificationEmitter
}

// NewTweetService returns a new TweetService. notifier may be nil.
func NewTweetService(
	tweetRepo repository.TweetRepository,
	userRepo repository.UserRepository,
	communityRepo repository.CommunityRepository,
	notifier notificationEmitter,
) *TweetService {
	return &TweetService{
		tweetRepo:     tweetRepo,
		userRepo:      userRepo,
		communityRepo: communityRepo,
		notifier:      notifier,
	}
}

// CreateTweetInput is the payload for a new top-level tweet.
type CreateTweetInput struct {
	UserID      uint
	Content     string
	ImageURLs   string
	CommunityID *uint
}

// ReplyInput is the payload for a reply tweet.
type ReplyInput struct {
	UserID  uint
	TweetID uint
	Content string
}

// QuoteInput is the payload for a quote tweet.
type QuoteInput struct {
	UserID  uint
	TweetID uint
	Content string
}

// TimelineInput is a home timeline page request.
type TimelineInput struct {
	UserID uint
	Page   int
	Limit  int
}

func validateContent(content string) error {
	if content == "" {
		return models.NewValidationError("Content is required")
	}
	if utf8.RuneCountInString(content) > models.MaxTweetLength {
		return models.NewValidationError("Content exceeds 280 characters")
	}
	return nil
}

// CreateTweet validates and persists a new tweet, then notifies any
// mentioned users.
func (s *TweetService) CreateTweet(ctx context.Context, in CreateTweetInput) (*models.Tweet, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	if in.CommunityID != nil {
		member, err := s.communityRepo.IsMember(ctx, *in.CommunityID, in.UserID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, models.NewUnauthorizedError("You must join the community before posting in it")
		}
	}

	tweet := &models.Tweet{
		UserID:      in.UserID,
		Content:     in.Content,
		ImageURLs:   in.ImageURLs,
		CommunityID: in.CommunityID,
	}
	if err := s.tweetRepo.Create(ctx, tweet); err != nil {
		return nil, err
	}

	s.notifyMentions(ctx, tweet)
	return s.tweetRepo.GetByID(ctx, tweet.ID, in.UserID)
}

// ReplyToTweet creates a reply and notifies the author of the original tweet.
func (s *TweetService) ReplyToTweet(ctx context.Context, in ReplyInput) (*models.Tweet, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	original, err := s.tweetRepo.GetByID(ctx, in.TweetID, in.UserID)
	if err != nil {
		return nil, err
	}

	reply := &models.Tweet{
		UserID:         in.UserID,
		Content:        in.Content,
		ReplyToTweetID: &original.ID,
		ReplyToUserID:  &original.UserID,
	}
	if err := s.tweetRepo.Create(ctx, reply); err != nil {
		return nil, err
	}

	s.emit(ctx, models.NotificationReply, in.UserID, original.UserID, &original.ID)
	s.notifyMentions(ctx, reply)
	return s.tweetRepo.GetByID(ctx, reply.ID, in.UserID)
}

// QuoteTweet creates a quote tweet and notifies the quoted author.
func (s *TweetService) QuoteTweet(ctx context.Context, in QuoteInput) (*models.Tweet, error) {
	if err := validateContent(in.Content); err != nil {
		return nil, err
	}

	original, err := s.tweetRepo.GetByID(ctx, in.TweetID, in.UserID)
	if err != nil {
		return nil, err
	}

	quote := &models.Tweet{
		UserID:        in.UserID,
		Content:       in.Content,
		QuotedTweetID: &original.ID,
	}
	if err := s.tweetRepo.Create(ctx, quote); err != nil {
		return nil, err
	}

	s.emit(ctx, models.NotificationQuote, in.UserID, original.UserID, &original.ID)
	s.notifyMentions(ctx, quote)
	return s.tweetRepo.GetByID(ctx, quote.ID, in.UserID)
}

// Retweet creates a retweet row pointing at the original. Retweeting the same
// tweet twice is a conflict; the original tweet is never mutated.
func (s *TweetService) Retweet(ctx context.Context, userID, tweetID uint) (*models.Tweet, error) {
	original, err := s.tweetRepo.GetByID(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}
	if original.UserID == userID {
		return nil, models.NewValidationError("You cannot retweet your own tweet")
	}

	already, err := s.tweetRepo.HasRetweeted(ctx, userID, tweetID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, models.NewConflictError("Tweet already retweeted")
	}

	retweet := &models.Tweet{
		UserID:            userID,
		Content:           original.Content,
		IsRetweet:         true,
		OriginalTweetID:   &original.ID,
		RetweetedByUserID: &userID,
	}
	if err := s.tweetRepo.Create(ctx, retweet); err != nil {
		return nil, err
	}
	if err := s.tweetRepo.AddRetweetMembership(ctx, userID, tweetID); err != nil {
		return nil, err
	}

	s.emit(ctx, models.NotificationRetweet, userID, original.UserID, &original.ID)
	return s.tweetRepo.GetByID(ctx, retweet.ID, userID)
}

// UnRetweet removes the user's retweet of a tweet.
func (s *TweetService) UnRetweet(ctx context.Context, userID, tweetID uint) error {
	if err := s.tweetRepo.RemoveRetweetMembership(ctx, userID, tweetID); err != nil {
		return err
	}
	return s.tweetRepo.DeleteRetweetOf(ctx, userID, tweetID)
}

// ToggleLike likes the tweet if not yet liked, otherwise removes the like.
// Returns the refreshed tweet.
func (s *TweetService) ToggleLike(ctx context.Context, userID, tweetID uint) (*models.Tweet, error) {
	tweet, err := s.tweetRepo.GetByID(ctx, tweetID, userID)
	if err != nil {
		return nil, err
	}

	liked, err := s.tweetRepo.HasLiked(ctx, userID, tweetID)
	if err != nil {
		return nil, err
	}

	if liked {
		if err := s.tweetRepo.Unlike(ctx, userID, tweetID); err != nil {
			return nil, err
		}
	} else {
		if err := s.tweetRepo.Like(ctx, userID, tweetID); err != nil {
			return nil, err
		}
		s.emit(ctx, models.NotificationLike, userID, tweet.UserID, &tweet.ID)
	}

	return s.tweetRepo.GetByID(ctx, tweetID, userID)
}

// GetTweet loads a tweet. Authenticated reads count as a view; repeat views
// by the same user stay a single row.
func (s *TweetService) GetTweet(ctx context.Context, id, currentUserID uint) (*models.Tweet, error) {
	tweet, err := s.tweetRepo.GetByID(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if currentUserID != 0 {
		if viewErr := s.tweetRepo.AddView(ctx, currentUserID, id); viewErr != nil {
			observability.GlobalLogger.WarnContext(ctx, "failed to record tweet view",
				"tweet_id", id, "error", viewErr.Error())
		}
	}
	return tweet, nil
}

// DeleteTweet soft-deletes a tweet owned by the caller.
func (s *TweetService) DeleteTweet(ctx context.Context, userID, tweetID uint) error {
	return s.tweetRepo.Delete(ctx, tweetID, userID)
}

// GetUserTweets returns a page of a user's tweets, newest first.
func (s *TweetService) GetUserTweets(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	return s.tweetRepo.ListByUserID(ctx, userID, limit, offset, currentUserID)
}

// Timeline returns the user's home timeline: the union of their own tweets,
// followed and similar authors, joined communities, tweets mentioning them
// and tweets on their engaged or trending hashtags, newest first with
// engagement as the tiebreaker. A first page that comes back empty falls
// back to the sitewide recent feed.
func (s *TweetService) Timeline(ctx context.Context, in TimelineInput) ([]*models.Tweet, bool, error) {
	if in.Limit <= 0 {
		return nil, false, models.NewValidationError("limit must be positive")
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * in.Limit

	viewer, err := s.userRepo.GetByID(ctx, in.UserID, in.UserID)
	if err != nil {
		return nil, false, err
	}
	followingIDs, err := s.userRepo.GetFollowingIDs(ctx, in.UserID)
	if err != nil {
		return nil, false, err
	}
	communityIDs, err := s.communityRepo.MemberCommunityIDs(ctx, in.UserID)
	if err != nil {
		return nil, false, err
	}

	tags, err := s.timelineHashtags(ctx, in.UserID)
	if err != nil {
		return nil, false, err
	}
	interactedAuthors, err := s.tweetRepo.InteractedAuthorIDs(ctx, in.UserID)
	if err != nil {
		return nil, false, err
	}
	similar, err := similarUserPool(ctx, s.userRepo, ranking.NewFollowSet(followingIDs), followingIDs, interactedAuthors)
	if err != nil {
		return nil, false, err
	}

	tweets, err := s.tweetRepo.ListTimeline(ctx, repository.TimelineQuery{
		UserID:           in.UserID,
		FollowingIDs:     followingIDs,
		CommunityIDs:     communityIDs,
		MentionHandle:    strings.ToLower(viewer.Username),
		Hashtags:         tags,
		SimilarAuthorIDs: similar,
		Limit:            in.Limit,
		Offset:           offset,
	})
	if err != nil {
		return nil, false, err
	}

	if len(tweets) == 0 && offset == 0 {
		observability.RankingFallbacks.WithLabelValues("timeline").Inc()
		tweets, err = s.tweetRepo.ListRecent(ctx, in.Limit, 0, in.UserID)
		if err != nil {
			return nil, false, err
		}
	}

	return tweets, len(tweets) == in.Limit, nil
}

// timelineHashtags merges the hashtags on tweets the user engaged with and
// the currently trending tags into one deduplicated set.
func (s *TweetService) timelineHashtags(ctx context.Context, userID uint) ([]string, error) {
	interacted, err := s.tweetRepo.InteractedHashtags(ctx, userID, signalTagLimit)
	if err != nil {
		return nil, err
	}
	trending, err := s.tweetRepo.TrendingHashtags(ctx, time.Now().Add(-TrendingWindow), 10)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(interacted)+len(trending))
	tags := make([]string, 0, len(interacted)+len(trending))
	for _, tag := range interacted {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	for _, t := range trending {
		if _, ok := seen[t.Tag]; ok {
			continue
		}
		seen[t.Tag] = struct{}{}
		tags = append(tags, t.Tag)
	}
	return tags, nil
}

func (s *TweetService) emit(ctx context.Context, kind models.NotificationType, from, to uint, tweetID *uint) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(ctx, &models.Notification{
		Type:       kind,
		FromUserID: from,
		ToUserID:   to,
		TweetID:    tweetID,
	})
}

// notifyMentions resolves @handles in the tweet and notifies each mentioned
// user that exists. Unknown handles are ignored.
func (s *TweetService) notifyMentions(ctx context.Context, tweet *models.Tweet) {
	if s.notifier == nil {
		return
	}
	for _, mention := range tweet.Mentions {
		user, err := s.userRepo.GetByUsername(ctx, mention.Handle, 0)
		if err != nil || user == nil {
			continue
		}
		s.emit(ctx, models.NotificationMention, tweet.UserID, user.ID, &tweet.ID)
	}
}
