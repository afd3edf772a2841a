package service

import (
	"context"
	"time"

	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/ranking"
	"chirp/internal/repository"
)

const (
	// CandidateWindow bounds how far back tweet candidates are pulled from.
	CandidateWindow = 7 * 24 * time.Hour
	// TrendingWindow bounds the trending feed and hashtag aggregation.
	TrendingWindow = 24 * time.Hour

	userCandidateLimit      = 100
	communityCandidateLimit = 100
	signalTagLimit          = 50
)

// RecommendationService assembles candidate pools, scores them with the
// ranking package and serves paged recommendation feeds.
type RecommendationService struct {
	tweetRepo     repository.TweetRepository
	userRepo      repository.UserRepository
	communityRepo repository.CommunityRepository

	// now is swappable for deterministic tests.
	now func() time.Time
	// refreshAsync is disabled in tests so recomputes run inline.
	refreshAsync bool
}

// NewRecommendationService returns a new RecommendationService.
func NewRecommendationService(
	tweetRepo repository.TweetRepository,
	userRepo repository.UserRepository,
	communityRepo repository.CommunityRepository,
) *RecommendationService {
	return &RecommendationService{
		tweetRepo:     tweetRepo,
		userRepo:      userRepo,
		communityRepo: communityRepo,
		now:           time.Now,
		refreshAsync:  true,
	}
}

// RecommendedTweets returns a personalized, ranked page of tweets the user
// has not engaged with. An empty candidate pool falls back to the sitewide
// recent feed.
func (s *RecommendationService) RecommendedTweets(ctx context.Context, userID uint, page, limit int) ([]*models.Tweet, bool, error) {
	if limit <= 0 {
		return nil, false, models.NewValidationError("limit must be positive")
	}
	if page < 1 {
		page = 1
	}
	now := s.now()

	candidates, err := s.tweetRepo.ListCandidates(ctx, userID, now.Add(-CandidateWindow), ranking.MaxTweetCandidates)
	if err != nil {
		return nil, false, err
	}
	observability.RankingCandidates.WithLabelValues("tweets").Observe(float64(len(candidates)))

	if len(candidates) == 0 {
		observability.RankingFallbacks.WithLabelValues("tweets").Inc()
		recent, err := s.tweetRepo.ListRecent(ctx, limit, (page-1)*limit, userID)
		if err != nil {
			return nil, false, err
		}
		return recent, len(recent) == limit, nil
	}

	s.refreshStaleEngagement(ctx, candidates)

	followingIDs, err := s.userRepo.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	followedSet := ranking.NewFollowSet(followingIDs)

	interactedAuthors, err := s.tweetRepo.InteractedAuthorIDs(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	interactedSet := ranking.NewFollowSet(interactedAuthors)

	actorTags, err := s.actorHashtagSet(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	communityIDs, err := s.communityRepo.MemberCommunityIDs(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	communitySet := make(map[uint]struct{}, len(communityIDs))
	for _, id := range communityIDs {
		communitySet[id] = struct{}{}
	}

	similar, err := similarUserPool(ctx, s.userRepo, followedSet, followingIDs, interactedAuthors)
	if err != nil {
		return nil, false, err
	}

	tweetIDs := make([]uint, len(candidates))
	for i, t := range candidates {
		tweetIDs[i] = t.ID
	}
	collab, err := s.tweetRepo.CountEngagementBy(ctx, tweetIDs, similar)
	if err != nil {
		return nil, false, err
	}

	scored := make([]ranking.Scored[*models.Tweet], 0, len(candidates))
	for _, t := range candidates {
		if t.User == nil {
			// Author row missing (deleted mid-request); drop the candidate
			// rather than failing the page.
			continue
		}

		overlap := 0
		for tag := range t.HashtagSet() {
			if _, ok := actorTags[tag]; ok {
				overlap++
			}
		}
		inCommunity := false
		if t.CommunityID != nil {
			_, inCommunity = communitySet[*t.CommunityID]
		}
		_, interacted := interactedSet[t.UserID]
		_, followed := followedSet[t.UserID]

		sig := ranking.TweetSignals{
			CreatedAt:       t.CreatedAt,
			EngagementScore: t.EngagementScore,
			Counts: ranking.EngagementCounts{
				Likes:    t.LikesCount,
				Retweets: t.RetweetsCount,
				Replies:  t.RepliesCount,
				Quotes:   t.QuoteTweetsCount,
				Views:    t.ViewsCount,
			},
			HashtagOverlap:   overlap,
			InActorCommunity: inCommunity,
			InteractedAuthor: interacted,
			SimilarLikes:     collab[t.ID].Likes,
			SimilarRetweets:  collab[t.ID].Retweets,
			AuthorFollowed:   followed,
		}
		scored = append(scored, ranking.Scored[*models.Tweet]{Item: t, Score: ranking.TweetScore(sig, now)})
	}

	ranking.Rank(scored)
	items, hasMore := ranking.Page(scored, page, limit)
	return items, hasMore, nil
}

// RecommendedUsers returns a ranked who-to-follow page: friends of friends,
// community co-members and authors posting on the user's hashtags first,
// most-followed accounts as the fallback.
func (s *RecommendationService) RecommendedUsers(ctx context.Context, userID uint, page, limit int) ([]*models.User, bool, error) {
	if limit <= 0 {
		return nil, false, models.NewValidationError("limit must be positive")
	}
	if page < 1 {
		page = 1
	}

	followingIDs, err := s.userRepo.GetFollowingIDs(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	followedSet := ranking.NewFollowSet(followingIDs)

	fof, err := s.userRepo.FriendsOfFriends(ctx, userID, userCandidateLimit)
	if err != nil {
		return nil, false, err
	}
	coMembers, err := s.communityRepo.CoMemberIDs(ctx, userID, userCandidateLimit)
	if err != nil {
		return nil, false, err
	}
	authorTags, err := s.tweetRepo.AuthorHashtags(ctx, userID, signalTagLimit)
	if err != nil {
		return nil, false, err
	}
	tagAuthors, err := s.tweetRepo.AuthorsByHashtags(ctx, authorTags, userCandidateLimit)
	if err != nil {
		return nil, false, err
	}

	seen := make(map[uint]struct{}, len(fof)+len(coMembers)+len(tagAuthors))
	candidateIDs := make([]uint, 0, len(fof)+len(coMembers)+len(tagAuthors))
	for _, id := range append(append(fof, coMembers...), tagAuthors...) {
		if id == userID {
			continue
		}
		if _, ok := followedSet[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		candidateIDs = append(candidateIDs, id)
	}

	var users []*models.User
	if len(candidateIDs) > 0 {
		users, err = s.userRepo.ListByIDs(ctx, candidateIDs, userID)
	} else {
		observability.RankingFallbacks.WithLabelValues("users").Inc()
		users, err = s.userRepo.MostFollowed(ctx, userCandidateLimit, userID)
	}
	if err != nil {
		return nil, false, err
	}
	observability.RankingCandidates.WithLabelValues("users").Observe(float64(len(users)))

	scored := make([]ranking.Scored[*models.User], 0, len(users))
	for _, u := range users {
		if u.ID == userID {
			continue
		}
		if _, ok := followedSet[u.ID]; ok {
			continue
		}
		sig := ranking.UserSignals{
			FollowersCount: u.FollowersCount,
			TweetsCount:    u.TweetsCount,
			IsVerified:     u.IsVerified,
			HasBio:         u.Bio != "",
			HasAvatar:      u.ProfileImageURL != "",
		}
		scored = append(scored, ranking.Scored[*models.User]{Item: u, Score: ranking.UserScore(sig)})
	}

	ranking.Rank(scored)
	items, hasMore := ranking.Page(scored, page, limit)
	return items, hasMore, nil
}

// RecommendedCommunities returns a ranked page of communities the user has
// not joined, scored against the categories and tags of their memberships
// plus the hashtags they tweet about.
func (s *RecommendationService) RecommendedCommunities(ctx context.Context, userID uint, page, limit int) ([]*models.Community, bool, error) {
	if limit <= 0 {
		return nil, false, models.NewValidationError("limit must be positive")
	}
	if page < 1 {
		page = 1
	}

	mine, err := s.communityRepo.ListByMember(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	myCategories := make(map[models.CommunityCategory]struct{}, len(mine))
	myTags := make(map[string]struct{})
	for _, c := range mine {
		myCategories[c.Category] = struct{}{}
		for tag := range c.TagSet() {
			myTags[tag] = struct{}{}
		}
	}
	authorTags, err := s.tweetRepo.AuthorHashtags(ctx, userID, signalTagLimit)
	if err != nil {
		return nil, false, err
	}
	for _, tag := range authorTags {
		myTags[tag] = struct{}{}
	}

	candidates, err := s.communityRepo.ListCandidates(ctx, userID, communityCandidateLimit)
	if err != nil {
		return nil, false, err
	}
	observability.RankingCandidates.WithLabelValues("communities").Observe(float64(len(candidates)))

	scored := make([]ranking.Scored[*models.Community], 0, len(candidates))
	for _, c := range candidates {
		overlap := 0
		for tag := range c.TagSet() {
			if _, ok := myTags[tag]; ok {
				overlap++
			}
		}
		_, categoryMatch := myCategories[c.Category]

		sig := ranking.CommunitySignals{
			CategoryMatch:   categoryMatch,
			TagOverlap:      overlap,
			MembersCount:    c.MembersCount,
			TweetsCount:     c.TweetsCount,
			CreatorVerified: c.Creator != nil && c.Creator.IsVerified,
		}
		scored = append(scored, ranking.Scored[*models.Community]{Item: c, Score: ranking.CommunityScore(sig)})
	}

	ranking.Rank(scored)
	items, hasMore := ranking.Page(scored, page, limit)
	return items, hasMore, nil
}

// AnonymousFeed serves signed-out visitors: tweets on currently trending
// hashtags plus verified authors, newest first.
func (s *RecommendationService) AnonymousFeed(ctx context.Context, page, limit int) ([]*models.Tweet, bool, error) {
	if limit <= 0 {
		return nil, false, models.NewValidationError("limit must be positive")
	}
	if page < 1 {
		page = 1
	}

	trending, err := s.TrendingHashtags(ctx, 10, 24)
	if err != nil {
		return nil, false, err
	}
	tags := make([]string, len(trending))
	for i, t := range trending {
		tags[i] = t.Tag
	}

	tweets, err := s.tweetRepo.ListAnonymous(ctx, tags, limit, (page-1)*limit)
	if err != nil {
		return nil, false, err
	}
	return tweets, len(tweets) == limit, nil
}

// Trending returns the most engaged tweets of the last day.
func (s *RecommendationService) Trending(ctx context.Context, page, limit int, currentUserID uint) ([]*models.Tweet, bool, error) {
	if limit <= 0 {
		return nil, false, models.NewValidationError("limit must be positive")
	}
	if page < 1 {
		page = 1
	}
	tweets, err := s.tweetRepo.ListTrending(ctx, s.now().Add(-TrendingWindow), limit, (page-1)*limit, currentUserID)
	if err != nil {
		return nil, false, err
	}
	return tweets, len(tweets) == limit, nil
}

// TrendingHashtags returns the top hashtags of the given timeframe, cached
// briefly since the aggregate is identical for every caller.
func (s *RecommendationService) TrendingHashtags(ctx context.Context, limit, timeframeHours int) ([]models.TrendingHashtag, error) {
	if limit <= 0 {
		limit = 10
	}
	if timeframeHours <= 0 {
		timeframeHours = 24
	}

	var tags []models.TrendingHashtag
	err := cache.Aside(ctx, cache.TrendingHashtagsKey(limit, timeframeHours), &tags, cache.TrendingTTL, func() error {
		var fetchErr error
		tags, fetchErr = s.tweetRepo.TrendingHashtags(ctx, s.now().Add(-time.Duration(timeframeHours)*time.Hour), limit)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// TrendingUsers returns the most followed accounts. The anonymous result is
// cached; authenticated calls bypass the cache so the followed flag is fresh.
func (s *RecommendationService) TrendingUsers(ctx context.Context, limit int, currentUserID uint) ([]*models.User, error) {
	if limit <= 0 {
		limit = 10
	}

	if currentUserID != 0 {
		return s.userRepo.MostFollowed(ctx, limit, currentUserID)
	}

	var users []*models.User
	err := cache.Aside(ctx, cache.TrendingUsersKey(limit), &users, cache.TrendingTTL, func() error {
		var fetchErr error
		users, fetchErr = s.userRepo.MostFollowed(ctx, limit, 0)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// actorHashtagSet is the user's hashtag taste profile: tags they tweeted
// plus tags on tweets they engaged with.
func (s *RecommendationService) actorHashtagSet(ctx context.Context, userID uint) (map[string]struct{}, error) {
	own, err := s.tweetRepo.AuthorHashtags(ctx, userID, signalTagLimit)
	if err != nil {
		return nil, err
	}
	interacted, err := s.tweetRepo.InteractedHashtags(ctx, userID, signalTagLimit)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(own)+len(interacted))
	for _, tag := range own {
		set[tag] = struct{}{}
	}
	for _, tag := range interacted {
		set[tag] = struct{}{}
	}
	return set, nil
}

// similarUserPool builds the bounded similarity pool (followed users plus
// authors the user engaged with) and filters it by Jaccard similarity of
// following sets. Shared by the recommendation and timeline paths.
func similarUserPool(ctx context.Context, userRepo repository.UserRepository, seed ranking.FollowSet, followingIDs, interactedAuthors []uint) ([]uint, error) {
	poolIDs := make([]uint, 0, ranking.MaxSimilarityPool)
	seen := make(map[uint]struct{}, ranking.MaxSimilarityPool)
	for _, id := range append(append([]uint{}, followingIDs...), interactedAuthors...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		poolIDs = append(poolIDs, id)
		if len(poolIDs) == ranking.MaxSimilarityPool {
			break
		}
	}
	if len(poolIDs) == 0 {
		return nil, nil
	}

	sets, err := userRepo.GetFollowingSets(ctx, poolIDs)
	if err != nil {
		return nil, err
	}
	pool := make([]ranking.PoolMember, 0, len(poolIDs))
	for _, id := range poolIDs {
		pool = append(pool, ranking.PoolMember{
			UserID:    id,
			Following: ranking.NewFollowSet(sets[id]),
		})
	}
	return ranking.SimilarUsers(seed, pool), nil
}

// refreshStaleEngagement recomputes cached engagement scores for candidates
// whose score is older than the staleness window. The fresh value is used for
// this request immediately; persistence happens in the background and never
// blocks or fails the page.
func (s *RecommendationService) refreshStaleEngagement(ctx context.Context, tweets []*models.Tweet) {
	now := s.now()
	var stale []*models.Tweet
	for _, t := range tweets {
		if !ranking.Stale(t.LastEngagement, now) {
			continue
		}
		counts := ranking.EngagementCounts{
			Likes:    t.LikesCount,
			Retweets: t.RetweetsCount,
			Replies:  t.RepliesCount,
			Quotes:   t.QuoteTweetsCount,
			Views:    t.ViewsCount,
		}
		t.EngagementScore = ranking.EngagementScore(counts, t.CreatedAt, now)
		t.LastEngagement = now
		stale = append(stale, t)
	}
	if len(stale) == 0 {
		return
	}

	persist := func() {
		// Detached from the request context so an early client disconnect
		// does not abort the writes.
		bgCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, t := range stale {
			if err := s.tweetRepo.UpdateEngagement(bgCtx, t.ID, t.EngagementScore, t.LastEngagement); err != nil {
				observability.EngagementRefreshes.WithLabelValues("error").Inc()
				observability.GlobalLogger.WarnContext(ctx, "failed to persist engagement score",
					"tweet_id", t.ID, "error", err.Error())
				continue
			}
			observability.EngagementRefreshes.WithLabelValues("ok").Inc()
		}
	}

	if s.refreshAsync {
		go persist()
	} else {
		persist()
	}
}
