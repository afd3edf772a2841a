package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chirp/internal/models"
	"chirp/internal/ranking"
	"chirp/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecommendationService(tweets *tweetRepoStub, users *userRepoStub, communities *communityRepoStub, now time.Time) *RecommendationService {
	return &RecommendationService{
		tweetRepo:     tweets,
		userRepo:      users,
		communityRepo: communities,
		now:           func() time.Time { return now },
		refreshAsync:  false,
	}
}

func freshTweet(id, authorID uint, createdAt time.Time) *models.Tweet {
	return &models.Tweet{
		ID:              id,
		UserID:          authorID,
		User:            &models.User{ID: authorID},
		CreatedAt:       createdAt,
		LastEngagement:  createdAt,
		EngagementScore: 0,
	}
}

func TestRecommendedTweets_InvalidLimit(t *testing.T) {
	svc := newTestRecommendationService(noopTweetRepo(), noopUserRepo(), noopCommunityRepo(), time.Now())

	_, _, err := svc.RecommendedTweets(context.Background(), 1, 1, 0)
	assertValidationError(t, err)
}

func TestRecommendedTweets_StorageFailureIsFatal(t *testing.T) {
	tweets := noopTweetRepo()
	dbErr := errors.New("connection refused")
	tweets.listCandidatesFn = func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
		return nil, dbErr
	}
	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), time.Now())

	_, _, err := svc.RecommendedTweets(context.Background(), 1, 1, 10)
	assert.ErrorIs(t, err, dbErr)
}

func TestRecommendedTweets_EmptyPoolFallsBackToRecent(t *testing.T) {
	now := time.Now()
	tweets := noopTweetRepo()
	recent := []*models.Tweet{freshTweet(1, 2, now), freshTweet(2, 3, now)}

	var recentCalled bool
	tweets.listRecentFn = func(_ context.Context, limit, offset int, _ uint) ([]*models.Tweet, error) {
		recentCalled = true
		assert.Equal(t, 2, limit)
		assert.Equal(t, 0, offset)
		return recent, nil
	}
	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), now)

	items, hasMore, err := svc.RecommendedTweets(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.True(t, recentCalled)
	assert.Equal(t, recent, items)
	// Full page means there may be more.
	assert.True(t, hasMore)
}

func TestRecommendedTweets_FollowedAuthorRanksFirst(t *testing.T) {
	now := time.Now()
	created := now.Add(-2 * time.Hour)

	// Two candidates identical in every signal except the follow edge.
	unfollowed := freshTweet(1, 50, created)
	followed := freshTweet(2, 60, created)
	unfollowed.EngagementScore = 10
	followed.EngagementScore = 10
	unfollowed.LastEngagement = now
	followed.LastEngagement = now

	tweets := noopTweetRepo()
	tweets.listCandidatesFn = func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
		return []*models.Tweet{unfollowed, followed}, nil
	}
	users := noopUserRepo()
	users.getFollowingIDsFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{60}, nil
	}

	svc := newTestRecommendationService(tweets, users, noopCommunityRepo(), now)
	items, _, err := svc.RecommendedTweets(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint(2), items[0].ID, "followed author should outrank identical unfollowed candidate")
	assert.Equal(t, uint(1), items[1].ID)
}

func TestRecommendedTweets_MissingAuthorExcluded(t *testing.T) {
	now := time.Now()
	ok := freshTweet(1, 2, now)
	ok.LastEngagement = now
	orphan := freshTweet(2, 3, now)
	orphan.User = nil
	orphan.LastEngagement = now

	tweets := noopTweetRepo()
	tweets.listCandidatesFn = func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
		return []*models.Tweet{ok, orphan}, nil
	}

	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), now)
	items, hasMore, err := svc.RecommendedTweets(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(1), items[0].ID)
	assert.False(t, hasMore)
}

func TestRecommendedTweets_StaleEngagementRecomputed(t *testing.T) {
	now := time.Now()
	stale := freshTweet(1, 2, now.Add(-48*time.Hour))
	stale.LastEngagement = now.Add(-2 * time.Hour)
	stale.LikesCount = 10
	stale.RetweetsCount = 2

	var persistedID uint
	var persistedScore int
	tweets := noopTweetRepo()
	tweets.listCandidatesFn = func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
		return []*models.Tweet{stale}, nil
	}
	tweets.updateEngagementFn = func(_ context.Context, id uint, score int, at time.Time) error {
		persistedID = id
		persistedScore = score
		assert.WithinDuration(t, now, at, time.Second)
		return nil
	}

	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), now)
	_, _, err := svc.RecommendedTweets(context.Background(), 5, 1, 10)
	require.NoError(t, err)

	want := ranking.EngagementScore(ranking.EngagementCounts{Likes: 10, Retweets: 2}, stale.CreatedAt, now)
	assert.Equal(t, uint(1), persistedID)
	assert.Equal(t, want, persistedScore)
	assert.Equal(t, want, stale.EngagementScore, "fresh score should be used for the current request")
}

func TestRecommendedTweets_PagingAndHasMore(t *testing.T) {
	now := time.Now()
	var pool []*models.Tweet
	for i := uint(1); i <= 5; i++ {
		tw := freshTweet(i, 100+i, now)
		tw.LastEngagement = now
		pool = append(pool, tw)
	}
	tweets := noopTweetRepo()
	tweets.listCandidatesFn = func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
		return pool, nil
	}
	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), now)

	page1, hasMore, err := svc.RecommendedTweets(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1, 2)
	assert.True(t, hasMore)

	// Page zero clamps to page one.
	page0, _, err := svc.RecommendedTweets(context.Background(), 1, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, page1[0].ID, page0[0].ID)

	page3, hasMore, err := svc.RecommendedTweets(context.Background(), 1, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page3, 1)
	assert.False(t, hasMore)

	page4, hasMore, err := svc.RecommendedTweets(context.Background(), 1, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page4)
	assert.False(t, hasMore)
}

func TestRecommendedUsers_FallbackToMostFollowed(t *testing.T) {
	users := noopUserRepo()
	var fallbackCalled bool
	users.mostFollowedFn = func(_ context.Context, _ int, _ uint) ([]*models.User, error) {
		fallbackCalled = true
		return []*models.User{
			{ID: 2, FollowersCount: 1000, IsVerified: true},
			{ID: 3, FollowersCount: 10},
		}, nil
	}

	svc := newTestRecommendationService(noopTweetRepo(), users, noopCommunityRepo(), time.Now())
	items, _, err := svc.RecommendedUsers(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	assert.True(t, fallbackCalled)
	require.Len(t, items, 2)
	assert.Equal(t, uint(2), items[0].ID, "verified high-follower account should rank first")
}

func TestTrendingUsers(t *testing.T) {
	users := noopUserRepo()
	var gotLimit int
	var gotViewer uint
	users.mostFollowedFn = func(_ context.Context, limit int, currentUserID uint) ([]*models.User, error) {
		gotLimit = limit
		gotViewer = currentUserID
		return []*models.User{{ID: 2}, {ID: 3}}, nil
	}

	svc := newTestRecommendationService(noopTweetRepo(), users, noopCommunityRepo(), time.Now())

	items, err := svc.TrendingUsers(context.Background(), 5, 7)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 5, gotLimit)
	assert.Equal(t, uint(7), gotViewer, "authenticated viewer passes through for the followed flag")

	_, err = svc.TrendingUsers(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, gotLimit, "non-positive limit defaults to 10")
}

func TestRecommendedUsers_ExcludesSelfAndFollowed(t *testing.T) {
	users := noopUserRepo()
	users.getFollowingIDsFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{2}, nil
	}
	users.friendsOfFriendsFn = func(_ context.Context, _ uint, _ int) ([]uint, error) {
		return []uint{2, 3}, nil
	}
	users.listByIDsFn = func(_ context.Context, ids []uint, _ uint) ([]*models.User, error) {
		// Already-followed ID 2 must not reach the batch load.
		assert.Equal(t, []uint{3}, ids)
		return []*models.User{{ID: 3}}, nil
	}

	svc := newTestRecommendationService(noopTweetRepo(), users, noopCommunityRepo(), time.Now())
	items, _, err := svc.RecommendedUsers(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(3), items[0].ID)
}

func TestRecommendedUsers_IncludesHashtagOverlapAuthors(t *testing.T) {
	tweets := noopTweetRepo()
	tweets.authorHashtagsFn = func(_ context.Context, _ uint, _ int) ([]string, error) {
		return []string{"golang"}, nil
	}
	tweets.authorsByHashtagsFn = func(_ context.Context, tags []string, _ int) ([]uint, error) {
		assert.Equal(t, []string{"golang"}, tags)
		// Includes self and an already-followed author to prove filtering.
		return []uint{1, 2, 4}, nil
	}
	users := noopUserRepo()
	users.getFollowingIDsFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{2}, nil
	}
	users.listByIDsFn = func(_ context.Context, ids []uint, _ uint) ([]*models.User, error) {
		assert.Equal(t, []uint{4}, ids)
		return []*models.User{{ID: 4}}, nil
	}

	svc := newTestRecommendationService(tweets, users, noopCommunityRepo(), time.Now())
	items, _, err := svc.RecommendedUsers(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, uint(4), items[0].ID, "author on an overlapping hashtag is a candidate")
}

func TestRecommendedCommunities_CategoryAndTagAffinity(t *testing.T) {
	communities := noopCommunityRepo()
	communities.listByMemberFn = func(_ context.Context, _ uint) ([]*models.Community, error) {
		return []*models.Community{{
			ID:       1,
			Category: models.CategoryTechnology,
			Tags:     []models.CommunityTag{{Tag: "golang"}, {Tag: "backend"}},
		}}, nil
	}
	communities.listCandidatesFn = func(_ context.Context, _ uint, _ int) ([]*models.Community, error) {
		return []*models.Community{
			{ID: 10, Category: models.CategorySports},
			{ID: 11, Category: models.CategoryTechnology, Tags: []models.CommunityTag{{Tag: "golang"}}},
		}, nil
	}

	svc := newTestRecommendationService(noopTweetRepo(), noopUserRepo(), communities, time.Now())
	items, _, err := svc.RecommendedCommunities(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint(11), items[0].ID, "matching category and tags should rank first")
}

func TestRecommendedCommunities_TweetedHashtagsCountTowardOverlap(t *testing.T) {
	tweets := noopTweetRepo()
	tweets.authorHashtagsFn = func(_ context.Context, _ uint, _ int) ([]string, error) {
		return []string{"golang"}, nil
	}
	communities := noopCommunityRepo()
	// No memberships, so the only affinity signal is the tweeted hashtag.
	communities.listCandidatesFn = func(_ context.Context, _ uint, _ int) ([]*models.Community, error) {
		return []*models.Community{
			{ID: 10, Category: models.CategorySports, MembersCount: 50},
			{ID: 11, Category: models.CategoryTechnology, Tags: []models.CommunityTag{{Tag: "golang"}}},
		}, nil
	}

	svc := newTestRecommendationService(tweets, noopUserRepo(), communities, time.Now())
	items, _, err := svc.RecommendedCommunities(context.Background(), 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, uint(11), items[0].ID, "community tagged with a tweeted hashtag ranks first")
}

func TestTrendingHashtags_Defaults(t *testing.T) {
	now := time.Now()
	tweets := noopTweetRepo()
	tweets.trendingHashtagsFn = func(_ context.Context, since time.Time, limit int) ([]models.TrendingHashtag, error) {
		assert.Equal(t, 10, limit)
		assert.WithinDuration(t, now.Add(-24*time.Hour), since, time.Second)
		return []models.TrendingHashtag{{Tag: "golang", Count: 3}}, nil
	}

	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), now)
	tags, err := svc.TrendingHashtags(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "golang", tags[0].Tag)
}

func TestAnonymousFeed_UsesTrendingTags(t *testing.T) {
	now := time.Now()
	tweets := noopTweetRepo()
	tweets.trendingHashtagsFn = func(_ context.Context, _ time.Time, _ int) ([]models.TrendingHashtag, error) {
		return []models.TrendingHashtag{{Tag: "golang"}, {Tag: "fiber"}}, nil
	}
	tweets.listAnonymousFn = func(_ context.Context, tags []string, limit, offset int) ([]*models.Tweet, error) {
		assert.Equal(t, []string{"golang", "fiber"}, tags)
		assert.Equal(t, 20, limit)
		assert.Equal(t, 20, offset) // page 2
		return nil, nil
	}

	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), now)
	items, hasMore, err := svc.AnonymousFeed(context.Background(), 2, 20)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.False(t, hasMore)
}

func TestAnonymousFeed_NoTrendingTagsServesVerifiedAuthors(t *testing.T) {
	tweets := noopTweetRepo()
	tweets.trendingHashtagsFn = func(_ context.Context, _ time.Time, _ int) ([]models.TrendingHashtag, error) {
		return nil, nil
	}
	var gotTags []string
	tweets.listAnonymousFn = func(_ context.Context, tags []string, limit, offset int) ([]*models.Tweet, error) {
		gotTags = tags
		assert.Equal(t, 20, limit)
		assert.Equal(t, 0, offset)
		return []*models.Tweet{{ID: 1, User: &models.User{ID: 9, IsVerified: true}}}, nil
	}

	svc := newTestRecommendationService(tweets, noopUserRepo(), noopCommunityRepo(), time.Now())
	items, hasMore, err := svc.AnonymousFeed(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Empty(t, gotTags, "no trending window means no hashtag branch in the query")
	require.Len(t, items, 1)
	assert.Equal(t, uint(1), items[0].ID)
	assert.False(t, hasMore)
}

func TestRecommendedTweets_CollaborativeSignalQueried(t *testing.T) {
	now := time.Now()
	candidate := freshTweet(7, 99, now)
	candidate.LastEngagement = now

	tweets := noopTweetRepo()
	tweets.listCandidatesFn = func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
		return []*models.Tweet{candidate}, nil
	}
	var collabTweetIDs, collabUserIDs []uint
	tweets.countEngagementByFn = func(_ context.Context, tweetIDs, userIDs []uint) (map[uint]repository.SimilarEngagement, error) {
		collabTweetIDs = tweetIDs
		collabUserIDs = userIDs
		return map[uint]repository.SimilarEngagement{}, nil
	}

	users := noopUserRepo()
	users.getFollowingIDsFn = func(_ context.Context, _ uint) ([]uint, error) {
		return []uint{2, 3}, nil
	}
	// Users 2 and 3 follow nearly the same accounts as the seed user, so both
	// clear the similarity threshold.
	users.getFollowingSetsFn = func(_ context.Context, ids []uint) (map[uint][]uint, error) {
		return map[uint][]uint{
			2: {2, 3},
			3: {2, 3},
		}, nil
	}

	svc := newTestRecommendationService(tweets, users, noopCommunityRepo(), now)
	_, _, err := svc.RecommendedTweets(context.Background(), 1, 1, 10)
	require.NoError(t, err)

	assert.Equal(t, []uint{7}, collabTweetIDs)
	assert.ElementsMatch(t, []uint{2, 3}, collabUserIDs)
}
