package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"chirp/internal/models"
	"chirp/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tweetRepoStub is a stub for repository.TweetRepository.
type tweetRepoStub struct {
	createFn              func(context.Context, *models.Tweet) error
	getByIDFn             func(context.Context, uint, uint) (*models.Tweet, error)
	deleteFn              func(context.Context, uint, uint) error
	deleteRetweetOfFn     func(context.Context, uint, uint) error
	listTimelineFn        func(context.Context, repository.TimelineQuery) ([]*models.Tweet, error)
	listByUserIDFn        func(context.Context, uint, int, int, uint) ([]*models.Tweet, error)
	listCandidatesFn      func(context.Context, uint, time.Time, int) ([]*models.Tweet, error)
	listRecentFn          func(context.Context, int, int, uint) ([]*models.Tweet, error)
	listAnonymousFn       func(context.Context, []string, int, int) ([]*models.Tweet, error)
	listTrendingFn        func(context.Context, time.Time, int, int, uint) ([]*models.Tweet, error)
	trendingHashtagsFn    func(context.Context, time.Time, int) ([]models.TrendingHashtag, error)
	authorHashtagsFn      func(context.Context, uint, int) ([]string, error)
	authorsByHashtagsFn   func(context.Context, []string, int) ([]uint, error)
	interactedHashtagsFn  func(context.Context, uint, int) ([]string, error)
	interactedAuthorsFn   func(context.Context, uint) ([]uint, error)
	countEngagementByFn   func(context.Context, []uint, []uint) (map[uint]repository.SimilarEngagement, error)
	likeFn                func(context.Context, uint, uint) error
	unlikeFn              func(context.Context, uint, uint) error
	hasLikedFn            func(context.Context, uint, uint) (bool, error)
	addRetweetFn          func(context.Context, uint, uint) error
	removeRetweetFn       func(context.Context, uint, uint) error
	hasRetweetedFn        func(context.Context, uint, uint) (bool, error)
	addViewFn             func(context.Context, uint, uint) error
	updateEngagementFn    func(context.Context, uint, int, time.Time) error
}

func (s *tweetRepoStub) Create(ctx context.Context, t *models.Tweet) error {
	return s.createFn(ctx, t)
}
func (s *tweetRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Tweet, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *tweetRepoStub) Delete(ctx context.Context, id, userID uint) error {
	return s.deleteFn(ctx, id, userID)
}
func (s *tweetRepoStub) DeleteRetweetOf(ctx context.Context, userID, originalTweetID uint) error {
	return s.deleteRetweetOfFn(ctx, userID, originalTweetID)
}
func (s *tweetRepoStub) ListTimeline(ctx context.Context, q repository.TimelineQuery) ([]*models.Tweet, error) {
	return s.listTimelineFn(ctx, q)
}
func (s *tweetRepoStub) ListByUserID(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	return s.listByUserIDFn(ctx, userID, limit, offset, currentUserID)
}
func (s *tweetRepoStub) ListCandidates(ctx context.Context, userID uint, since time.Time, limit int) ([]*models.Tweet, error) {
	return s.listCandidatesFn(ctx, userID, since, limit)
}
func (s *tweetRepoStub) ListRecent(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	return s.listRecentFn(ctx, limit, offset, currentUserID)
}
func (s *tweetRepoStub) ListAnonymous(ctx context.Context, trendingTags []string, limit, offset int) ([]*models.Tweet, error) {
	return s.listAnonymousFn(ctx, trendingTags, limit, offset)
}
func (s *tweetRepoStub) ListTrending(ctx context.Context, since time.Time, limit, offset int, currentUserID uint) ([]*models.Tweet, error) {
	return s.listTrendingFn(ctx, since, limit, offset, currentUserID)
}
func (s *tweetRepoStub) TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]models.TrendingHashtag, error) {
	return s.trendingHashtagsFn(ctx, since, limit)
}
func (s *tweetRepoStub) AuthorHashtags(ctx context.Context, userID uint, limit int) ([]string, error) {
	return s.authorHashtagsFn(ctx, userID, limit)
}
func (s *tweetRepoStub) AuthorsByHashtags(ctx context.Context, tags []string, limit int) ([]uint, error) {
	return s.authorsByHashtagsFn(ctx, tags, limit)
}
func (s *tweetRepoStub) InteractedHashtags(ctx context.Context, userID uint, limit int) ([]string, error) {
	return s.interactedHashtagsFn(ctx, userID, limit)
}
func (s *tweetRepoStub) InteractedAuthorIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.interactedAuthorsFn(ctx, userID)
}
func (s *tweetRepoStub) CountEngagementBy(ctx context.Context, tweetIDs, userIDs []uint) (map[uint]repository.SimilarEngagement, error) {
	return s.countEngagementByFn(ctx, tweetIDs, userIDs)
}
func (s *tweetRepoStub) Like(ctx context.Context, userID, tweetID uint) error {
	return s.likeFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) Unlike(ctx context.Context, userID, tweetID uint) error {
	return s.unlikeFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) HasLiked(ctx context.Context, userID, tweetID uint) (bool, error) {
	return s.hasLikedFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) AddRetweetMembership(ctx context.Context, userID, tweetID uint) error {
	return s.addRetweetFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) RemoveRetweetMembership(ctx context.Context, userID, tweetID uint) error {
	return s.removeRetweetFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) HasRetweeted(ctx context.Context, userID, tweetID uint) (bool, error) {
	return s.hasRetweetedFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) AddView(ctx context.Context, userID, tweetID uint) error {
	return s.addViewFn(ctx, userID, tweetID)
}
func (s *tweetRepoStub) UpdateEngagement(ctx context.Context, id uint, score int, at time.Time) error {
	return s.updateEngagementFn(ctx, id, score, at)
}

func noopTweetRepo() *tweetRepoStub {
	return &tweetRepoStub{
		createFn:          func(_ context.Context, _ *models.Tweet) error { return nil },
		getByIDFn:         func(_ context.Context, id, _ uint) (*models.Tweet, error) { return &models.Tweet{ID: id}, nil },
		deleteFn:          func(_ context.Context, _, _ uint) error { return nil },
		deleteRetweetOfFn: func(_ context.Context, _, _ uint) error { return nil },
		listTimelineFn: func(_ context.Context, _ repository.TimelineQuery) ([]*models.Tweet, error) {
			return nil, nil
		},
		listByUserIDFn: func(_ context.Context, _ uint, _, _ int, _ uint) ([]*models.Tweet, error) {
			return nil, nil
		},
		listCandidatesFn: func(_ context.Context, _ uint, _ time.Time, _ int) ([]*models.Tweet, error) {
			return nil, nil
		},
		listRecentFn: func(_ context.Context, _, _ int, _ uint) ([]*models.Tweet, error) { return nil, nil },
		listAnonymousFn: func(_ context.Context, _ []string, _, _ int) ([]*models.Tweet, error) {
			return nil, nil
		},
		listTrendingFn: func(_ context.Context, _ time.Time, _, _ int, _ uint) ([]*models.Tweet, error) {
			return nil, nil
		},
		trendingHashtagsFn: func(_ context.Context, _ time.Time, _ int) ([]models.TrendingHashtag, error) {
			return nil, nil
		},
		authorHashtagsFn:     func(_ context.Context, _ uint, _ int) ([]string, error) { return nil, nil },
		authorsByHashtagsFn:  func(_ context.Context, _ []string, _ int) ([]uint, error) { return nil, nil },
		interactedHashtagsFn: func(_ context.Context, _ uint, _ int) ([]string, error) { return nil, nil },
		interactedAuthorsFn:  func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		countEngagementByFn: func(_ context.Context, _, _ []uint) (map[uint]repository.SimilarEngagement, error) {
			return map[uint]repository.SimilarEngagement{}, nil
		},
		likeFn:             func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:           func(_ context.Context, _, _ uint) error { return nil },
		hasLikedFn:         func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		addRetweetFn:       func(_ context.Context, _, _ uint) error { return nil },
		removeRetweetFn:    func(_ context.Context, _, _ uint) error { return nil },
		hasRetweetedFn:     func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		addViewFn:          func(_ context.Context, _, _ uint) error { return nil },
		updateEngagementFn: func(_ context.Context, _ uint, _ int, _ time.Time) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn          func(context.Context, uint, uint) (*models.User, error)
	getByUsernameFn    func(context.Context, string, uint) (*models.User, error)
	getByEmailFn       func(context.Context, string) (*models.User, error)
	createFn           func(context.Context, *models.User) error
	updateFn           func(context.Context, *models.User) error
	searchFn           func(context.Context, string, int, int, uint) ([]*models.User, error)
	listByIDsFn        func(context.Context, []uint, uint) ([]*models.User, error)
	mostFollowedFn     func(context.Context, int, uint) ([]*models.User, error)
	friendsOfFriendsFn func(context.Context, uint, int) ([]uint, error)
	followFn           func(context.Context, uint, uint) error
	unfollowFn         func(context.Context, uint, uint) error
	isFollowingFn      func(context.Context, uint, uint) (bool, error)
	getFollowingIDsFn  func(context.Context, uint) ([]uint, error)
	getFollowingSetsFn func(context.Context, []uint) (map[uint][]uint, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.User, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string, currentUserID uint) (*models.User, error) {
	return s.getByUsernameFn(ctx, username, currentUserID)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) Create(ctx context.Context, u *models.User) error { return s.createFn(ctx, u) }
func (s *userRepoStub) Update(ctx context.Context, u *models.User) error { return s.updateFn(ctx, u) }
func (s *userRepoStub) Search(ctx context.Context, query string, limit, offset int, currentUserID uint) ([]*models.User, error) {
	return s.searchFn(ctx, query, limit, offset, currentUserID)
}
func (s *userRepoStub) ListByIDs(ctx context.Context, ids []uint, currentUserID uint) ([]*models.User, error) {
	return s.listByIDsFn(ctx, ids, currentUserID)
}
func (s *userRepoStub) MostFollowed(ctx context.Context, limit int, currentUserID uint) ([]*models.User, error) {
	return s.mostFollowedFn(ctx, limit, currentUserID)
}
func (s *userRepoStub) FriendsOfFriends(ctx context.Context, userID uint, limit int) ([]uint, error) {
	return s.friendsOfFriendsFn(ctx, userID, limit)
}
func (s *userRepoStub) Follow(ctx context.Context, followerID, followeeID uint) error {
	return s.followFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) Unfollow(ctx context.Context, followerID, followeeID uint) error {
	return s.unfollowFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followeeID)
}
func (s *userRepoStub) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.getFollowingIDsFn(ctx, userID)
}
func (s *userRepoStub) GetFollowingSets(ctx context.Context, userIDs []uint) (map[uint][]uint, error) {
	return s.getFollowingSetsFn(ctx, userIDs)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id, _ uint) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		getByUsernameFn: func(_ context.Context, _ string, _ uint) (*models.User, error) { return nil, nil },
		getByEmailFn:    func(_ context.Context, _ string) (*models.User, error) { return nil, nil },
		createFn:        func(_ context.Context, _ *models.User) error { return nil },
		updateFn:        func(_ context.Context, _ *models.User) error { return nil },
		searchFn: func(_ context.Context, _ string, _, _ int, _ uint) ([]*models.User, error) {
			return nil, nil
		},
		listByIDsFn:        func(_ context.Context, _ []uint, _ uint) ([]*models.User, error) { return nil, nil },
		mostFollowedFn:     func(_ context.Context, _ int, _ uint) ([]*models.User, error) { return nil, nil },
		friendsOfFriendsFn: func(_ context.Context, _ uint, _ int) ([]uint, error) { return nil, nil },
		followFn:           func(_ context.Context, _, _ uint) error { return nil },
		unfollowFn:         func(_ context.Context, _, _ uint) error { return nil },
		isFollowingFn:      func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		getFollowingIDsFn:  func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		getFollowingSetsFn: func(_ context.Context, _ []uint) (map[uint][]uint, error) {
			return map[uint][]uint{}, nil
		},
	}
}

// communityRepoStub is a stub for repository.CommunityRepository.
type communityRepoStub struct {
	createFn             func(context.Context, *models.Community) error
	getByIDFn            func(context.Context, uint) (*models.Community, error)
	listFn               func(context.Context, int, int) ([]*models.Community, error)
	listByMemberFn       func(context.Context, uint) ([]*models.Community, error)
	listCandidatesFn     func(context.Context, uint, int) ([]*models.Community, error)
	memberCommunityIDsFn func(context.Context, uint) ([]uint, error)
	coMemberIDsFn        func(context.Context, uint, int) ([]uint, error)
	joinFn               func(context.Context, uint, uint, models.CommunityRole) error
	leaveFn              func(context.Context, uint, uint) error
	isMemberFn           func(context.Context, uint, uint) (bool, error)
}

func (s *communityRepoStub) Create(ctx context.Context, c *models.Community) error {
	return s.createFn(ctx, c)
}
func (s *communityRepoStub) GetByID(ctx context.Context, id uint) (*models.Community, error) {
	return s.getByIDFn(ctx, id)
}
func (s *communityRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Community, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *communityRepoStub) ListByMember(ctx context.Context, userID uint) ([]*models.Community, error) {
	return s.listByMemberFn(ctx, userID)
}
func (s *communityRepoStub) ListCandidates(ctx context.Context, userID uint, limit int) ([]*models.Community, error) {
	return s.listCandidatesFn(ctx, userID, limit)
}
func (s *communityRepoStub) MemberCommunityIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.memberCommunityIDsFn(ctx, userID)
}
func (s *communityRepoStub) CoMemberIDs(ctx context.Context, userID uint, limit int) ([]uint, error) {
	return s.coMemberIDsFn(ctx, userID, limit)
}
func (s *communityRepoStub) Join(ctx context.Context, communityID, userID uint, role models.CommunityRole) error {
	return s.joinFn(ctx, communityID, userID, role)
}
func (s *communityRepoStub) Leave(ctx context.Context, communityID, userID uint) error {
	return s.leaveFn(ctx, communityID, userID)
}
func (s *communityRepoStub) IsMember(ctx context.Context, communityID, userID uint) (bool, error) {
	return s.isMemberFn(ctx, communityID, userID)
}

func noopCommunityRepo() *communityRepoStub {
	return &communityRepoStub{
		createFn: func(_ context.Context, _ *models.Community) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Community, error) {
			return &models.Community{ID: id, IsActive: true}, nil
		},
		listFn:               func(_ context.Context, _, _ int) ([]*models.Community, error) { return nil, nil },
		listByMemberFn:       func(_ context.Context, _ uint) ([]*models.Community, error) { return nil, nil },
		listCandidatesFn:     func(_ context.Context, _ uint, _ int) ([]*models.Community, error) { return nil, nil },
		memberCommunityIDsFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		coMemberIDsFn:        func(_ context.Context, _ uint, _ int) ([]uint, error) { return nil, nil },
		joinFn:               func(_ context.Context, _, _ uint, _ models.CommunityRole) error { return nil },
		leaveFn:              func(_ context.Context, _, _ uint) error { return nil },
		isMemberFn:           func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
	}
}

// notifRepoStub is a stub for repository.NotificationRepository.
type notifRepoStub struct {
	createFn      func(context.Context, *models.Notification) error
	listByUserFn  func(context.Context, uint, int, int) ([]*models.Notification, error)
	unreadCountFn func(context.Context, uint) (int64, error)
	markReadFn    func(context.Context, uint, uint) error
	markAllReadFn func(context.Context, uint) error
}

func (s *notifRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notifRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.Notification, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *notifRepoStub) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}
func (s *notifRepoStub) MarkRead(ctx context.Context, id, userID uint) error {
	return s.markReadFn(ctx, id, userID)
}
func (s *notifRepoStub) MarkAllRead(ctx context.Context, userID uint) error {
	return s.markAllReadFn(ctx, userID)
}

func noopNotifRepo() *notifRepoStub {
	return &notifRepoStub{
		createFn: func(_ context.Context, _ *models.Notification) error { return nil },
		listByUserFn: func(_ context.Context, _ uint, _, _ int) ([]*models.Notification, error) {
			return nil, nil
		},
		unreadCountFn: func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		markReadFn:    func(_ context.Context, _, _ uint) error { return nil },
		markAllReadFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// emitterStub records emitted notifications.
type emitterStub struct {
	emitted []*models.Notification
}

func (s *emitterStub) Emit(_ context.Context, n *models.Notification) {
	s.emitted = append(s.emitted, n)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
