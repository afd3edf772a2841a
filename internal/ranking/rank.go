package ranking

import (
	"math"
	"sort"
	"time"
)

// MaxTweetCandidates caps the candidate pool scored in one request.
const MaxTweetCandidates = 200

// Tweet ranking weights. The formula is additive-then-multiplicative in a
// fixed order; see TweetScore.
const (
	engagementWeight    = 0.3
	contentWeight       = 0.4
	collaborativeWeight = 0.2
	qualityWeight       = 0.1
	followedAuthorBoost = 1.2

	hashtagOverlapPoints    = 2.0
	communityMatchPoints    = 3.0
	authorInteractionPoints = 2.0

	similarLikePoints    = 1.5
	similarRetweetPoints = 2.0

	qualityCap = 5.0
)

// TweetSignals carries the per-candidate inputs to TweetScore.
type TweetSignals struct {
	CreatedAt       time.Time
	EngagementScore int // cached score; its own decay is already baked in
	Counts          EngagementCounts

	HashtagOverlap   int  // tags shared with the actor's recent hashtags
	InActorCommunity bool // tweet posted in a community the actor belongs to
	InteractedAuthor bool // actor previously engaged with this author

	SimilarLikes    int // likes from the similar-user set
	SimilarRetweets int // retweets from the similar-user set

	AuthorFollowed bool
}

// QualityScore is the engagement-rate signal: interactions per view, scaled
// and capped at 5 so division by near-zero views cannot dominate.
func QualityScore(c EngagementCounts) float64 {
	rate := float64(c.Likes+c.Retweets+c.Replies) / math.Max(float64(c.Views), 1)
	return math.Min(rate*10, qualityCap)
}

// TweetScore combines the sub-scores into a final ranking score, in this
// exact order: engagement, content, collaborative, time decay, quality, and
// the affinity boost last. Note the cached EngagementScore was already
// decayed when it was computed, so age is penalized twice on this path; that
// matches the observed behavior of the feed and is kept deliberately.
func TweetScore(s TweetSignals, now time.Time) float64 {
	total := float64(s.EngagementScore) * engagementWeight

	content := float64(s.HashtagOverlap) * hashtagOverlapPoints
	if s.InActorCommunity {
		content += communityMatchPoints
	}
	if s.InteractedAuthor {
		content += authorInteractionPoints
	}
	total += content * contentWeight

	collaborative := float64(s.SimilarLikes)*similarLikePoints +
		float64(s.SimilarRetweets)*similarRetweetPoints
	total += collaborative * collaborativeWeight

	total *= DecayFactor(s.CreatedAt, now)

	total += QualityScore(s.Counts) * qualityWeight

	if s.AuthorFollowed {
		total *= followedAuthorBoost
	}
	return total
}

// UserSignals carries the inputs to UserScore.
type UserSignals struct {
	FollowersCount int
	TweetsCount    int
	IsVerified     bool
	HasBio         bool
	HasAvatar      bool
}

// UserScore ranks a who-to-follow candidate. Follower count is log-scaled so
// mega-accounts do not drown out everyone else; there is no time-decay term
// since profiles do not age the way content does.
func UserScore(s UserSignals) float64 {
	score := math.Log10(float64(s.FollowersCount)+1) * 2
	if s.IsVerified {
		score += 3
	}
	score += math.Min(float64(s.TweetsCount)/100, 5)
	if s.HasBio {
		score++
	}
	if s.HasAvatar {
		score++
	}
	return score
}

// CommunitySignals carries the inputs to CommunityScore.
type CommunitySignals struct {
	CategoryMatch   bool
	TagOverlap      int
	MembersCount    int
	TweetsCount     int
	CreatorVerified bool
}

// CommunityScore ranks a community suggestion.
func CommunityScore(s CommunitySignals) float64 {
	score := 0.0
	if s.CategoryMatch {
		score += 5
	}
	score += float64(s.TagOverlap) * 2
	score += math.Log10(float64(s.MembersCount) + 1)
	score += math.Min(float64(s.TweetsCount)/10, 3)
	if s.CreatorVerified {
		score++
	}
	return score
}

// Scored pairs an entity with its transient ranking score. It exists only
// for the duration of one ranking request and is never persisted.
type Scored[T any] struct {
	Item  T
	Score float64
}

// Rank sorts candidates by score descending. The sort is stable: equal-score
// items keep their insertion order, so ranking the same snapshot twice yields
// the same order and pagination never reorders ties between pages.
func Rank[T any](candidates []Scored[T]) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
}

// Page slices a ranked candidate list into the requested page. hasMore
// follows the length-equals-limit convention.
func Page[T any](candidates []Scored[T], page, limit int) (items []T, hasMore bool) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	if offset >= len(candidates) {
		return []T{}, false
	}
	end := offset + limit
	if end > len(candidates) {
		end = len(candidates)
	}
	items = make([]T, 0, end-offset)
	for _, c := range candidates[offset:end] {
		items = append(items, c.Item)
	}
	return items, len(items) == limit
}
