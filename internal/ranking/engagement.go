// Package ranking implements the scoring core of the recommendation engine:
// the decaying engagement score, follow-graph similarity, and the candidate
// ranking formulas for tweets, users and communities. Everything in this
// package is a pure function over snapshots; it never touches storage.
package ranking

import (
	"math"
	"time"
)

// Interaction weights for the engagement score.
const (
	likeWeight    = 1.0
	retweetWeight = 3.0
	replyWeight   = 2.0
	quoteWeight   = 4.0
	viewWeight    = 0.1
)

// decayHours controls the exponential age decay: exp(-ageHours/24) halves a
// score roughly every 16.6 hours and asymptotically zeroes old content
// without a hard cutoff.
const decayHours = 24.0

// EngagementStaleAfter is how long a cached engagement score stays fresh
// after its last recompute.
const EngagementStaleAfter = time.Hour

// EngagementCounts holds the interaction counters of a single tweet.
type EngagementCounts struct {
	Likes    int
	Retweets int
	Replies  int
	Quotes   int
	Views    int
}

// DecayFactor returns the age decay multiplier in (0,1] for content created
// at createdAt, evaluated at now. Clock skew that puts createdAt in the
// future is treated as zero age.
func DecayFactor(createdAt, now time.Time) float64 {
	ageHours := now.Sub(createdAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}
	return math.Exp(-ageHours / decayHours)
}

// EngagementScore computes the decayed, weighted popularity metric for a
// tweet. With all-zero counters the result is 0; it is never negative.
func EngagementScore(c EngagementCounts, createdAt, now time.Time) int {
	base := float64(c.Likes)*likeWeight +
		float64(c.Retweets)*retweetWeight +
		float64(c.Replies)*replyWeight +
		float64(c.Quotes)*quoteWeight +
		float64(c.Views)*viewWeight
	return int(math.Round(base * DecayFactor(createdAt, now)))
}

// Stale reports whether a cached engagement score needs an asynchronous
// recompute. The serving path must never block on that recompute; it serves
// the cached value and lets a background write catch storage up.
func Stale(lastEngagement, now time.Time) bool {
	return now.Sub(lastEngagement) > EngagementStaleAfter
}
