package ranking

import (
	"math"
	"testing"
	"time"
)

func TestEngagementScoreNoInteractions(t *testing.T) {
	now := time.Now()
	score := EngagementScore(EngagementCounts{}, now, now)
	if score != 0 {
		t.Fatalf("expected 0 for a fresh tweet with no interactions, got %d", score)
	}
}

func TestEngagementScoreDayOldTweet(t *testing.T) {
	// 10 likes + 2 retweets = weighted 16; at exactly 24h decay is e^-1,
	// so round(16 * 0.3679) = 6.
	now := time.Now()
	created := now.Add(-24 * time.Hour)
	score := EngagementScore(EngagementCounts{Likes: 10, Retweets: 2}, created, now)
	if score != 6 {
		t.Fatalf("expected 6, got %d", score)
	}
}

func TestEngagementScoreWeights(t *testing.T) {
	now := time.Now()
	// Zero age, decay == 1: the score is the raw weighted sum.
	counts := EngagementCounts{Likes: 1, Retweets: 1, Replies: 1, Quotes: 1, Views: 10}
	score := EngagementScore(counts, now, now)
	if score != 11 { // 1 + 3 + 2 + 4 + 1
		t.Fatalf("expected weighted sum 11, got %d", score)
	}
}

func TestEngagementScoreMonotonicDecay(t *testing.T) {
	created := time.Now()
	counts := EngagementCounts{Likes: 50, Retweets: 10, Views: 1000}
	prev := math.MaxInt
	for hours := 0; hours <= 96; hours += 6 {
		at := created.Add(time.Duration(hours) * time.Hour)
		score := EngagementScore(counts, created, at)
		if score > prev {
			t.Fatalf("score increased with age: %d -> %d at %dh", prev, score, hours)
		}
		if score < 0 {
			t.Fatalf("score went negative at %dh: %d", hours, score)
		}
		prev = score
	}
}

func TestDecayFactorBounds(t *testing.T) {
	now := time.Now()
	if d := DecayFactor(now, now); d != 1 {
		t.Fatalf("zero age should not decay, got %f", d)
	}
	// A tweet from the "future" (clock skew) must not be amplified.
	if d := DecayFactor(now.Add(time.Hour), now); d != 1 {
		t.Fatalf("future createdAt should clamp to 1, got %f", d)
	}
	old := DecayFactor(now.Add(-30*24*time.Hour), now)
	if old <= 0 || old >= 0.001 {
		t.Fatalf("month-old decay should be tiny but positive, got %g", old)
	}
}

func TestStale(t *testing.T) {
	now := time.Now()
	if Stale(now.Add(-30*time.Minute), now) {
		t.Fatal("30 minutes old should not be stale")
	}
	if !Stale(now.Add(-2*time.Hour), now) {
		t.Fatal("2 hours old should be stale")
	}
}
