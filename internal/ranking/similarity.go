package ranking

// SimilarityThreshold is the minimum Jaccard similarity for a user to count
// as "similar" in collaborative filtering. Tunable constant, not derived.
const SimilarityThreshold = 0.1

// MaxSimilarityPool caps how many users similarity is ever computed against
// in one request. The candidate pool must be bounded before scoring so this
// step stays O(pool), never O(all users squared).
const MaxSimilarityPool = 50

// FollowSet is a user's following list as a lookup set.
type FollowSet map[uint]struct{}

// NewFollowSet builds a FollowSet from a slice of user IDs.
func NewFollowSet(ids []uint) FollowSet {
	set := make(FollowSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Jaccard returns the Jaccard index of two following sets in [0,1].
// An empty union is defined as similarity 0, not NaN.
func Jaccard(a, b FollowSet) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	for id := range small {
		if _, ok := large[id]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// PoolMember pairs a candidate user with their following set.
type PoolMember struct {
	UserID    uint
	Following FollowSet
}

// SimilarUsers filters a pre-bounded candidate pool down to the users whose
// following sets are Jaccard-similar to the seed's, preserving pool order.
// Pools larger than MaxSimilarityPool are truncated.
func SimilarUsers(seed FollowSet, pool []PoolMember) []uint {
	if len(pool) > MaxSimilarityPool {
		pool = pool[:MaxSimilarityPool]
	}
	similar := make([]uint, 0, len(pool))
	for _, member := range pool {
		if Jaccard(seed, member.Following) > SimilarityThreshold {
			similar = append(similar, member.UserID)
		}
	}
	return similar
}
