package database

import (
	"testing"

	modelspkg "chirp/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesEngagementTables(t *testing.T) {
	var hasLike, hasRetweet, hasView bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *modelspkg.TweetLike:
			hasLike = true
		case *modelspkg.TweetRetweet:
			hasRetweet = true
		case *modelspkg.TweetView:
			hasView = true
		}
	}
	require.True(t, hasLike, "PersistentModels should include TweetLike")
	require.True(t, hasRetweet, "PersistentModels should include TweetRetweet")
	require.True(t, hasView, "PersistentModels should include TweetView")
}
