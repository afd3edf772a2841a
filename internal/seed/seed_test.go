package seed

import (
	"testing"

	"chirp/internal/database"
	"chirp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	return db
}

func TestSeederRun(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db, Options{
		NumUsers:       8,
		NumTweets:      30,
		NumCommunities: 2,
		SkipBcrypt:     true,
	})

	require.NoError(t, s.Run())

	var userCount, tweetCount, communityCount int64
	require.NoError(t, db.Model(&models.User{}).Count(&userCount).Error)
	require.NoError(t, db.Model(&models.Tweet{}).Count(&tweetCount).Error)
	require.NoError(t, db.Model(&models.Community{}).Count(&communityCount).Error)

	assert.EqualValues(t, 2, communityCount)
	assert.GreaterOrEqual(t, userCount, int64(3), "fixed demo users always exist")
	// Retweets add rows beyond the requested count.
	assert.GreaterOrEqual(t, tweetCount, int64(30))

	t.Run("Fixed Users Are Stable", func(t *testing.T) {
		var alice models.User
		require.NoError(t, db.Where("username = ?", "alice").First(&alice).Error)
		assert.True(t, alice.IsVerified)
		assert.Equal(t, "alice@example.com", alice.Email)
	})

	t.Run("Community Creators Are Moderators", func(t *testing.T) {
		var communities []models.Community
		require.NoError(t, db.Find(&communities).Error)
		for _, c := range communities {
			var member models.CommunityMember
			require.NoError(t, db.Where("community_id = ? AND user_id = ?", c.ID, c.CreatorID).
				First(&member).Error)
			assert.Equal(t, models.RoleModerator, member.Role)
		}
	})

	t.Run("Hashtag Rows Extracted", func(t *testing.T) {
		var withTag int64
		require.NoError(t, db.Model(&models.TweetHashtag{}).Count(&withTag).Error)
		// Probabilistic but overwhelmingly likely with 30 tweets at 35% each.
		assert.Greater(t, withTag, int64(0))
	})

	t.Run("Rerun With Clean Resets", func(t *testing.T) {
		s2 := NewSeeder(db, Options{
			NumUsers:       3,
			NumTweets:      5,
			NumCommunities: 1,
			ShouldClean:    true,
			SkipBcrypt:     true,
		})
		require.NoError(t, s2.Run())

		var users int64
		require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
		assert.EqualValues(t, 3, users)
	})
}
