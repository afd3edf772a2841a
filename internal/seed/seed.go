package seed

import (
	"fmt"
	"log"

	"chirp/internal/models"

	"gorm.io/gorm"
)

// Seeder orchestrates the demo data population.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll removes all seeded data. Delete order respects foreign keys.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	tables := []string{
		"notifications",
		"tweet_views", "tweet_likes", "tweet_retweets",
		"tweet_hashtags", "tweet_mentions", "tweet_urls",
		"tweets",
		"community_tags", "community_members", "communities",
		"follows", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}
	return nil
}

// Run populates the database end to end: users, the follow graph,
// communities, tweets and engagement.
func (s *Seeder) Run() error {
	if s.opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return err
		}
	}

	users, err := s.SeedUsers(s.opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seeding users: %w", err)
	}
	log.Printf("Created %d users", len(users))

	follows, err := s.SeedFollowGraph(users)
	if err != nil {
		return fmt.Errorf("seeding follow graph: %w", err)
	}
	log.Printf("Created %d follow edges", follows)

	communities, err := s.SeedCommunities(users, s.opts.NumCommunities)
	if err != nil {
		return fmt.Errorf("seeding communities: %w", err)
	}
	log.Printf("Created %d communities", len(communities))

	tweets, err := s.SeedTweets(users, communities, s.opts.NumTweets)
	if err != nil {
		return fmt.Errorf("seeding tweets: %w", err)
	}
	log.Printf("Created %d tweets", len(tweets))

	likes, retweets, views, err := s.SeedEngagement(users, tweets)
	if err != nil {
		return fmt.Errorf("seeding engagement: %w", err)
	}
	log.Printf("Created %d likes, %d retweets, %d views", likes, retweets, views)

	return nil
}

// SeedUsers creates count users. The first few have fixed usernames so demo
// logins stay stable across reseeds.
func (s *Seeder) SeedUsers(count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)

	fixed := []string{"alice", "bob", "carol"}
	for i, name := range fixed {
		if i >= count {
			break
		}
		name := name
		user, err := s.factory.CreateUser(func(u *models.User) {
			u.Username = name
			u.Email = name + "@example.com"
			u.IsVerified = true
		})
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	for i := len(users); i < count; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			// Username collisions are possible with faked data; skip and move on.
			log.Printf("skipping user %d: %v", i, err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

// SeedFollowGraph wires a random follow graph where each user follows
// roughly a fifth of the others.
func (s *Seeder) SeedFollowGraph(users []*models.User) (int, error) {
	count := 0
	for _, follower := range users {
		for _, followee := range users {
			if follower.ID == followee.ID {
				continue
			}
			if s.factory.rng.Float32() >= 0.2 {
				continue
			}
			if err := s.factory.CreateFollow(follower, followee); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

// SeedCommunities creates count communities with random creators and joins a
// random subset of users into each.
func (s *Seeder) SeedCommunities(users []*models.User, count int) ([]*models.Community, error) {
	if len(users) == 0 {
		return nil, nil
	}
	communities := make([]*models.Community, 0, count)
	for i := 0; i < count; i++ {
		creator := users[s.factory.rng.Intn(len(users))]
		community, err := s.factory.CreateCommunity(creator)
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			if user.ID == creator.ID || s.factory.rng.Float32() >= 0.3 {
				continue
			}
			member := &models.CommunityMember{
				CommunityID: community.ID,
				UserID:      user.ID,
				Role:        models.RoleMember,
			}
			if err := s.db.Create(member).Error; err != nil {
				return nil, err
			}
		}
		communities = append(communities, community)
	}
	return communities, nil
}

// SeedTweets creates count tweets spread over the seeded users, posting some
// of them into communities the author belongs to.
func (s *Seeder) SeedTweets(users []*models.User, communities []*models.Community, count int) ([]*models.Tweet, error) {
	if len(users) == 0 {
		return nil, nil
	}
	tweets := make([]*models.Tweet, 0, count)
	for i := 0; i < count; i++ {
		author := users[s.factory.rng.Intn(len(users))]
		tweet, err := s.factory.CreateTweet(author, users, func(t *models.Tweet) {
			if len(communities) == 0 || s.factory.rng.Float32() >= 0.15 {
				return
			}
			community := communities[s.factory.rng.Intn(len(communities))]
			var member models.CommunityMember
			err := s.db.Where("community_id = ? AND user_id = ?", community.ID, author.ID).
				First(&member).Error
			if err == nil {
				t.CommunityID = &community.ID
			}
		})
		if err != nil {
			return nil, err
		}
		tweets = append(tweets, tweet)
	}
	return tweets, nil
}

// SeedEngagement sprinkles likes, retweets and views across the tweets so
// ranking and trending queries have signal to work with.
func (s *Seeder) SeedEngagement(users []*models.User, tweets []*models.Tweet) (likes, retweets, views int, err error) {
	for _, tweet := range tweets {
		for _, user := range users {
			if user.ID == tweet.UserID {
				continue
			}
			roll := s.factory.rng.Float32()
			switch {
			case roll < 0.08:
				if err = s.factory.CreateLike(user, tweet); err != nil {
					return
				}
				likes++
			case roll < 0.10:
				if err = s.factory.CreateRetweet(user, tweet); err != nil {
					return
				}
				retweets++
			case roll < 0.35:
				if err = s.factory.CreateView(user, tweet); err != nil {
					return
				}
				views++
			}
		}
	}
	return
}
