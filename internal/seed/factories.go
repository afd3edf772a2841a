// Package seed provides helpers to create demo and test data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"chirp/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls seeding volume and behavior.
type Options struct {
	NumUsers       int
	NumTweets      int
	NumCommunities int
	MaxDays        int
	ShouldClean    bool
	SkipBcrypt     bool
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

var hashtagPool = []string{
	"golang", "webdev", "design", "opensource", "devops", "startup",
	"ai", "music", "gaming", "fitness", "coffee", "photography",
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	//nolint:gosec // weak randomness is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	username := fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999))
	user := &models.User{
		Username:        username,
		DisplayName:     gofakeit.Name(),
		Email:           fmt.Sprintf("%s@example.com", username),
		Bio:             gofakeit.Sentence(10),
		ProfileImageURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Location:        gofakeit.City(),
		IsVerified:      f.rng.Float32() < 0.1,
	}

	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashed)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateTweet constructs and persists a sample tweet for the given user.
// Roughly a third of the generated tweets carry a hashtag and some mention
// another seeded user so that trending and notifications have data.
func (f *Factory) CreateTweet(user *models.User, mentionable []*models.User, overrides ...func(*models.Tweet)) (*models.Tweet, error) {
	content := gofakeit.Sentence(f.rng.Intn(12) + 4)
	if f.rng.Float32() < 0.35 {
		content += " #" + hashtagPool[f.rng.Intn(len(hashtagPool))]
	}
	if len(mentionable) > 0 && f.rng.Float32() < 0.2 {
		target := mentionable[f.rng.Intn(len(mentionable))]
		if target.ID != user.ID {
			content += " @" + target.Username
		}
	}

	tweet := &models.Tweet{
		UserID:  user.ID,
		Content: content,
	}
	if f.rng.Float32() < 0.2 {
		tweet.ImageURLs = fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID())
	}

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 30
	}
	tweet.CreatedAt = time.Now().
		Add(-time.Duration(f.rng.Intn(maxDays)) * 24 * time.Hour).
		Add(-time.Duration(f.rng.Intn(24)) * time.Hour).
		Add(-time.Duration(f.rng.Intn(60)) * time.Minute)
	tweet.LastEngagement = tweet.CreatedAt

	for _, override := range overrides {
		override(tweet)
	}

	tweet.ExtractEntities()
	if err := f.db.Create(tweet).Error; err != nil {
		return nil, err
	}
	return tweet, nil
}

// CreateCommunity constructs and persists a sample community with tags.
func (f *Factory) CreateCommunity(creator *models.User, overrides ...func(*models.Community)) (*models.Community, error) {
	categories := []models.CommunityCategory{
		models.CategoryTechnology, models.CategoryDesign, models.CategoryBusiness,
		models.CategoryEntertainment, models.CategorySports, models.CategoryGaming,
		models.CategoryArt, models.CategoryMusic, models.CategoryOther,
	}

	community := &models.Community{
		Name:        fmt.Sprintf("%s %s %d", gofakeit.BuzzWord(), gofakeit.NounAbstract(), gofakeit.Number(1, 9999)),
		Description: gofakeit.Paragraph(1, 2, 8, " "),
		CreatorID:   creator.ID,
		Category:    categories[f.rng.Intn(len(categories))],
		IsActive:    true,
	}
	for i := 0; i < f.rng.Intn(3)+1; i++ {
		community.Tags = append(community.Tags, models.CommunityTag{
			Tag: hashtagPool[f.rng.Intn(len(hashtagPool))],
		})
	}
	community.Tags = dedupeTags(community.Tags)

	for _, override := range overrides {
		override(community)
	}

	if err := f.db.Create(community).Error; err != nil {
		return nil, err
	}

	member := &models.CommunityMember{
		CommunityID: community.ID,
		UserID:      creator.ID,
		Role:        models.RoleModerator,
	}
	if err := f.db.Create(member).Error; err != nil {
		return nil, err
	}
	return community, nil
}

// CreateFollow persists a follow edge between two users.
func (f *Factory) CreateFollow(follower, followee *models.User) error {
	return f.db.Create(&models.Follow{
		FollowerID: follower.ID,
		FolloweeID: followee.ID,
	}).Error
}

// CreateLike persists a like from user on tweet.
func (f *Factory) CreateLike(user *models.User, tweet *models.Tweet) error {
	return f.db.Create(&models.TweetLike{
		UserID:  user.ID,
		TweetID: tweet.ID,
	}).Error
}

// CreateRetweet persists both the retweet row and its membership entry,
// mirroring what the retweet endpoint does.
func (f *Factory) CreateRetweet(user *models.User, original *models.Tweet) error {
	retweet := &models.Tweet{
		UserID:            user.ID,
		Content:           original.Content,
		IsRetweet:         true,
		OriginalTweetID:   &original.ID,
		RetweetedByUserID: &user.ID,
	}
	if err := f.db.Create(retweet).Error; err != nil {
		return err
	}
	return f.db.Create(&models.TweetRetweet{
		UserID:  user.ID,
		TweetID: original.ID,
	}).Error
}

// CreateView persists a view membership row for user on tweet.
func (f *Factory) CreateView(user *models.User, tweet *models.Tweet) error {
	return f.db.Create(&models.TweetView{
		UserID:  user.ID,
		TweetID: tweet.ID,
	}).Error
}

func dedupeTags(tags []models.CommunityTag) []models.CommunityTag {
	seen := make(map[string]struct{}, len(tags))
	out := tags[:0]
	for _, t := range tags {
		if _, ok := seen[t.Tag]; ok {
			continue
		}
		seen[t.Tag] = struct{}{}
		out = append(out, t)
	}
	return out
}
