// Command seed populates the database with demo data.
package main

import (
	"flag"
	"log"

	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numTweets := flag.Int("tweets", 400, "Number of tweets to create")
	numCommunities := flag.Int("communities", 8, "Number of communities to create")
	maxDays := flag.Int("max-days", 30, "Spread tweet timestamps over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store plaintext passwords (fast, dev only)")
	flag.Parse()

	log.Printf("Seeding %d users, %d tweets, %d communities (clean=%v)",
		*numUsers, *numTweets, *numCommunities, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		NumUsers:       *numUsers,
		NumTweets:      *numTweets,
		NumCommunities: *numCommunities,
		MaxDays:        *maxDays,
		ShouldClean:    *shouldClean,
		SkipBcrypt:     *skipBcrypt,
	})
	if err := s.Run(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Done. All seeded users have the password: password123")
}
