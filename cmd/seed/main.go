// Command seed loads demo users, pins and engagement into the configured store.
package main

import (
	"context"
	"flag"
	"log"

	"creaza/internal/config"
	"creaza/internal/database"
	"creaza/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of generated users")
	pinsPerUser := flag.Int("pins", defaults.PinsPerUser, "Pins per generated user")
	likesPerUser := flag.Int("likes", defaults.LikesPerUser, "Likes given by each user")
	commentsPerPin := flag.Int("comments", defaults.CommentsPerPin, "Comments per pin")
	followsPerUser := flag.Int("follows", defaults.FollowsPerUser, "Follows per user")
	collections := flag.Int("collections", defaults.CollectionsPerUser, "Collections per user")
	fixture := flag.String("fixture", "", "YAML fixture with hand-written users and pins")
	randSeed := flag.Int64("seed", 0, "Random seed (0 picks one)")
	fast := flag.Bool("fast", false, "Hash the shared password at minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Build the data set without writing it")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := defaults
	opts.Users = *numUsers
	opts.PinsPerUser = *pinsPerUser
	opts.LikesPerUser = *likesPerUser
	opts.CommentsPerPin = *commentsPerPin
	opts.FollowsPerUser = *followsPerUser
	opts.CollectionsPerUser = *collections
	opts.Seed = *randSeed
	opts.FastHash = *fast
	opts.DryRun = *dryRun
	if *fixture != "" {
		fx, err := seed.LoadFixture(*fixture)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		opts.Fixture = fx
	}

	ctx := context.Background()
	store, err := database.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer store.Close(ctx)

	report, err := seed.NewSeeder(store, opts).Run(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %s", report)
	log.Printf("📧 All seeded users have the password: %s", opts.Password)
}
