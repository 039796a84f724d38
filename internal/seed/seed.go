// Package seed loads demo data into a document store. The generated graph
// goes through the engagement service, so like counters, like marks and
// notifications stay consistent with what the API would have produced.
package seed

import (
	"context"
	"fmt"
	"strings"

	"creaza/internal/docstore"
	"creaza/internal/models"
	"creaza/internal/observability"
	"creaza/internal/repository"
	"creaza/internal/service"

	"golang.org/x/sync/errgroup"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options configuration for the seeder
type Options struct {
	Users              int
	PinsPerUser        int
	LikesPerUser       int
	CommentsPerPin     int
	FollowsPerUser     int
	CollectionsPerUser int
	PinsPerCollection  int
	MaxDays            int
	Password           string
	// FastHash hashes the shared password at bcrypt's minimum cost.
	FastHash bool
	// DryRun builds everything and writes nothing.
	DryRun      bool
	Seed        int64
	Concurrency int
	Fixture     *Fixture
}

// DefaultOptions is a small but fully connected demo graph.
func DefaultOptions() Options {
	return Options{
		Users:              12,
		PinsPerUser:        5,
		LikesPerUser:       8,
		CommentsPerPin:     2,
		FollowsPerUser:     3,
		CollectionsPerUser: 1,
		PinsPerCollection:  4,
		MaxDays:            90,
		Password:           DefaultPassword,
		Concurrency:        8,
	}
}

// Report counts what a run created, or would have created in dry-run mode.
type Report struct {
	Users       int
	Pins        int
	Likes       int
	Comments    int
	Follows     int
	Collections int
}

func (r Report) String() string {
	return fmt.Sprintf("users=%d pins=%d likes=%d comments=%d follows=%d collections=%d",
		r.Users, r.Pins, r.Likes, r.Comments, r.Follows, r.Collections)
}

// Seeder writes a generated social graph through the repositories.
type Seeder struct {
	repos      *repository.Repositories
	engagement *service.EngagementService
	factory    *Factory
	opts       Options
	log        *observability.Logger
}

// NewSeeder binds a seeder to store.
func NewSeeder(store docstore.Store, opts Options) *Seeder {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	repos := repository.New(store)
	return &Seeder{
		repos:      repos,
		engagement: service.NewEngagementService(repos, nil),
		factory:    NewFactory(opts),
		opts:       opts,
		log:        observability.GlobalLogger,
	}
}

// Run seeds users, pins, follows, likes, comments and collections in that order.
func (s *Seeder) Run(ctx context.Context) (*Report, error) {
	report := &Report{}
	s.log.InfoContext(ctx, "seeding started", "users", s.opts.Users, "dry_run", s.opts.DryRun)

	users, err := s.seedUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to create users: %w", err)
	}
	report.Users = len(users)

	pins, err := s.seedPins(ctx, users)
	if err != nil {
		return report, fmt.Errorf("failed to create pins: %w", err)
	}
	report.Pins = len(pins)

	if report.Follows, err = s.seedFollows(ctx, users); err != nil {
		return report, fmt.Errorf("failed to create follows: %w", err)
	}
	if report.Likes, err = s.seedLikes(ctx, users, pins); err != nil {
		return report, fmt.Errorf("failed to create likes: %w", err)
	}
	if report.Comments, err = s.seedComments(ctx, users, pins); err != nil {
		return report, fmt.Errorf("failed to create comments: %w", err)
	}
	if report.Collections, err = s.seedCollections(ctx, users, pins); err != nil {
		return report, fmt.Errorf("failed to create collections: %w", err)
	}

	s.log.InfoContext(ctx, "seeding completed", "report", report.String())
	return report, nil
}

func (s *Seeder) seedUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	taken := map[string]bool{}

	if fx := s.opts.Fixture; fx != nil {
		for _, fu := range fx.Users {
			users = append(users, s.factory.BuildUser(func(u *models.User) {
				u.Username = fu.Username
				u.Email = fu.Email
				if u.Email == "" {
					u.Email = fu.Username + "@example.com"
				}
				if fu.DisplayName != "" {
					u.DisplayName = fu.DisplayName
				}
				if fu.Bio != "" {
					u.Bio = fu.Bio
				}
				if fu.Avatar != "" {
					u.Avatar = fu.Avatar
				}
			}))
			taken[strings.ToLower(fu.Username)] = true
		}
	}

	for generated := 0; generated < s.opts.Users; {
		u := s.factory.BuildUser()
		if taken[u.Username] {
			continue
		}
		taken[u.Username] = true
		users = append(users, u)
		generated++
	}

	for _, u := range users {
		account, err := s.factory.BuildAccount(u)
		if err != nil {
			return nil, err
		}
		if s.opts.DryRun {
			continue
		}
		if err := s.repos.Accounts.Create(ctx, account); err != nil {
			return nil, fmt.Errorf("account %s: %w", u.Email, err)
		}
		if err := s.repos.Users.Save(ctx, u); err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Username, err)
		}
	}
	s.logPhase(ctx, "users", len(users))
	return users, nil
}

// seedPins cycles categories so every category is represented once there
// are at least as many pins as categories.
func (s *Seeder) seedPins(ctx context.Context, users []*models.User) ([]*models.Pin, error) {
	var pins []*models.Pin

	if fx := s.opts.Fixture; fx != nil {
		byName := make(map[string]*models.User, len(users))
		for _, u := range users {
			byName[u.Username] = u
		}
		for _, fp := range fx.Pins {
			pins = append(pins, s.factory.BuildPin(byName[fp.Owner], models.Category(fp.Category), func(p *models.Pin) {
				p.Title = fp.Title
				if fp.Description != "" {
					p.Description = fp.Description
				}
				if fp.Image != "" {
					p.Image = fp.Image
				}
				if fp.Tags != nil {
					p.Tags = fp.Tags
				}
			}))
		}
	}

	categories := models.Categories()
	i := 0
	for _, u := range users {
		for range s.opts.PinsPerUser {
			pins = append(pins, s.factory.BuildPin(u, categories[i%len(categories)]))
			i++
		}
	}

	if !s.opts.DryRun {
		for _, p := range pins {
			if err := s.repos.Pins.Create(ctx, p); err != nil {
				return nil, err
			}
		}
	}
	s.logPhase(ctx, "pins", len(pins))
	return pins, nil
}

// seedFollows makes user i follow the next FollowsPerUser users in a ring.
func (s *Seeder) seedFollows(ctx context.Context, users []*models.User) (int, error) {
	n := len(users)
	per := min(s.opts.FollowsPerUser, n-1)
	count := 0
	for i, u := range users {
		for k := 1; k <= per; k++ {
			target := users[(i+k)%n]
			if !s.opts.DryRun {
				if _, err := s.engagement.Follow(ctx, u.ID, target.ID); err != nil {
					return count, err
				}
			}
			count++
		}
	}
	s.logPhase(ctx, "follows", count)
	return count, nil
}

type likeEdge struct{ userID, pinID string }

// seedLikes picks the edges up front and applies them concurrently; every
// edge is distinct and never targets the liker's own pin.
func (s *Seeder) seedLikes(ctx context.Context, users []*models.User, pins []*models.Pin) (int, error) {
	var edges []likeEdge
	for _, u := range users {
		var candidates []*models.Pin
		for _, p := range pins {
			if p.UserID != u.ID {
				candidates = append(candidates, p)
			}
		}
		for _, idx := range s.factory.Pick(len(candidates), s.opts.LikesPerUser) {
			edges = append(edges, likeEdge{userID: u.ID, pinID: candidates[idx].ID})
		}
	}

	if !s.opts.DryRun {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for _, e := range edges {
			g.Go(func() error {
				_, err := s.engagement.ToggleLike(gctx, e.pinID, true, e.userID)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}
	s.logPhase(ctx, "likes", len(edges))
	return len(edges), nil
}

func (s *Seeder) seedComments(ctx context.Context, users []*models.User, pins []*models.Pin) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	var inputs []service.AddCommentInput
	for _, p := range pins {
		for range s.opts.CommentsPerPin {
			author := users[s.factory.Pick(len(users), 1)[0]]
			if author.ID == p.UserID {
				continue
			}
			inputs = append(inputs, service.AddCommentInput{PinID: p.ID, UserID: author.ID, Text: s.factory.CommentText()})
		}
	}

	if !s.opts.DryRun {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.opts.Concurrency)
		for _, in := range inputs {
			g.Go(func() error {
				_, err := s.engagement.AddComment(gctx, in)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return 0, err
		}
	}
	s.logPhase(ctx, "comments", len(inputs))
	return len(inputs), nil
}

func (s *Seeder) seedCollections(ctx context.Context, users []*models.User, pins []*models.Pin) (int, error) {
	count := 0
	for _, u := range users {
		for range s.opts.CollectionsPerUser {
			name := s.factory.CollectionName()
			members := s.factory.Pick(len(pins), s.opts.PinsPerCollection)
			count++
			if s.opts.DryRun {
				continue
			}
			c, err := s.engagement.CreateCollection(ctx, service.CreateCollectionInput{UserID: u.ID, Name: name})
			if err != nil {
				return count, err
			}
			for _, idx := range members {
				if _, err := s.engagement.AddPinToCollection(ctx, c.ID, pins[idx].ID); err != nil {
					return count, err
				}
			}
		}
	}
	s.logPhase(ctx, "collections", count)
	return count, nil
}

func (s *Seeder) logPhase(ctx context.Context, phase string, n int) {
	if s.opts.DryRun {
		s.log.InfoContext(ctx, "[dry-run] planned", "phase", phase, "count", n)
		return
	}
	s.log.InfoContext(ctx, "seeded", "phase", phase, "count", n)
}
