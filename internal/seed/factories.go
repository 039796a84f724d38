package seed

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"creaza/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
)

// categoryTags is the tag pool drawn from for each category.
var categoryTags = map[models.Category][]string{
	models.CategoryIllustration: {"ilustracion", "acuarela", "personajes", "color", "digital"},
	models.CategoryDesign:       {"tipografia", "branding", "poster", "ui", "minimal"},
	models.CategoryPhotography:  {"paisaje", "retrato", "urbano", "blanco-y-negro", "naturaleza"},
	models.CategoryConceptArt:   {"escenarios", "criaturas", "sci-fi", "fantasia", "ambiente"},
	models.CategoryDrawing:      {"boceto", "grafito", "tinta", "anatomia", "carboncillo"},
}

// Factory builds domain documents with gofakeit. It never touches the store.
type Factory struct {
	faker *gofakeit.Faker
	opts  Options
	now   func() time.Time

	hashOnce sync.Once
	hash     string
	hashErr  error
}

// NewFactory creates a Factory. A zero opts.Seed draws from a time-based seed.
func NewFactory(opts Options) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Factory{faker: gofakeit.New(seed), opts: opts, now: time.Now}
}

// BuildUser returns a profile with a unique handle.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	first := f.faker.FirstName()
	username := strings.ToLower(first) + fmt.Sprintf("%d", f.faker.Number(100, 9999))
	user := &models.User{
		ID:          f.faker.UUID(),
		Username:    username,
		Email:       username + "@example.com",
		DisplayName: first + " " + f.faker.LastName(),
		Bio:         f.faker.Sentence(10),
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// BuildAccount returns local credentials for user, sharing its id so the
// identity resolver maps the account onto the seeded profile.
func (f *Factory) BuildAccount(user *models.User) (*models.Account, error) {
	hash, err := f.passwordHash()
	if err != nil {
		return nil, err
	}
	return &models.Account{
		ID:           user.ID,
		Email:        strings.ToLower(user.Email),
		PasswordHash: hash,
		DisplayName:  user.DisplayName,
		PhotoURL:     user.Avatar,
		CreatedAt:    user.CreatedAt,
	}, nil
}

func (f *Factory) passwordHash() (string, error) {
	f.hashOnce.Do(func() {
		cost := bcrypt.DefaultCost
		if f.opts.FastHash {
			cost = bcrypt.MinCost
		}
		var b []byte
		b, f.hashErr = bcrypt.GenerateFromPassword([]byte(f.opts.Password), cost)
		f.hash = string(b)
	})
	return f.hash, f.hashErr
}

// BuildPin returns a pin in category owned by owner. Photography pins always
// lead with the "paisaje" tag.
func (f *Factory) BuildPin(owner *models.User, category models.Category, overrides ...func(*models.Pin)) *models.Pin {
	id := f.faker.UUID()
	pin := &models.Pin{
		ID:          id,
		UserID:      owner.ID,
		Title:       strings.TrimSuffix(f.faker.Sentence(f.faker.Number(2, 5)), "."),
		Description: f.faker.Paragraph(1, 2, 8, " "),
		Image:       fmt.Sprintf("https://picsum.photos/seed/%s/800/1000", id),
		Category:    category,
		Tags:        f.tagsFor(category),
		CreatedAt:   f.pastTime(),
	}
	for _, override := range overrides {
		override(pin)
	}
	return pin
}

func (f *Factory) tagsFor(category models.Category) []string {
	pool := categoryTags[category]
	if len(pool) == 0 {
		return []string{}
	}
	var tags []string
	if category == models.CategoryPhotography {
		tags = append(tags, "paisaje")
	}
	n := f.faker.Number(1, 3)
	for _, i := range f.faker.Rand.Perm(len(pool)) {
		if len(tags) >= n {
			break
		}
		if pool[i] != "paisaje" {
			tags = append(tags, pool[i])
		}
	}
	return tags
}

// CommentText returns a short comment body.
func (f *Factory) CommentText() string {
	return f.faker.Sentence(f.faker.Number(4, 12))
}

// CollectionName returns a board name.
func (f *Factory) CollectionName() string {
	adj := f.faker.Adjective()
	return strings.ToUpper(adj[:1]) + adj[1:] + " " + f.faker.Noun()
}

// Pick returns k distinct indexes out of n, or all of them when k >= n.
func (f *Factory) Pick(n, k int) []int {
	perm := f.faker.Rand.Perm(n)
	if k < n {
		perm = perm[:k]
	}
	return perm
}

// pastTime spreads timestamps over the last MaxDays days.
func (f *Factory) pastTime() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return f.now().UTC().Add(-back)
}
