package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"creaza/internal/models"
	"creaza/internal/repository"
	"creaza/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider stubs the provider with function fields; nil fields succeed.
type fakeProvider struct {
	SignInFn  func(email, password string) (State, error)
	SignUpFn  func(email, password string) (State, error)
	VerifyFn  func(token string) (*Identity, error)
	signedOut []string
	names     []string
}

func (f *fakeProvider) SignIn(_ context.Context, email, password string) (State, error) {
	return f.SignInFn(email, password)
}

func (f *fakeProvider) SignUp(_ context.Context, email, password string) (State, error) {
	return f.SignUpFn(email, password)
}

func (f *fakeProvider) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

func (f *fakeProvider) SetDisplayName(_ context.Context, _ State, name string) error {
	f.names = append(f.names, name)
	return nil
}

func (f *fakeProvider) Verify(_ context.Context, token string) (*Identity, error) {
	return f.VerifyFn(token)
}

func stateFor(id, email string) State {
	return State{Identity: &Identity{ID: id, Email: email, DisplayName: "Ana"}, Token: "tok-" + id}
}

var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func newResolver(t *testing.T, p Provider) (*Resolver, repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository(testutil.NewStore(t))
	r := NewResolver(p, users, NewSession())
	r.now = func() time.Time { return fixedNow }
	r.photoID = func() int64 { return 42 }
	return r, users
}

func TestResolveCurrentUser_Anonymous(t *testing.T) {
	r, _ := newResolver(t, &fakeProvider{})
	r.Session().Set(Anonymous)

	user, err := r.ResolveCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolveCurrentUser_SynthesizesMissingProfile(t *testing.T) {
	r, users := newResolver(t, &fakeProvider{})
	r.Session().Set(stateFor("u1", "ana.maria@example.com"))
	ctx := context.Background()

	user, err := r.ResolveCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ana.maria", user.Username)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Equal(t, models.PlaceholderAvatar, user.Avatar)
	assert.Empty(t, user.Bio)
	assert.True(t, fixedNow.Equal(user.CreatedAt))

	stored := users.GetByID(ctx, "u1")
	require.NotNil(t, stored, "synthesized profile must be persisted")
	assert.Equal(t, "ana.maria", stored.Username)
}

func TestResolveCurrentUser_MergesExistingProfile(t *testing.T) {
	r, users := newResolver(t, &fakeProvider{})
	ctx := context.Background()
	require.NoError(t, users.Save(ctx, &models.User{ID: "u1", Username: "anita", Email: "ana@example.com", Bio: "hola"}))

	state := stateFor("u1", "ana@example.com")
	state.Identity.PhotoURL = "https://example.com/ana.png"
	r.Session().Set(state)

	user, err := r.ResolveCurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "anita", user.Username)
	assert.Equal(t, "hola", user.Bio)
	assert.Equal(t, "Ana", user.DisplayName)
	assert.Equal(t, "https://example.com/ana.png", user.Avatar)
}

type failingUsers struct {
	repository.UserRepository
}

func (failingUsers) Lookup(context.Context, string) (*models.User, error) {
	return nil, errors.New("store unavailable")
}

func TestResolveCurrentUser_TransientFailureReadsAsSignedOut(t *testing.T) {
	r := NewResolver(&fakeProvider{}, failingUsers{}, nil)
	r.Session().Set(stateFor("u1", "ana@example.com"))

	user, err := r.ResolveCurrentUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestResolveCurrentUser_WaitsForFirstState(t *testing.T) {
	r, _ := newResolver(t, &fakeProvider{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		r.Session().Set(stateFor("u1", "ana@example.com"))
	}()

	user, err := r.ResolveCurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)
}

func TestLogin_PublishesSessionAndResolvesProfile(t *testing.T) {
	p := &fakeProvider{SignInFn: func(email, _ string) (State, error) { return stateFor("u1", email), nil }}
	r, _ := newResolver(t, p)

	user, err := r.Login(context.Background(), "ana@example.com", "secreto1")
	require.NoError(t, err)
	assert.Equal(t, "ana", user.Username)
	assert.Equal(t, "u1", r.Session().Current().Identity.ID)
}

func TestLogin_PropagatesAuthErrors(t *testing.T) {
	p := &fakeProvider{SignInFn: func(string, string) (State, error) { return Anonymous, ErrInvalidCredentials }}
	r, _ := newResolver(t, p)

	user, err := r.Login(context.Background(), "ana@example.com", "bad")
	assert.Nil(t, user)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, r.Session().Current().Authenticated())
}

func TestSignUp_CreatesProfileWithRandomAvatar(t *testing.T) {
	p := &fakeProvider{SignUpFn: func(email, _ string) (State, error) { return stateFor("u9", email), nil }}
	r, users := newResolver(t, p)
	ctx := context.Background()

	user, err := r.SignUp(ctx, "carla@example.com", "secreto1", SignUpProfile{DisplayName: "Carla", Username: "carla_art", Bio: " ilustradora "})
	require.NoError(t, err)
	assert.Equal(t, "carla_art", user.Username)
	assert.Equal(t, "ilustradora", user.Bio)
	assert.Equal(t, "https://images.unsplash.com/photo-42?w=400&h=400&fit=crop", user.Avatar)
	assert.Equal(t, []string{"Carla"}, p.names)
	assert.NotNil(t, users.GetByUsername(ctx, "carla_art"))
}

func TestSignUp_RejectsTakenOrShortUsername(t *testing.T) {
	p := &fakeProvider{SignUpFn: func(email, _ string) (State, error) { return stateFor("u9", email), nil }}
	r, users := newResolver(t, p)
	ctx := context.Background()
	require.NoError(t, users.Save(ctx, &models.User{ID: "u1", Username: "carla"}))

	_, err := r.SignUp(ctx, "carla@example.com", "secreto1", SignUpProfile{})
	assert.True(t, models.IsCode(err, models.CodeConflict))

	_, err = r.SignUp(ctx, "x@example.com", "secreto1", SignUpProfile{Username: "xy"})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

func TestSignUp_PropagatesProviderErrors(t *testing.T) {
	p := &fakeProvider{SignUpFn: func(string, string) (State, error) { return Anonymous, ErrWeakPassword }}
	r, _ := newResolver(t, p)

	_, err := r.SignUp(context.Background(), "carla@example.com", "1", SignUpProfile{})
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestLogout_PublishesAnonymous(t *testing.T) {
	p := &fakeProvider{SignInFn: func(email, _ string) (State, error) { return stateFor("u1", email), nil }}
	r, _ := newResolver(t, p)
	ctx := context.Background()
	_, err := r.Login(ctx, "ana@example.com", "secreto1")
	require.NoError(t, err)

	var last State
	r.Session().Subscribe(func(s State) { last = s })
	require.NoError(t, r.Logout(ctx))
	assert.False(t, last.Authenticated())
	assert.Equal(t, []string{"tok-u1"}, p.signedOut)
}

func TestAuthenticate(t *testing.T) {
	p := &fakeProvider{VerifyFn: func(token string) (*Identity, error) {
		if !strings.HasPrefix(token, "tok-") {
			return nil, ErrInvalidToken
		}
		return &Identity{ID: strings.TrimPrefix(token, "tok-"), Email: "ana@example.com"}, nil
	}}
	r, _ := newResolver(t, p)
	ctx := context.Background()

	user, err := r.Authenticate(ctx, "tok-u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = r.Authenticate(ctx, "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = r.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
