package identity

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"creaza/internal/models"
	"creaza/internal/observability"
	"creaza/internal/repository"
	"creaza/internal/validation"
)

// SignUpProfile carries the profile fields chosen at registration.
type SignUpProfile struct {
	DisplayName string
	Username    string
	Bio         string
}

// Resolver maps provider sessions onto stored user profiles, creating a
// profile the first time an identity is seen.
type Resolver struct {
	provider Provider
	users    repository.UserRepository
	session  *Session
	log      *observability.ServiceLogger
	now      func() time.Time
	photoID  func() int64
}

// NewResolver wires a provider to the profile store. session may be nil for
// server-side use, where Authenticate is the only entry point.
func NewResolver(provider Provider, users repository.UserRepository, session *Session) *Resolver {
	if session == nil {
		session = NewSession()
	}
	return &Resolver{
		provider: provider,
		users:    users,
		session:  session,
		log:      observability.NewServiceLogger("identity"),
		now:      time.Now,
		photoID:  func() int64 { return rand.Int64N(1_000_000_000_000) },
	}
}

// Session returns the session this resolver publishes to.
func (r *Resolver) Session() *Session {
	return r.session
}

// ResolveCurrentUser waits for the first session state and returns the
// matching profile. Anonymous sessions and failed profile reads return nil.
func (r *Resolver) ResolveCurrentUser(ctx context.Context) (*models.User, error) {
	state, err := r.session.Wait(ctx)
	if err != nil {
		return nil, err
	}
	if !state.Authenticated() {
		return nil, nil
	}
	user, err := r.profileFor(ctx, state.Identity)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "profile read failed, treating session as signed out",
			"user_id", state.Identity.ID, "error", err)
		return nil, nil
	}
	return user, nil
}

// SignIn authenticates and returns the profile with the new session state.
func (r *Resolver) SignIn(ctx context.Context, email, password string) (*models.User, State, error) {
	state, err := r.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, Anonymous, err
	}
	user, err := r.profileFor(ctx, state.Identity)
	if err != nil {
		return nil, Anonymous, unknownError("failed to load profile", err)
	}
	r.session.Set(state)
	r.log.LogCall(ctx, "SignIn", map[string]interface{}{"user_id": user.ID})
	return user, state, nil
}

// Login is SignIn without the session state.
func (r *Resolver) Login(ctx context.Context, email, password string) (*models.User, error) {
	user, _, err := r.SignIn(ctx, email, password)
	return user, err
}

// Register creates the identity and its profile.
func (r *Resolver) Register(ctx context.Context, email, password string, profile SignUpProfile) (*models.User, State, error) {
	username := strings.TrimSpace(profile.Username)
	if username == "" {
		username = models.UsernameFromEmail(normalizeEmail(email))
	}
	if err := validation.ValidateUsername(username); err != nil {
		return nil, Anonymous, models.NewValidationError(err.Error())
	}
	if taken := r.users.GetByUsername(ctx, username); taken != nil {
		return nil, Anonymous, models.NewConflictError("username already taken", nil)
	}

	state, err := r.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, Anonymous, err
	}

	displayName := strings.TrimSpace(profile.DisplayName)
	if displayName == "" {
		displayName = username
	}
	if err := r.provider.SetDisplayName(ctx, state, displayName); err != nil {
		r.log.LogDrift(ctx, "Register", err, map[string]interface{}{"user_id": state.Identity.ID, "step": "display_name"})
	}

	user := &models.User{
		ID:          state.Identity.ID,
		Username:    username,
		Email:       state.Identity.Email,
		DisplayName: displayName,
		Bio:         strings.TrimSpace(profile.Bio),
		Avatar:      fmt.Sprintf("https://images.unsplash.com/photo-%d?w=400&h=400&fit=crop", r.photoID()),
		CreatedAt:   r.now().UTC(),
	}
	if err := r.users.Save(ctx, user); err != nil {
		return nil, Anonymous, unknownError("failed to create profile", err)
	}
	r.session.Set(state)
	r.log.LogCall(ctx, "Register", map[string]interface{}{"user_id": user.ID})
	return user, state, nil
}

// SignUp is Register without the session state.
func (r *Resolver) SignUp(ctx context.Context, email, password string, profile SignUpProfile) (*models.User, error) {
	user, _, err := r.Register(ctx, email, password, profile)
	return user, err
}

// Logout ends the current session. The session becomes anonymous even when
// the provider call fails.
func (r *Resolver) Logout(ctx context.Context) error {
	return r.LogoutToken(ctx, r.session.Current().Token)
}

// LogoutToken revokes a specific session token.
func (r *Resolver) LogoutToken(ctx context.Context, token string) error {
	err := r.provider.SignOut(ctx, token)
	r.session.Set(Anonymous)
	return err
}

// Authenticate verifies a bearer token and returns its profile, creating
// one on first sight.
func (r *Resolver) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	id, err := r.provider.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := r.profileFor(ctx, id)
	if err != nil {
		return nil, unknownError("failed to load profile", err)
	}
	return user, nil
}

// profileFor returns the stored profile with blank fields filled from the
// identity, or persists a synthesized one.
func (r *Resolver) profileFor(ctx context.Context, id *Identity) (*models.User, error) {
	existing, err := r.users.Lookup(ctx, id.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		fillFromIdentity(existing, id)
		return existing, nil
	}

	user := &models.User{ID: id.ID, Email: id.Email, CreatedAt: r.now().UTC()}
	fillFromIdentity(user, id)
	if err := r.users.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func fillFromIdentity(u *models.User, id *Identity) {
	if u.Email == "" {
		u.Email = id.Email
	}
	if u.Username == "" {
		u.Username = models.UsernameFromEmail(u.Email)
	}
	if u.DisplayName == "" {
		u.DisplayName = id.DisplayName
	}
	if u.Avatar == "" {
		u.Avatar = id.PhotoURL
	}
	if u.Avatar == "" {
		u.Avatar = models.PlaceholderAvatar
	}
}
