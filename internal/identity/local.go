package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"creaza/internal/cache"
	"creaza/internal/models"
	"creaza/internal/observability"
	"creaza/internal/repository"
	"creaza/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "creaza-api"
	tokenAudience = "creaza-client"
)

// LocalProvider keeps credentials in the accounts collection and issues
// HS256 session tokens.
type LocalProvider struct {
	accounts repository.AccountRepository
	secret   []byte
	ttl      time.Duration
	redis    *redis.Client
	now      func() time.Time
}

// NewLocalProvider returns a provider signing with secret. A nil redis
// client disables token revocation.
func NewLocalProvider(accounts repository.AccountRepository, secret string, ttl time.Duration, rdb *redis.Client) *LocalProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LocalProvider{
		accounts: accounts,
		secret:   []byte(secret),
		ttl:      ttl,
		redis:    rdb,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (State, error) {
	email = normalizeEmail(email)
	if validation.ValidateEmail(email) != nil {
		return Anonymous, ErrInvalidEmail
	}

	account, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Anonymous, unknownError("", err)
	}
	if account == nil {
		return Anonymous, ErrUserNotFound
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return Anonymous, ErrInvalidCredentials
	}
	return p.issue(account)
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (State, error) {
	email = normalizeEmail(email)
	if validation.ValidateEmail(email) != nil {
		return Anonymous, ErrInvalidEmail
	}
	if validation.ValidatePassword(password) != nil {
		return Anonymous, ErrWeakPassword
	}

	existing, err := p.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Anonymous, unknownError("", err)
	}
	if existing != nil {
		return Anonymous, ErrEmailInUse
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Anonymous, unknownError("failed to hash password", err)
	}
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if models.IsCode(err, models.CodeConflict) {
			return Anonymous, ErrEmailInUse
		}
		return Anonymous, unknownError("", err)
	}
	return p.issue(account)
}

// SignOut revokes the token's jti until the token would have expired anyway.
// Tokens that no longer verify need no revocation.
func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	if token == "" || p.redis == nil {
		return nil
	}
	claims, err := p.parse(token)
	if err != nil {
		return nil
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil
	}
	ttl := p.ttl
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ttl = time.Until(exp.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := p.redis.Set(ctx, cache.RevokedJTIKey(jti), "1", ttl).Err(); err != nil {
		return unknownError("failed to revoke session", err)
	}
	return nil
}

func (p *LocalProvider) SetDisplayName(ctx context.Context, state State, name string) error {
	if !state.Authenticated() {
		return ErrInvalidToken
	}
	if err := p.accounts.SetDisplayName(ctx, state.Identity.ID, name); err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return ErrUserNotFound
		}
		return unknownError("", err)
	}
	state.Identity.DisplayName = name
	return nil
}

func (p *LocalProvider) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := p.parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrInvalidToken
	}

	if jti, ok := claims["jti"].(string); ok && jti != "" && p.redis != nil {
		revoked, err := p.redis.Exists(ctx, cache.RevokedJTIKey(jti)).Result()
		if err != nil {
			observability.GlobalLogger.WarnContext(ctx, "revocation check failed", "error", err)
		} else if revoked > 0 {
			return nil, ErrInvalidToken
		}
	}

	account, err := p.accounts.FindByID(ctx, sub)
	if err != nil {
		return nil, unknownError("", err)
	}
	if account == nil {
		return nil, ErrInvalidToken
	}
	return accountIdentity(account), nil
}

func (p *LocalProvider) parse(token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (p *LocalProvider) issue(account *models.Account) (State, error) {
	if len(p.secret) == 0 {
		return Anonymous, unknownError("JWT secret not configured", nil)
	}
	now := p.now()
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"iss":   tokenIssuer,
		"aud":   tokenAudience,
		"exp":   now.Add(p.ttl).Unix(),
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"jti":   fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Anonymous, unknownError("failed to sign session token", err)
	}
	return State{Identity: accountIdentity(account), Token: signed}, nil
}

func accountIdentity(a *models.Account) *Identity {
	return &Identity{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
	}
}
